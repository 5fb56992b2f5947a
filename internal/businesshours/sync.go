package businesshours

import (
	"context"
	"fmt"

	"livechat-backend/internal/model"
	"livechat-backend/internal/service/livechat"
)

const systemModifiedField = "livechatStatusSystemModified"

// StatusSetter is the conditional status write of the agent status coordinator.
type StatusSetter interface {
	SetStatusIf(ctx context.Context, agentID string, status model.AgentStatus, condition livechat.StatusCondition, fields map[string]any) (int, error)
}

// SyncResult counts the agents whose status the sync changed.
type SyncResult struct {
	Open     bool `json:"open"`
	Modified int  `json:"modified"`
}

// Sync aligns agent statuses with the calendar at the current time. Outside working hours
// available agents are closed and flagged as system modified; inside working hours only
// agents closed by the system are reopened, so a manual "not-available" is left alone.
func (c *Calendar) Sync(ctx context.Context, setter StatusSetter, agentIDs []string) (SyncResult, error) {
	res := SyncResult{Open: c.IsOpen(c.now())}

	for _, agentID := range agentIDs {
		var (
			n   int
			err error
		)
		if res.Open {
			n, err = setter.SetStatusIf(ctx, agentID, model.AgentStatusAvailable,
				livechat.StatusCondition{"statusLivechat": model.AgentStatusNotAvailable, systemModifiedField: true},
				map[string]any{systemModifiedField: false})
		} else {
			n, err = setter.SetStatusIf(ctx, agentID, model.AgentStatusNotAvailable,
				livechat.StatusCondition{"statusLivechat": model.AgentStatusAvailable},
				map[string]any{systemModifiedField: true})
		}
		if err != nil {
			return res, fmt.Errorf("sync agent %s: %w", agentID, err)
		}
		res.Modified += n
	}
	return res, nil
}
