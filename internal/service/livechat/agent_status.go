package livechat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"livechat-backend/internal/model"
)

type AgentStatusDeps struct {
	Directory     Directory
	Store         ConversationStore
	Notifier      Notifier
	BusinessHours BusinessHours
	Settings      Settings
}

// AgentStatusCoordinator owns the livechat service status of agents.
type AgentStatusCoordinator struct {
	directory     Directory
	store         ConversationStore
	notifier      Notifier
	businessHours BusinessHours
	settings      Settings
	hooks         Hooks
	dispatch      Dispatcher
	log           *slog.Logger
}

func NewAgentStatusCoordinator(deps AgentStatusDeps, opts ...Option) *AgentStatusCoordinator {
	o := applyOptions(opts)
	return &AgentStatusCoordinator{
		directory:     deps.Directory,
		store:         deps.Store,
		notifier:      deps.Notifier,
		businessHours: deps.BusinessHours,
		settings:      deps.Settings,
		hooks:         o.Hooks,
		dispatch:      o.Dispatcher,
		log:           o.Logger,
	}
}

// SetStatus stores the agent's livechat status. The status_set hook always fires; the
// user.updated notification goes out only when the stored record changed.
func (c *AgentStatusCoordinator) SetStatus(ctx context.Context, agentID string, status model.AgentStatus) (int, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return 0, newError(ErrorCodeInvalidInput, ReasonInvalidUser, "agent id is required", nil)
	}
	if !status.Valid() {
		return 0, newError(ErrorCodeInvalidInput, ReasonInvalidStatus, "unsupported livechat status", nil)
	}

	modified, err := c.directory.SetLivechatStatus(ctx, agentID, status)
	if err != nil {
		return 0, dependencyError("failed to set livechat status", err)
	}

	c.hooks.Fire(ctx, HookAgentStatusSet, map[string]any{"userId": agentID, "status": status})

	if modified > 0 {
		agentStatusChangesTotal.WithLabelValues(string(status)).Inc()
		c.notifyUserChange(agentID, map[string]any{
			"statusLivechat":               status,
			"livechatStatusSystemModified": false,
		})
	}
	return modified, nil
}

// SetStatusIf stores status and fields only when condition holds on the stored record.
// A condition that does not match is not an error: it reports zero modifications.
func (c *AgentStatusCoordinator) SetStatusIf(ctx context.Context, agentID string, status model.AgentStatus, condition StatusCondition, fields map[string]any) (int, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return 0, newError(ErrorCodeInvalidInput, ReasonInvalidUser, "agent id is required", nil)
	}
	if !status.Valid() {
		return 0, newError(ErrorCodeInvalidInput, ReasonInvalidStatus, "unsupported livechat status", nil)
	}

	modified, err := c.directory.SetLivechatStatusIf(ctx, agentID, status, condition, fields)
	if err != nil {
		return 0, dependencyError("failed to set livechat status", err)
	}

	c.hooks.Fire(ctx, HookAgentStatusSet, map[string]any{"userId": agentID, "status": status})

	if modified > 0 {
		agentStatusChangesTotal.WithLabelValues(string(status)).Inc()
		diff := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			diff[k] = v
		}
		diff["statusLivechat"] = status
		c.notifyUserChange(agentID, diff)
	}
	return modified, nil
}

// NotifyAgentStatusChanged tells listeners the agent's presence changed. When agent info is
// visible to visitors, each of the agent's open rooms receives the new status.
func (c *AgentStatusCoordinator) NotifyAgentStatusChanged(ctx context.Context, agentID string, status model.UserStatus) error {
	if status == "" {
		return nil
	}

	c.hooks.Fire(ctx, HookAgentStatusChanged, map[string]any{"userId": agentID, "status": status})

	if c.settings == nil || !c.settings.ShowAgentInfo() {
		return nil
	}

	rooms, err := c.store.ListOpenRoomsByAgent(ctx, agentID)
	if err != nil {
		return dependencyError("failed to list open rooms", err)
	}
	if c.notifier == nil {
		return nil
	}
	for _, room := range rooms {
		roomID := room.RoomID
		c.dispatch.Dispatch(func() {
			payload := map[string]any{"type": "agentStatus", "status": status}
			if err := c.notifier.NotifyRoom(context.Background(), roomID, EventOmnichannelRoom, payload); err != nil {
				c.log.Warn("agent status broadcast failed",
					slog.String("room_id", roomID),
					slog.String("agent_id", agentID),
					slog.Any("error", err),
				)
			}
		})
	}
	return nil
}

// AllowChangeToAvailable reports whether the agent may switch to status. Only a change to
// available is gated, and only by business hours.
func (c *AgentStatusCoordinator) AllowChangeToAvailable(ctx context.Context, agentID string, status model.AgentStatus) (bool, error) {
	if status != model.AgentStatusAvailable || c.businessHours == nil {
		return true, nil
	}
	allowed, err := c.businessHours.AllowAgentChangeServiceStatus(ctx, agentID)
	if err != nil {
		return false, dependencyError("failed to check business hours", err)
	}
	return allowed, nil
}

// OnAgentActivated marks a reactivated user as an operator, provided they hold the agent role.
func (c *AgentStatusCoordinator) OnAgentActivated(ctx context.Context, agentID string) error {
	ok, err := c.directory.HasRole(ctx, agentID, model.RoleLivechatAgent)
	if err != nil {
		return dependencyError("failed to check agent role", err)
	}
	if !ok {
		return newError(ErrorCodePreconditionFailed, ReasonInvalidUserRole, "user is not a livechat agent", nil)
	}
	if err := c.directory.SetOperator(ctx, agentID, true); err != nil {
		return dependencyError("failed to set operator flag", err)
	}
	c.hooks.Fire(ctx, HookAgentCreated, map[string]any{"userId": agentID})
	return nil
}

// OnAgentAdded enables a newly added agent. Its initial livechat status follows its presence:
// only an offline user starts not-available, an unset presence counts as present.
func (c *AgentStatusCoordinator) OnAgentAdded(ctx context.Context, user model.UserItem) (model.UserItem, error) {
	if strings.TrimSpace(user.UserID) == "" {
		return user, newError(ErrorCodeInvalidInput, ReasonInvalidUser, "user id is required", nil)
	}

	if err := c.directory.SetOperator(ctx, user.UserID, true); err != nil {
		if errors.Is(err, ErrNotFound) {
			return user, newError(ErrorCodeNotFound, ReasonInvalidUser, "user not found", err)
		}
		return user, dependencyError("failed to set operator flag", err)
	}
	user.Operator = true

	status := model.AgentStatusAvailable
	if user.Status == model.UserStatusOffline {
		status = model.AgentStatusNotAvailable
	}
	if _, err := c.SetStatus(ctx, user.UserID, status); err != nil {
		return user, err
	}
	user.StatusLivechat = status
	user.LivechatStatusSystemModified = false

	c.hooks.Fire(ctx, HookAgentCreated, map[string]any{"userId": user.UserID, "user": user})
	return user, nil
}

func (c *AgentStatusCoordinator) notifyUserChange(agentID string, diff map[string]any) {
	if c.notifier == nil {
		return
	}
	change := UserChange{ID: agentID, ClientAction: "updated", Diff: diff}
	c.dispatch.Dispatch(func() {
		if err := c.notifier.NotifyUser(context.Background(), agentID, EventUserUpdated, change); err != nil {
			c.log.Warn("agent status notification failed",
				slog.String("agent_id", agentID),
				slog.Any("error", err),
			)
		}
	})
}
