package businesshours

import (
	"context"
	"errors"
	"testing"
	"time"

	"livechat-backend/internal/model"
	"livechat-backend/internal/service/livechat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setCall struct {
	agentID   string
	status    model.AgentStatus
	condition livechat.StatusCondition
	fields    map[string]any
}

type recordingSetter struct {
	calls    []setCall
	modified map[string]int
	err      error
}

func (s *recordingSetter) SetStatusIf(ctx context.Context, agentID string, status model.AgentStatus, condition livechat.StatusCondition, fields map[string]any) (int, error) {
	s.calls = append(s.calls, setCall{agentID: agentID, status: status, condition: condition, fields: fields})
	if s.err != nil {
		return 0, s.err
	}
	return s.modified[agentID], nil
}

func calendarAt(t *testing.T, now time.Time) *Calendar {
	t.Helper()
	c, err := New(Config{Enabled: true, Start: "09:00", End: "17:00"})
	require.NoError(t, err)
	c.now = func() time.Time { return now }
	return c
}

func TestSyncClosesAvailableAgentsAfterHours(t *testing.T) {
	c := calendarAt(t, time.Date(2024, 5, 15, 20, 0, 0, 0, time.UTC))
	setter := &recordingSetter{modified: map[string]int{"a1": 1}}

	res, err := c.Sync(context.Background(), setter, []string{"a1", "a2"})
	require.NoError(t, err)

	assert.False(t, res.Open)
	assert.Equal(t, 1, res.Modified)
	require.Len(t, setter.calls, 2)
	assert.Equal(t, model.AgentStatusNotAvailable, setter.calls[0].status)
	assert.Equal(t, livechat.StatusCondition{"statusLivechat": model.AgentStatusAvailable}, setter.calls[0].condition)
	assert.Equal(t, true, setter.calls[0].fields["livechatStatusSystemModified"])
}

func TestSyncReopensOnlySystemClosedAgents(t *testing.T) {
	c := calendarAt(t, time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC))
	setter := &recordingSetter{modified: map[string]int{"a1": 1, "a2": 1}}

	res, err := c.Sync(context.Background(), setter, []string{"a1", "a2"})
	require.NoError(t, err)

	assert.True(t, res.Open)
	assert.Equal(t, 2, res.Modified)
	for _, call := range setter.calls {
		assert.Equal(t, model.AgentStatusAvailable, call.status)
		assert.Equal(t, true, call.condition["livechatStatusSystemModified"])
		assert.Equal(t, false, call.fields["livechatStatusSystemModified"])
	}
}

func TestSyncStopsOnError(t *testing.T) {
	c := calendarAt(t, time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC))
	setter := &recordingSetter{err: errors.New("dynamo down")}

	_, err := c.Sync(context.Background(), setter, []string{"a1", "a2"})
	require.Error(t, err)
	assert.Len(t, setter.calls, 1)
}
