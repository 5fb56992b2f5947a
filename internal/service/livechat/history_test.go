package livechat

import (
	"context"
	"testing"
	"time"

	"livechat-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newRecorder(store *memoryStore, notifier Notifier) *HistoryRecorder {
	return NewHistoryRecorder(store, notifier,
		WithClock(func() time.Time { return fixedNow }),
		WithDispatcher(inlineDispatcher{}),
	)
}

func TestRecordRejectsInvalidActor(t *testing.T) {
	store := newMemoryStore()
	recorder := newRecorder(store, nil)
	room := servedRoom("r1", "a1", "v1")

	cases := map[string]*model.TransferActor{
		"missing":  nil,
		"no id":    {Username: "alice", UserType: model.UserTypeAgent},
		"no name":  {ID: "a1", UserType: model.UserTypeAgent},
		"no type":  {ID: "a1", Username: "alice"},
		"bad type": {ID: "a1", Username: "alice", UserType: "robot"},
	}
	for name, actor := range cases {
		t.Run(name, func(t *testing.T) {
			err := recorder.Record(context.Background(), room, TransferData{TransferredBy: actor})
			require.Error(t, err)
			assert.Equal(t, ErrorCodeInvalidInput, CodeOf(err))
			assert.True(t, IsReason(err, ReasonInvalidTransferredBy))
		})
	}
	assert.Empty(t, store.history())
}

func TestRecordScopeDefaults(t *testing.T) {
	store := newMemoryStore()
	recorder := newRecorder(store, nil)
	room := servedRoom("r1", "a1", "v1")
	actor := &model.TransferActor{ID: "a1", Username: "alice", UserType: model.UserTypeAgent}

	require.NoError(t, recorder.Record(context.Background(), room, TransferData{TransferredBy: actor, DepartmentID: "sales"}))
	require.NoError(t, recorder.Record(context.Background(), room, TransferData{TransferredBy: actor}))
	require.NoError(t, recorder.Record(context.Background(), room, TransferData{TransferredBy: actor, Scope: model.TransferScopeQueue}))

	history := store.history()
	require.Len(t, history, 3)
	assert.Equal(t, model.TransferScopeDepartment, history[0].TransferData.Scope)
	require.NotNil(t, history[0].TransferData.NextDepartment)
	assert.Equal(t, "sales", history[0].TransferData.NextDepartment.DepartmentID)
	assert.Equal(t, model.TransferScopeAgent, history[1].TransferData.Scope)
	assert.Nil(t, history[1].TransferData.NextDepartment)
	assert.Equal(t, model.TransferScopeQueue, history[2].TransferData.Scope)
}

func TestRecordBuildsTransferMessage(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	recorder := newRecorder(store, notifier)
	room := servedRoom("r1", "a1", "v1")

	err := recorder.Record(context.Background(), room, TransferData{
		TransferredBy: &model.TransferActor{ID: "v1", Username: "guest", UserType: model.UserTypeVisitor},
		TransferredTo: &model.TransferTarget{ID: "a2", Username: "bob"},
		Comment:       "needs billing",
	})
	require.NoError(t, err)

	history := store.history()
	require.Len(t, history, 1)
	msg := history[0]
	assert.Equal(t, model.MessageTypeTransferHistory, msg.Type)
	assert.Equal(t, "r1", msg.RoomID)
	assert.Equal(t, string(model.UserTypeVisitor), msg.SenderType)
	assert.Equal(t, fixedNow.Format(time.RFC3339Nano), msg.CreatedAt)
	assert.Equal(t, "support", msg.TransferData.PreviousDepartment)
	assert.Equal(t, "needs billing", msg.TransferData.Comment)
	require.NotNil(t, msg.TransferData.TransferredTo)
	assert.Equal(t, "a2", msg.TransferData.TransferredTo.ID)

	require.Len(t, notifier.rooms, 1)
	assert.Equal(t, "r1", notifier.rooms[0].target)
	assert.Equal(t, EventRoomMessage, notifier.rooms[0].event)
}

func TestRecordSinkFailure(t *testing.T) {
	store := newMemoryStore()
	store.messageErr = errBoom
	recorder := newRecorder(store, nil)

	err := recorder.Record(context.Background(), servedRoom("r1", "a1", "v1"), TransferData{
		TransferredBy: &model.TransferActor{ID: "a1", Username: "alice", UserType: model.UserTypeAgent},
	})
	require.Error(t, err)
	assert.Equal(t, ErrorCodeDependencyFailure, CodeOf(err))
	assert.ErrorIs(t, err, errBoom)
}

func TestNewTransferredByDetectsVisitor(t *testing.T) {
	room := servedRoom("r1", "a1", "v1")

	agent := NewTransferredBy(onlineAgent("a1"), room)
	assert.Equal(t, model.UserTypeAgent, agent.UserType)

	visitor := NewTransferredBy(model.UserItem{UserID: "v1", Username: "guest"}, room)
	assert.Equal(t, model.UserTypeVisitor, visitor.UserType)
}
