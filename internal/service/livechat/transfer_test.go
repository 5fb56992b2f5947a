package livechat

import (
	"context"
	"testing"

	"livechat-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transferFixture struct {
	store       *memoryStore
	departments *memoryDepartments
	router      *fakeRouter
	hooks       *recordingHooks
	coordinator *TransferCoordinator
}

func newTransferFixture() *transferFixture {
	store := newMemoryStore()
	departments := &memoryDepartments{store: store, bots: map[string]int{}}
	router := &fakeRouter{transferResult: true, unassignResult: true}
	hooks := &recordingHooks{}
	opts := []Option{WithDispatcher(inlineDispatcher{}), WithHooks(hooks)}
	recorder := NewHistoryRecorder(store, nil, opts...)

	return &transferFixture{
		store:       store,
		departments: departments,
		router:      router,
		hooks:       hooks,
		coordinator: NewTransferCoordinator(TransferDeps{
			Store:       store,
			Directory:   store,
			Departments: departments,
			Router:      router,
			Recorder:    recorder,
		}, opts...),
	}
}

func TestTransferRejectsRoomOnHold(t *testing.T) {
	f := newTransferFixture()
	room := servedRoom("r1", "a1", "v1")
	room.OnHold = true

	ok, err := f.coordinator.Transfer(context.Background(), room, model.VisitorItem{VisitorID: "v1"}, TransferData{})
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, ErrorCodePreconditionFailed, CodeOf(err))
	assert.True(t, IsReason(err, ReasonRoomOnHold))
	assert.Empty(t, f.router.transfers)
}

func TestTransferRejectsUnknownDepartment(t *testing.T) {
	f := newTransferFixture()

	ok, err := f.coordinator.Transfer(context.Background(), servedRoom("r1", "a1", "v1"), model.VisitorItem{}, TransferData{DepartmentID: "nope"})
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, ErrorCodeNotFound, CodeOf(err))
	assert.True(t, IsReason(err, ReasonInvalidDepartment))
	assert.Empty(t, f.router.transfers)
}

func TestTransferDelegatesToRouter(t *testing.T) {
	f := newTransferFixture()
	f.store.departments["sales"] = model.DepartmentItem{DepartmentID: "sales", Name: "Sales"}

	ok, err := f.coordinator.Transfer(context.Background(), servedRoom("r1", "a1", "v1"), model.VisitorItem{}, TransferData{DepartmentID: " sales "})
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, f.router.transfers, 1)
	assert.Equal(t, routerCall{roomID: "r1", departmentID: "sales"}, f.router.transfers[0])

	f.router.transferResult = false
	ok, err = f.coordinator.Transfer(context.Background(), servedRoom("r1", "a1", "v1"), model.VisitorItem{}, TransferData{})
	require.NoError(t, err)
	assert.False(t, ok)

	f.router.transferErr = errBoom
	_, err = f.coordinator.Transfer(context.Background(), servedRoom("r1", "a1", "v1"), model.VisitorItem{}, TransferData{})
	assert.Equal(t, ErrorCodeDependencyFailure, CodeOf(err))
}

func TestForwardOpenChatsUnknownAgent(t *testing.T) {
	f := newTransferFixture()

	_, err := f.coordinator.ForwardOpenChats(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, ErrorCodeNotFound, CodeOf(err))
	assert.True(t, IsReason(err, ReasonInvalidUser))
}

func TestForwardOpenChatsIsolatesFailures(t *testing.T) {
	f := newTransferFixture()
	f.store.users["a1"] = onlineAgent("a1")
	f.store.departments["support"] = model.DepartmentItem{DepartmentID: "support"}
	for _, id := range []string{"r1", "r2", "r3"} {
		visitorID := "v-" + id
		f.store.rooms[id] = servedRoom(id, "a1", visitorID)
		f.store.visitors[visitorID] = model.VisitorItem{VisitorID: visitorID, DepartmentID: "support"}
	}
	f.router.transferErrFor = map[string]error{"r2": errBoom}

	report, err := f.coordinator.ForwardOpenChats(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, ForwardReport{Attempted: 3, Transferred: 2, Failed: 1}, report)
	assert.Len(t, f.router.transfers, 3)
	for _, call := range f.router.transfers {
		assert.Equal(t, "support", call.departmentID)
	}
}

func TestForwardOpenChatsContinuesPastMissingVisitor(t *testing.T) {
	f := newTransferFixture()
	f.store.users["a1"] = onlineAgent("a1")
	f.store.departments["support"] = model.DepartmentItem{DepartmentID: "support"}
	for _, id := range []string{"r1", "r2", "r3"} {
		f.store.rooms[id] = servedRoom(id, "a1", "v-"+id)
	}
	f.store.visitors["v-r1"] = model.VisitorItem{VisitorID: "v-r1", DepartmentID: "support"}
	f.store.visitors["v-r3"] = model.VisitorItem{VisitorID: "v-r3", DepartmentID: "support"}

	report, err := f.coordinator.ForwardOpenChats(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, ForwardReport{Attempted: 3, Transferred: 2, Skipped: 1}, report)
	assert.Equal(t, []routerCall{
		{roomID: "r1", departmentID: "support"},
		{roomID: "r3", departmentID: "support"},
	}, f.router.transfers)
}

func TestForwardOpenChatsCountsDeclinesApart(t *testing.T) {
	f := newTransferFixture()
	f.store.users["a1"] = onlineAgent("a1")
	f.store.departments["support"] = model.DepartmentItem{DepartmentID: "support"}
	for _, id := range []string{"r1", "r2", "r3"} {
		visitorID := "v-" + id
		f.store.rooms[id] = servedRoom(id, "a1", visitorID)
		f.store.visitors[visitorID] = model.VisitorItem{VisitorID: visitorID, DepartmentID: "support"}
	}
	f.router.declineFor = map[string]bool{"r1": true}
	f.router.transferErrFor = map[string]error{"r3": errBoom}

	report, err := f.coordinator.ForwardOpenChats(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, ForwardReport{Attempted: 3, Transferred: 1, Declined: 1, Failed: 1}, report)
}

func TestForwardOpenChatsSkipsMissingAndDisabledVisitors(t *testing.T) {
	f := newTransferFixture()
	f.store.users["a1"] = onlineAgent("a1")
	f.store.rooms["r1"] = servedRoom("r1", "a1", "gone")
	f.store.rooms["r2"] = servedRoom("r2", "a1", "v2")
	f.store.visitors["v2"] = model.VisitorItem{VisitorID: "v2", Disabled: true}

	report, err := f.coordinator.ForwardOpenChats(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, ForwardReport{Attempted: 2, Skipped: 2}, report)
	assert.Empty(t, f.router.transfers)
}

func TestForwardOpenChatsNoRooms(t *testing.T) {
	f := newTransferFixture()
	f.store.users["a1"] = onlineAgent("a1")

	report, err := f.coordinator.ForwardOpenChats(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, ForwardReport{}, report)
}

func TestReturnRoomAsInquiryPreconditions(t *testing.T) {
	f := newTransferFixture()

	closed := servedRoom("r1", "a1", "v1")
	closed.Open = false
	_, err := f.coordinator.ReturnRoomAsInquiry(context.Background(), closed, "", nil)
	assert.True(t, IsReason(err, ReasonRoomClosed))

	onHold := servedRoom("r1", "a1", "v1")
	onHold.OnHold = true
	_, err = f.coordinator.ReturnRoomAsInquiry(context.Background(), onHold, "", nil)
	assert.True(t, IsReason(err, ReasonRoomOnHold))

	unserved := servedRoom("r1", "a1", "v1")
	unserved.ServedBy = nil
	ok, err := f.coordinator.ReturnRoomAsInquiry(context.Background(), unserved, "", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.coordinator.ReturnRoomAsInquiry(context.Background(), servedRoom("r1", "ghost", "v1"), "", nil)
	assert.Equal(t, ErrorCodeNotFound, CodeOf(err))
	assert.True(t, IsReason(err, ReasonInvalidUser))

	assert.Empty(t, f.store.history())
	assert.Empty(t, f.router.unassigns)
}

func TestReturnRoomAsInquiryWithoutInquiry(t *testing.T) {
	f := newTransferFixture()
	f.store.users["a1"] = onlineAgent("a1")

	ok, err := f.coordinator.ReturnRoomAsInquiry(context.Background(), servedRoom("r1", "a1", "v1"), "", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.store.history())
	assert.Empty(t, f.router.unassigns)
}

func TestReturnRoomAsInquiryRecordsThenUnassigns(t *testing.T) {
	f := newTransferFixture()
	f.store.users["a1"] = onlineAgent("a1")
	f.store.inquiries["i1"] = model.InquiryItem{InquiryID: "i1", RoomID: "r1", Status: model.InquiryStatusTaken}

	var historyAtUnassign int
	f.router.onUnassign = func() { historyAtUnassign = len(f.store.messages) }

	ok, err := f.coordinator.ReturnRoomAsInquiry(context.Background(), servedRoom("r1", "a1", "v1"), "sales", &TransferData{Comment: "shift over"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, historyAtUnassign, "history must be written before the agent is unassigned")

	history := f.store.history()
	require.Len(t, history, 1)
	assert.Equal(t, model.TransferScopeQueue, history[0].TransferData.Scope)
	assert.Equal(t, "a1", history[0].TransferData.TransferredBy.ID)
	assert.Equal(t, "shift over", history[0].TransferData.Comment)

	require.Len(t, f.router.unassigns, 1)
	assert.Equal(t, routerCall{roomID: "r1", inquiryID: "i1", departmentID: "sales"}, f.router.unassigns[0])
	assert.Contains(t, f.hooks.names(), HookRoomReturnedQueue)
}

func TestReturnRoomAsInquiryReportsFailedStage(t *testing.T) {
	f := newTransferFixture()
	f.store.users["a1"] = onlineAgent("a1")
	f.store.inquiries["i1"] = model.InquiryItem{InquiryID: "i1", RoomID: "r1"}
	f.router.unassignErr = errBoom

	ok, err := f.coordinator.ReturnRoomAsInquiry(context.Background(), servedRoom("r1", "a1", "v1"), "", nil)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, ErrorCodeDependencyFailure, CodeOf(err))
	assert.True(t, IsReason(err, ReasonReturnToQueueFailed))
	assert.ErrorIs(t, err, errBoom)

	stage, found := FailedStage(err)
	require.True(t, found)
	assert.Equal(t, StageHistoryRecorded, stage)
	assert.Len(t, f.store.history(), 1)
	assert.NotContains(t, f.hooks.names(), HookRoomReturnedQueue)
}

func TestReturnRoomAsInquiryHistoryFailure(t *testing.T) {
	f := newTransferFixture()
	f.store.users["a1"] = onlineAgent("a1")
	f.store.inquiries["i1"] = model.InquiryItem{InquiryID: "i1", RoomID: "r1"}
	f.store.messageErr = errBoom

	_, err := f.coordinator.ReturnRoomAsInquiry(context.Background(), servedRoom("r1", "a1", "v1"), "", nil)
	require.Error(t, err)
	stage, found := FailedStage(err)
	require.True(t, found)
	assert.Equal(t, StageValidated, stage)
	assert.Empty(t, f.router.unassigns)
}
