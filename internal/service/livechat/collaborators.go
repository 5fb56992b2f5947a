package livechat

import (
	"context"

	"livechat-backend/internal/model"
)

// ConversationStore owns rooms, inquiries and visitors. The core never caches what it reads.
type ConversationStore interface {
	GetRoom(ctx context.Context, roomID string) (model.RoomItem, error)
	ListOpenRoomsByAgent(ctx context.Context, agentID string) ([]model.RoomItem, error)
	GetInquiryByRoom(ctx context.Context, roomID string) (model.InquiryItem, error)
	GetVisitor(ctx context.Context, visitorID string) (model.VisitorItem, error)
}

// Router performs the actual reassignment. Its success contract is its own.
type Router interface {
	TransferRoom(ctx context.Context, room model.RoomItem, visitor model.VisitorItem, data TransferData) (bool, error)
	UnassignAgent(ctx context.Context, inquiry model.InquiryItem, departmentID string) (bool, error)
}

// StatusCondition is a set of attribute equality predicates that must hold on the stored agent record.
type StatusCondition map[string]any

type Directory interface {
	GetAgent(ctx context.Context, agentID string) (model.UserItem, error)
	GetAgentByUsername(ctx context.Context, username string) (model.UserItem, error)
	SetOperator(ctx context.Context, agentID string, operator bool) error
	// SetLivechatStatus returns the number of records actually changed.
	SetLivechatStatus(ctx context.Context, agentID string, status model.AgentStatus) (int, error)
	SetLivechatStatusIf(ctx context.Context, agentID string, status model.AgentStatus, condition StatusCondition, fields map[string]any) (int, error)
	HasRole(ctx context.Context, agentID, role string) (bool, error)
	IsAgentOnline(ctx context.Context, agentID string) (bool, error)
	AnyAgentOnline(ctx context.Context) (bool, error)
}

type Departments interface {
	GetDepartment(ctx context.Context, departmentID string) (model.DepartmentItem, error)
	AnyAgentOnline(ctx context.Context, departmentID string) (bool, error)
	// CountOnlineBots counts live bot agents; an empty departmentID counts globally.
	CountOnlineBots(ctx context.Context, departmentID string) (int, error)
}

// HistorySink appends entries to a room transcript.
type HistorySink interface {
	CreateMessage(ctx context.Context, message model.MessageItem) error
}

type Notifier interface {
	NotifyRoom(ctx context.Context, roomID, event string, payload any) error
	NotifyUser(ctx context.Context, userID, event string, payload any) error
}

// Hooks receives named lifecycle events. Fire must not block the caller.
type Hooks interface {
	Fire(ctx context.Context, name string, payload any)
}

type BusinessHours interface {
	AllowAgentChangeServiceStatus(ctx context.Context, agentID string) (bool, error)
}

type Settings interface {
	AcceptChatsWithNoAgents() bool
	AssignNewConversationToBot() bool
	ShowAgentInfo() bool
}

// Dispatcher runs fire-and-forget work off the caller's path.
type Dispatcher interface {
	Dispatch(task func())
}

type goDispatcher struct{}

func (goDispatcher) Dispatch(task func()) {
	go task()
}

type noopHooks struct{}

func (noopHooks) Fire(context.Context, string, any) {}

const (
	HookAgentStatusSet     = "livechat.agent.status_set"
	HookAgentStatusChanged = "livechat.agent.status_changed"
	HookAgentCreated       = "livechat.agent.created"
	HookRoomReturnedQueue  = "livechat.room.returned_to_queue"
)

const (
	EventOmnichannelRoom = "omnichannel.room"
	EventRoomMessage     = "message"
	EventUserUpdated     = "user.updated"
)
