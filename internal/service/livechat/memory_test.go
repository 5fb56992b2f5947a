package livechat

import (
	"context"
	"errors"
	"sort"
	"sync"

	"livechat-backend/internal/model"
)

type memoryStore struct {
	mu          sync.Mutex
	rooms       map[string]model.RoomItem
	inquiries   map[string]model.InquiryItem
	visitors    map[string]model.VisitorItem
	users       map[string]model.UserItem
	departments map[string]model.DepartmentItem
	deptAgents  map[string][]string
	messages    []model.MessageItem

	visitorErr error
	messageErr error
	roomsErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rooms:       make(map[string]model.RoomItem),
		inquiries:   make(map[string]model.InquiryItem),
		visitors:    make(map[string]model.VisitorItem),
		users:       make(map[string]model.UserItem),
		departments: make(map[string]model.DepartmentItem),
		deptAgents:  make(map[string][]string),
	}
}

func (m *memoryStore) GetRoom(ctx context.Context, roomID string) (model.RoomItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return model.RoomItem{}, ErrNotFound
	}
	return room, nil
}

func (m *memoryStore) ListOpenRoomsByAgent(ctx context.Context, agentID string) ([]model.RoomItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roomsErr != nil {
		return nil, m.roomsErr
	}
	var rooms []model.RoomItem
	for _, room := range m.rooms {
		if room.Open && room.ServedBy != nil && room.ServedBy.ID == agentID {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt != rooms[j].CreatedAt {
			return rooms[i].CreatedAt < rooms[j].CreatedAt
		}
		return rooms[i].RoomID < rooms[j].RoomID
	})
	return rooms, nil
}

func (m *memoryStore) GetInquiryByRoom(ctx context.Context, roomID string) (model.InquiryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inquiry := range m.inquiries {
		if inquiry.RoomID == roomID {
			return inquiry, nil
		}
	}
	return model.InquiryItem{}, ErrNotFound
}

func (m *memoryStore) GetVisitor(ctx context.Context, visitorID string) (model.VisitorItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.visitorErr != nil {
		return model.VisitorItem{}, m.visitorErr
	}
	visitor, ok := m.visitors[visitorID]
	if !ok {
		return model.VisitorItem{}, ErrNotFound
	}
	return visitor, nil
}

func (m *memoryStore) GetAgent(ctx context.Context, agentID string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[agentID]
	if !ok {
		return model.UserItem{}, ErrNotFound
	}
	return user, nil
}

func (m *memoryStore) GetAgentByUsername(ctx context.Context, username string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return model.UserItem{}, ErrNotFound
}

func (m *memoryStore) SetOperator(ctx context.Context, agentID string, operator bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[agentID]
	if !ok {
		return ErrNotFound
	}
	user.Operator = operator
	m.users[agentID] = user
	return nil
}

func (m *memoryStore) SetLivechatStatus(ctx context.Context, agentID string, status model.AgentStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[agentID]
	if !ok {
		return 0, nil
	}
	changed := user.StatusLivechat != status || user.LivechatStatusSystemModified
	user.StatusLivechat = status
	user.LivechatStatusSystemModified = false
	m.users[agentID] = user
	if !changed {
		return 0, nil
	}
	return 1, nil
}

func (m *memoryStore) SetLivechatStatusIf(ctx context.Context, agentID string, status model.AgentStatus, condition StatusCondition, fields map[string]any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[agentID]
	if !ok {
		return 0, nil
	}
	for key, want := range condition {
		if userField(user, key) != want {
			return 0, nil
		}
	}
	user.StatusLivechat = status
	if v, ok := fields["livechatStatusSystemModified"].(bool); ok {
		user.LivechatStatusSystemModified = v
	}
	m.users[agentID] = user
	return 1, nil
}

func userField(user model.UserItem, key string) any {
	switch key {
	case "statusLivechat":
		return user.StatusLivechat
	case "livechatStatusSystemModified":
		return user.LivechatStatusSystemModified
	case "status":
		return user.Status
	case "operator":
		return user.Operator
	}
	return nil
}

func (m *memoryStore) HasRole(ctx context.Context, agentID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[agentID].HasRole(role), nil
}

func (m *memoryStore) IsAgentOnline(ctx context.Context, agentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[agentID].OnlineAgent(), nil
}

func (m *memoryStore) AnyAgentOnline(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.OnlineAgent() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) CreateMessage(ctx context.Context, message model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messageErr != nil {
		return m.messageErr
	}
	m.messages = append(m.messages, message)
	return nil
}

func (m *memoryStore) history() []model.MessageItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.MessageItem(nil), m.messages...)
}

// memoryDepartments reads the departments held by a memoryStore.
type memoryDepartments struct {
	store   *memoryStore
	bots    map[string]int
	lookups []string
}

func (d *memoryDepartments) GetDepartment(ctx context.Context, departmentID string) (model.DepartmentItem, error) {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	d.lookups = append(d.lookups, departmentID)
	department, ok := d.store.departments[departmentID]
	if !ok {
		return model.DepartmentItem{}, ErrNotFound
	}
	return department, nil
}

func (d *memoryDepartments) AnyAgentOnline(ctx context.Context, departmentID string) (bool, error) {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	for _, agentID := range d.store.deptAgents[departmentID] {
		if d.store.users[agentID].OnlineAgent() {
			return true, nil
		}
	}
	return false, nil
}

func (d *memoryDepartments) CountOnlineBots(ctx context.Context, departmentID string) (int, error) {
	return d.bots[departmentID], nil
}

type routerCall struct {
	roomID       string
	inquiryID    string
	departmentID string
}

type fakeRouter struct {
	mu             sync.Mutex
	transferResult bool
	transferErr    error
	transferErrFor map[string]error
	declineFor     map[string]bool
	unassignResult bool
	unassignErr    error
	transfers      []routerCall
	unassigns      []routerCall
	onUnassign     func()
}

func (r *fakeRouter) TransferRoom(ctx context.Context, room model.RoomItem, visitor model.VisitorItem, data TransferData) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers = append(r.transfers, routerCall{roomID: room.RoomID, departmentID: data.DepartmentID})
	if err, ok := r.transferErrFor[room.RoomID]; ok {
		return false, err
	}
	if r.transferErr != nil {
		return false, r.transferErr
	}
	if r.declineFor[room.RoomID] {
		return false, nil
	}
	return r.transferResult, nil
}

func (r *fakeRouter) UnassignAgent(ctx context.Context, inquiry model.InquiryItem, departmentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unassigns = append(r.unassigns, routerCall{roomID: inquiry.RoomID, inquiryID: inquiry.InquiryID, departmentID: departmentID})
	if r.onUnassign != nil {
		r.onUnassign()
	}
	if r.unassignErr != nil {
		return false, r.unassignErr
	}
	return r.unassignResult, nil
}

type notification struct {
	target  string
	event   string
	payload any
}

type recordingNotifier struct {
	mu    sync.Mutex
	rooms []notification
	users []notification
	err   error
}

func (n *recordingNotifier) NotifyRoom(ctx context.Context, roomID, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms = append(n.rooms, notification{target: roomID, event: event, payload: payload})
	return n.err
}

func (n *recordingNotifier) NotifyUser(ctx context.Context, userID, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, notification{target: userID, event: event, payload: payload})
	return n.err
}

type firedHook struct {
	name    string
	payload any
}

type recordingHooks struct {
	mu    sync.Mutex
	fired []firedHook
}

func (h *recordingHooks) Fire(ctx context.Context, name string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fired = append(h.fired, firedHook{name: name, payload: payload})
}

func (h *recordingHooks) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.fired))
	for _, f := range h.fired {
		names = append(names, f.name)
	}
	return names
}

type inlineDispatcher struct{}

func (inlineDispatcher) Dispatch(task func()) { task() }

type staticSettings struct {
	acceptNoAgents bool
	assignToBot    bool
	showAgentInfo  bool
}

func (s staticSettings) AcceptChatsWithNoAgents() bool    { return s.acceptNoAgents }
func (s staticSettings) AssignNewConversationToBot() bool { return s.assignToBot }
func (s staticSettings) ShowAgentInfo() bool              { return s.showAgentInfo }

type staticBusinessHours struct {
	allowed bool
	err     error
	asked   []string
}

func (b *staticBusinessHours) AllowAgentChangeServiceStatus(ctx context.Context, agentID string) (bool, error) {
	b.asked = append(b.asked, agentID)
	return b.allowed, b.err
}

var errBoom = errors.New("boom")

func onlineAgent(id string) model.UserItem {
	return model.UserItem{
		UserID:         id,
		Username:       id,
		Name:           "Agent " + id,
		Roles:          []string{model.RoleLivechatAgent},
		Status:         model.UserStatusOnline,
		StatusLivechat: model.AgentStatusAvailable,
	}
}

func servedRoom(roomID, agentID, visitorID string) model.RoomItem {
	return model.RoomItem{
		RoomID:       roomID,
		Open:         true,
		ServedBy:     &model.ServedBy{ID: agentID, Username: agentID},
		ServedByID:   agentID,
		DepartmentID: "support",
		Visitor:      model.VisitorRef{ID: visitorID, Username: "guest-" + visitorID},
		CreatedAt:    "2024-05-01T10:00:00Z",
	}
}
