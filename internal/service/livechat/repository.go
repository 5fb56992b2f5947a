package livechat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"livechat-backend/internal/database"
	"livechat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoRepository backs every livechat collaborator that lives in DynamoDB.
// All tables are keyed by a single "pk" string attribute.
type DynamoRepository struct {
	db  *database.Database
	now func() time.Time
}

func NewDynamoRepository(db *database.Database) *DynamoRepository {
	return &DynamoRepository{db: db, now: time.Now}
}

func (r *DynamoRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func (r *DynamoRepository) GetRoom(ctx context.Context, roomID string) (model.RoomItem, error) {
	var room model.RoomItem
	if err := r.db.Client.GetItem(ctx, model.RoomsTable, roomID, &room); err != nil {
		if isNotFound(err) {
			return model.RoomItem{}, ErrNotFound
		}
		return model.RoomItem{}, err
	}
	return room, nil
}

func (r *DynamoRepository) ListOpenRoomsByAgent(ctx context.Context, agentID string) ([]model.RoomItem, error) {
	values := map[string]types.AttributeValue{
		":agentId": &types.AttributeValueMemberS{Value: agentID},
		":open":    &types.AttributeValueMemberBOOL{Value: true},
	}
	names := map[string]string{"#open": "open"}

	items, err := r.db.Client.Find(ctx, database.Lookup{
		Table:        model.RoomsTable,
		Index:        model.IndexRoomsByServedBy,
		KeyCondition: "servedById = :agentId",
		Filter:       "#open = :open",
		Values:       values,
		Names:        names,
	})
	if err != nil {
		return nil, err
	}

	rooms := make([]model.RoomItem, 0, len(items))
	for _, item := range items {
		var room model.RoomItem
		if err := attributevalue.UnmarshalMap(item, &room); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt < rooms[j].CreatedAt
	})
	return rooms, nil
}

func (r *DynamoRepository) GetInquiryByRoom(ctx context.Context, roomID string) (model.InquiryItem, error) {
	values := map[string]types.AttributeValue{
		":roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	items, err := r.db.Client.Find(ctx, database.Lookup{
		Table:        model.InquiriesTable,
		Index:        model.IndexInquiriesByRoom,
		KeyCondition: "roomId = :roomId",
		Values:       values,
	})
	if err != nil {
		return model.InquiryItem{}, err
	}
	if len(items) == 0 {
		return model.InquiryItem{}, ErrNotFound
	}

	var inquiry model.InquiryItem
	if err := attributevalue.UnmarshalMap(items[0], &inquiry); err != nil {
		return model.InquiryItem{}, err
	}
	return inquiry, nil
}

func (r *DynamoRepository) GetVisitor(ctx context.Context, visitorID string) (model.VisitorItem, error) {
	if strings.TrimSpace(visitorID) == "" {
		return model.VisitorItem{}, ErrNotFound
	}
	var visitor model.VisitorItem
	if err := r.db.Client.GetItem(ctx, model.VisitorsTable, visitorID, &visitor); err != nil {
		if isNotFound(err) {
			return model.VisitorItem{}, ErrNotFound
		}
		return model.VisitorItem{}, err
	}
	return visitor, nil
}

// SetRoomServedBy assigns the room to an agent and optionally moves it to departmentID.
func (r *DynamoRepository) SetRoomServedBy(ctx context.Context, roomID string, servedBy model.ServedBy, departmentID string) error {
	servedByAV, err := attributevalue.Marshal(servedBy)
	if err != nil {
		return fmt.Errorf("marshal servedBy: %w", err)
	}

	updateExpr := "SET #servedBy = :servedBy, #servedById = :servedById, #updatedAt = :updatedAt"
	values := map[string]types.AttributeValue{
		":servedBy":   servedByAV,
		":servedById": &types.AttributeValueMemberS{Value: servedBy.ID},
		":updatedAt":  &types.AttributeValueMemberS{Value: r.timestamp()},
	}
	names := map[string]string{
		"#servedBy":   "servedBy",
		"#servedById": "servedById",
		"#updatedAt":  "updatedAt",
	}
	if departmentID != "" {
		updateExpr += ", #departmentId = :departmentId"
		values[":departmentId"] = &types.AttributeValueMemberS{Value: departmentID}
		names["#departmentId"] = "departmentId"
	}

	err = r.db.Client.ConditionalUpdate(ctx, database.Update{
		Table:      model.RoomsTable,
		PK:         roomID,
		Expression: updateExpr,
		Condition:  "attribute_exists(pk)",
		Values:     values,
		Names:      names,
	})
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

// ClearRoomServedBy detaches the serving agent. A non-empty departmentID also moves the room.
func (r *DynamoRepository) ClearRoomServedBy(ctx context.Context, roomID, departmentID string) error {
	updateExpr := "SET #updatedAt = :updatedAt"
	values := map[string]types.AttributeValue{
		":updatedAt": &types.AttributeValueMemberS{Value: r.timestamp()},
	}
	names := map[string]string{
		"#updatedAt":  "updatedAt",
		"#servedBy":   "servedBy",
		"#servedById": "servedById",
	}
	if departmentID != "" {
		updateExpr += ", #departmentId = :departmentId"
		values[":departmentId"] = &types.AttributeValueMemberS{Value: departmentID}
		names["#departmentId"] = "departmentId"
	}
	updateExpr += " REMOVE #servedBy, #servedById"

	err := r.db.Client.ConditionalUpdate(ctx, database.Update{
		Table:      model.RoomsTable,
		PK:         roomID,
		Expression: updateExpr,
		Condition:  "attribute_exists(pk)",
		Values:     values,
		Names:      names,
	})
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

// SetInquiryStatus moves an inquiry to status, stamping queuedAt or takenAt accordingly.
func (r *DynamoRepository) SetInquiryStatus(ctx context.Context, inquiryID string, status model.InquiryStatus, departmentID string) error {
	now := r.timestamp()
	updateExpr := "SET #status = :status, #updatedAt = :updatedAt"
	values := map[string]types.AttributeValue{
		":status":    &types.AttributeValueMemberS{Value: string(status)},
		":updatedAt": &types.AttributeValueMemberS{Value: now},
	}
	names := map[string]string{
		"#status":    "status",
		"#updatedAt": "updatedAt",
	}
	switch status {
	case model.InquiryStatusQueued:
		updateExpr += ", #queuedAt = :updatedAt"
		names["#queuedAt"] = "queuedAt"
	case model.InquiryStatusTaken:
		updateExpr += ", #takenAt = :updatedAt"
		names["#takenAt"] = "takenAt"
	}
	if departmentID != "" {
		updateExpr += ", #departmentId = :departmentId"
		values[":departmentId"] = &types.AttributeValueMemberS{Value: departmentID}
		names["#departmentId"] = "departmentId"
	}

	err := r.db.Client.ConditionalUpdate(ctx, database.Update{
		Table:      model.InquiriesTable,
		PK:         inquiryID,
		Expression: updateExpr,
		Condition:  "attribute_exists(pk)",
		Values:     values,
		Names:      names,
	})
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) GetAgent(ctx context.Context, agentID string) (model.UserItem, error) {
	if strings.TrimSpace(agentID) == "" {
		return model.UserItem{}, ErrNotFound
	}
	var user model.UserItem
	if err := r.db.Client.GetItem(ctx, model.UsersTable, agentID, &user); err != nil {
		if isNotFound(err) {
			return model.UserItem{}, ErrNotFound
		}
		return model.UserItem{}, err
	}
	return user, nil
}

func (r *DynamoRepository) GetAgentByUsername(ctx context.Context, username string) (model.UserItem, error) {
	values := map[string]types.AttributeValue{
		":username": &types.AttributeValueMemberS{Value: username},
	}
	items, err := r.db.Client.Find(ctx, database.Lookup{
		Table:        model.UsersTable,
		Index:        model.IndexUsersByUsername,
		KeyCondition: "username = :username",
		Values:       values,
	})
	if err != nil {
		return model.UserItem{}, err
	}
	if len(items) == 0 {
		return model.UserItem{}, ErrNotFound
	}

	var user model.UserItem
	if err := attributevalue.UnmarshalMap(items[0], &user); err != nil {
		return model.UserItem{}, err
	}
	return user, nil
}

func (r *DynamoRepository) SetOperator(ctx context.Context, agentID string, operator bool) error {
	err := r.db.Client.ConditionalUpdate(ctx, database.Update{
		Table:      model.UsersTable,
		PK:         agentID,
		Expression: "SET #operator = :operator",
		Condition:  "attribute_exists(pk)",
		Values: map[string]types.AttributeValue{
			":operator": &types.AttributeValueMemberBOOL{Value: operator},
		},
		Names: map[string]string{"#operator": "operator"},
	})
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

// SetLivechatStatus always writes status and clears the system-modified flag, so a manual
// choice takes ownership of the status even when the value is unchanged. It reports 1 when
// either attribute differed from what was stored.
func (r *DynamoRepository) SetLivechatStatus(ctx context.Context, agentID string, status model.AgentStatus) (int, error) {
	old, err := r.db.Client.UpdateReturningOld(ctx, database.Update{
		Table:      model.UsersTable,
		PK:         agentID,
		Expression: "SET #statusLivechat = :status, #systemModified = :false",
		Condition:  "attribute_exists(pk)",
		Values: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":false":  &types.AttributeValueMemberBOOL{Value: false},
		},
		Names: map[string]string{
			"#statusLivechat": "statusLivechat",
			"#systemModified": "livechatStatusSystemModified",
		},
	})
	if err != nil {
		if errors.Is(err, database.ErrConditionFailed) {
			return 0, nil
		}
		return 0, err
	}
	return statusChanged(old, status)
}

// statusChanged compares the attributes returned as UPDATED_OLD with the values just written.
func statusChanged(old map[string]types.AttributeValue, status model.AgentStatus) (int, error) {
	var prev struct {
		StatusLivechat model.AgentStatus `dynamodbav:"statusLivechat"`
		SystemModified bool              `dynamodbav:"livechatStatusSystemModified"`
	}
	if err := attributevalue.UnmarshalMap(old, &prev); err != nil {
		return 0, fmt.Errorf("unmarshal previous status: %w", err)
	}
	if prev.StatusLivechat == status && !prev.SystemModified {
		return 0, nil
	}
	return 1, nil
}

// SetLivechatStatusIf writes status and fields only when every condition attribute equals
// its expected value on the stored record.
func (r *DynamoRepository) SetLivechatStatusIf(ctx context.Context, agentID string, status model.AgentStatus, condition StatusCondition, fields map[string]any) (int, error) {
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(status)},
	}
	names := map[string]string{"#statusLivechat": "statusLivechat"}

	sets := []string{"#statusLivechat = :status"}
	for i, key := range sortedKeys(fields) {
		if key == "statusLivechat" {
			continue
		}
		av, err := attributevalue.Marshal(fields[key])
		if err != nil {
			return 0, fmt.Errorf("marshal field %s: %w", key, err)
		}
		name := fmt.Sprintf("#f%d", i)
		value := fmt.Sprintf(":f%d", i)
		names[name] = key
		values[value] = av
		sets = append(sets, name+" = "+value)
	}

	conds := []string{"attribute_exists(pk)"}
	for i, key := range sortedKeys(map[string]any(condition)) {
		av, err := attributevalue.Marshal(condition[key])
		if err != nil {
			return 0, fmt.Errorf("marshal condition %s: %w", key, err)
		}
		name := fmt.Sprintf("#c%d", i)
		value := fmt.Sprintf(":c%d", i)
		names[name] = key
		values[value] = av
		conds = append(conds, name+" = "+value)
	}

	err := r.db.Client.ConditionalUpdate(ctx, database.Update{
		Table:      model.UsersTable,
		PK:         agentID,
		Expression: "SET " + strings.Join(sets, ", "),
		Condition:  strings.Join(conds, " AND "),
		Values:     values,
		Names:      names,
	})
	if err != nil {
		if errors.Is(err, database.ErrConditionFailed) {
			return 0, nil
		}
		return 0, err
	}
	return 1, nil
}

func (r *DynamoRepository) HasRole(ctx context.Context, agentID, role string) (bool, error) {
	user, err := r.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.HasRole(role), nil
}

func (r *DynamoRepository) IsAgentOnline(ctx context.Context, agentID string) (bool, error) {
	user, err := r.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.OnlineAgent(), nil
}

// AnyAgentOnline reports whether any livechat agent anywhere is online and available.
func (r *DynamoRepository) AnyAgentOnline(ctx context.Context) (bool, error) {
	users, err := r.scanLiveUsers(ctx, model.RoleLivechatAgent)
	if err != nil {
		return false, err
	}
	return len(users) > 0, nil
}

func (r *DynamoRepository) scanLiveUsers(ctx context.Context, role string) ([]model.UserItem, error) {
	items, err := r.db.Client.Find(ctx, database.Lookup{
		Table:  model.UsersTable,
		Filter: "contains(#roles, :role) AND #statusLivechat = :available AND #status <> :offline",
		Values: map[string]types.AttributeValue{
			":role":      &types.AttributeValueMemberS{Value: role},
			":available": &types.AttributeValueMemberS{Value: string(model.AgentStatusAvailable)},
			":offline":   &types.AttributeValueMemberS{Value: string(model.UserStatusOffline)},
		},
		Names: map[string]string{
			"#roles":          "roles",
			"#statusLivechat": "statusLivechat",
			"#status":         "status",
		},
	})
	if err != nil {
		return nil, err
	}
	return unmarshalUsers(items)
}

func (r *DynamoRepository) GetDepartment(ctx context.Context, departmentID string) (model.DepartmentItem, error) {
	var department model.DepartmentItem
	if err := r.db.Client.GetItem(ctx, model.DepartmentsTable, departmentID, &department); err != nil {
		if isNotFound(err) {
			return model.DepartmentItem{}, ErrNotFound
		}
		return model.DepartmentItem{}, err
	}
	return department, nil
}

// departmentUsers loads the user records of every agent linked to departmentID.
func (r *DynamoRepository) departmentUsers(ctx context.Context, departmentID string) ([]model.UserItem, error) {
	values := map[string]types.AttributeValue{
		":departmentId": &types.AttributeValueMemberS{Value: departmentID},
	}
	items, err := r.db.Client.Find(ctx, database.Lookup{
		Table:        model.DepartmentAgentsTable,
		Index:        model.IndexAgentsByDepartment,
		KeyCondition: "departmentId = :departmentId",
		Values:       values,
	})
	if err != nil {
		return nil, err
	}

	agentIDs := make([]string, 0, len(items))
	for _, item := range items {
		var link model.DepartmentAgentItem
		if err := attributevalue.UnmarshalMap(item, &link); err != nil {
			return nil, err
		}
		agentIDs = append(agentIDs, link.AgentID)
	}

	userItems, err := r.db.Client.BatchGet(ctx, model.UsersTable, agentIDs)
	if err != nil {
		return nil, err
	}
	return unmarshalUsers(userItems)
}

func (r *DynamoRepository) AnyAgentOnlineInDepartment(ctx context.Context, departmentID string) (bool, error) {
	users, err := r.departmentUsers(ctx, departmentID)
	if err != nil {
		return false, err
	}
	for _, user := range users {
		if user.OnlineAgent() {
			return true, nil
		}
	}
	return false, nil
}

func (r *DynamoRepository) CountOnlineBots(ctx context.Context, departmentID string) (int, error) {
	if departmentID == "" {
		bots, err := r.scanLiveUsers(ctx, model.RoleBot)
		if err != nil {
			return 0, err
		}
		return len(bots), nil
	}

	users, err := r.departmentUsers(ctx, departmentID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, user := range users {
		if user.HasRole(model.RoleBot) && user.Status != model.UserStatusOffline && user.StatusLivechat == model.AgentStatusAvailable {
			count++
		}
	}
	return count, nil
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	return r.db.Client.PutItem(ctx, model.MessagesTable, message)
}

// ListRoomHistory returns the transfer-history entries of a room, oldest first.
func (r *DynamoRepository) ListRoomHistory(ctx context.Context, roomID string, limit int) ([]model.MessageItem, error) {
	values := map[string]types.AttributeValue{
		":roomId": &types.AttributeValueMemberS{Value: roomID},
		":type":   &types.AttributeValueMemberS{Value: model.MessageTypeTransferHistory},
	}
	names := map[string]string{"#t": "t"}

	items, err := r.db.Client.Find(ctx, database.Lookup{
		Table:        model.MessagesTable,
		Index:        model.IndexMessagesByRoom,
		KeyCondition: "roomId = :roomId",
		Filter:       "#t = :type",
		Values:       values,
		Names:        names,
	})
	if err != nil {
		return nil, err
	}

	messages := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	sort.Slice(messages, func(i, j int) bool {
		return parseTime(messages[i].CreatedAt).Before(parseTime(messages[j].CreatedAt))
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// DepartmentView adapts the repository to the Departments interface, whose AnyAgentOnline
// takes a department while Directory's does not.
type DepartmentView struct {
	Repo *DynamoRepository
}

func (d DepartmentView) GetDepartment(ctx context.Context, departmentID string) (model.DepartmentItem, error) {
	return d.Repo.GetDepartment(ctx, departmentID)
}

func (d DepartmentView) AnyAgentOnline(ctx context.Context, departmentID string) (bool, error) {
	return d.Repo.AnyAgentOnlineInDepartment(ctx, departmentID)
}

func (d DepartmentView) CountOnlineBots(ctx context.Context, departmentID string) (int, error) {
	return d.Repo.CountOnlineBots(ctx, departmentID)
}

func unmarshalUsers(items []map[string]types.AttributeValue) ([]model.UserItem, error) {
	users := make([]model.UserItem, 0, len(items))
	for _, item := range items {
		var user model.UserItem
		if err := attributevalue.UnmarshalMap(item, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrItemNotFound)
}

func parseTime(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
