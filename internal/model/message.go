package model

const MessageTypeTransferHistory = "livechat_transfer_history"

type TransferScope string

const (
	TransferScopeDepartment TransferScope = "department"
	TransferScopeAgent      TransferScope = "agent"
	TransferScopeQueue      TransferScope = "queue"
)

type UserType string

const (
	UserTypeAgent   UserType = "agent"
	UserTypeVisitor UserType = "visitor"
	UserTypeSystem  UserType = "system"
)

type TransferActor struct {
	ID       string   `dynamodbav:"id" json:"id"`
	Username string   `dynamodbav:"username" json:"username"`
	Name     string   `dynamodbav:"name,omitempty" json:"name,omitempty"`
	UserType UserType `dynamodbav:"userType" json:"userType"`
}

type TransferTarget struct {
	ID       string `dynamodbav:"id" json:"id"`
	Username string `dynamodbav:"username,omitempty" json:"username,omitempty"`
	Name     string `dynamodbav:"name,omitempty" json:"name,omitempty"`
}

// TransferHistory is the append-only audit payload attached to a transfer-history message.
type TransferHistory struct {
	TransferredBy      TransferActor   `dynamodbav:"transferredBy" json:"transferredBy"`
	Ts                 string          `dynamodbav:"ts" json:"ts"`
	Scope              TransferScope   `dynamodbav:"scope" json:"scope"`
	Comment            string          `dynamodbav:"comment,omitempty" json:"comment,omitempty"`
	PreviousDepartment string          `dynamodbav:"previousDepartment,omitempty" json:"previousDepartment,omitempty"`
	NextDepartment     *DepartmentItem `dynamodbav:"nextDepartment,omitempty" json:"nextDepartment,omitempty"`
	TransferredTo      *TransferTarget `dynamodbav:"transferredTo,omitempty" json:"transferredTo,omitempty"`
}

type MessageItem struct {
	PK           string           `dynamodbav:"pk" json:"-"`
	RoomID       string           `dynamodbav:"roomId" json:"roomId"`
	MessageID    string           `dynamodbav:"messageId" json:"messageId"`
	Type         string           `dynamodbav:"t,omitempty" json:"t,omitempty"`
	SenderType   string           `dynamodbav:"senderType" json:"senderType"`
	SenderID     string           `dynamodbav:"senderId" json:"senderId"`
	SenderName   string           `dynamodbav:"senderName,omitempty" json:"senderName,omitempty"`
	Body         string           `dynamodbav:"body" json:"body"`
	TransferData *TransferHistory `dynamodbav:"transferData,omitempty" json:"transferData,omitempty"`
	CreatedAt    string           `dynamodbav:"createdAt" json:"createdAt"`
}

func MessagePK(roomID, messageID string) string {
	return roomID + "#" + messageID
}
