package model

type InquiryStatus string

const (
	InquiryStatusQueued InquiryStatus = "queued"
	InquiryStatusTaken  InquiryStatus = "taken"
	InquiryStatusReady  InquiryStatus = "ready"
)

// ServedBy references the agent currently assigned to a room.
type ServedBy struct {
	ID       string `dynamodbav:"id" json:"id"`
	Username string `dynamodbav:"username" json:"username"`
	Ts       string `dynamodbav:"ts,omitempty" json:"ts,omitempty"`
}

type VisitorRef struct {
	ID       string `dynamodbav:"id" json:"id"`
	Token    string `dynamodbav:"token,omitempty" json:"token,omitempty"`
	Username string `dynamodbav:"username,omitempty" json:"username,omitempty"`
	Status   string `dynamodbav:"status,omitempty" json:"status,omitempty"`
}

type RoomItem struct {
	PK            string     `dynamodbav:"pk" json:"-"`
	RoomID        string     `dynamodbav:"roomId" json:"roomId"`
	Open          bool       `dynamodbav:"open" json:"open"`
	OnHold        bool       `dynamodbav:"onHold" json:"onHold"`
	ServedBy      *ServedBy  `dynamodbav:"servedBy,omitempty" json:"servedBy,omitempty"`
	ServedByID    string     `dynamodbav:"servedById,omitempty" json:"-"`
	DepartmentID  string     `dynamodbav:"departmentId,omitempty" json:"departmentId,omitempty"`
	Visitor       VisitorRef `dynamodbav:"v" json:"v"`
	CreatedAt     string     `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt     string     `dynamodbav:"updatedAt" json:"updatedAt"`
	LastMessageAt string     `dynamodbav:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
}

// InquiryItem is the queue-side record of a room; at most one per open room.
type InquiryItem struct {
	PK           string        `dynamodbav:"pk" json:"-"`
	InquiryID    string        `dynamodbav:"inquiryId" json:"inquiryId"`
	RoomID       string        `dynamodbav:"roomId" json:"roomId"`
	Status       InquiryStatus `dynamodbav:"status" json:"status"`
	DepartmentID string        `dynamodbav:"departmentId,omitempty" json:"departmentId,omitempty"`
	Visitor      VisitorRef    `dynamodbav:"v" json:"v"`
	QueuedAt     string        `dynamodbav:"queuedAt,omitempty" json:"queuedAt,omitempty"`
	TakenAt      string        `dynamodbav:"takenAt,omitempty" json:"takenAt,omitempty"`
	UpdatedAt    string        `dynamodbav:"updatedAt" json:"updatedAt"`
}

type VisitorItem struct {
	PK           string `dynamodbav:"pk" json:"-"`
	VisitorID    string `dynamodbav:"visitorId" json:"visitorId"`
	Token        string `dynamodbav:"token,omitempty" json:"token,omitempty"`
	Username     string `dynamodbav:"username,omitempty" json:"username,omitempty"`
	Name         string `dynamodbav:"name,omitempty" json:"name,omitempty"`
	DepartmentID string `dynamodbav:"departmentId,omitempty" json:"departmentId,omitempty"`
	Disabled     bool   `dynamodbav:"disabled,omitempty" json:"disabled,omitempty"`
	CreatedAt    string `dynamodbav:"createdAt" json:"createdAt"`
	LastSeenAt   string `dynamodbav:"lastSeenAt,omitempty" json:"lastSeenAt,omitempty"`
}
