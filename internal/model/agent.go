package model

// AgentStatus is the livechat-specific availability of an agent, distinct from UserStatus.
type AgentStatus string

const (
	AgentStatusAvailable    AgentStatus = "available"
	AgentStatusNotAvailable AgentStatus = "not-available"
)

func (s AgentStatus) Valid() bool {
	return s == AgentStatusAvailable || s == AgentStatusNotAvailable
}

// UserStatus is the generic presence of a user.
type UserStatus string

const (
	UserStatusOnline  UserStatus = "online"
	UserStatusAway    UserStatus = "away"
	UserStatusBusy    UserStatus = "busy"
	UserStatusOffline UserStatus = "offline"
)

const (
	RoleLivechatAgent = "livechat-agent"
	RoleBot           = "bot"
)

type UserItem struct {
	PK                           string      `dynamodbav:"pk" json:"-"`
	UserID                       string      `dynamodbav:"userId" json:"id"`
	Username                     string      `dynamodbav:"username" json:"username"`
	Name                         string      `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Roles                        []string    `dynamodbav:"roles,stringset,omitempty" json:"roles,omitempty"`
	Status                       UserStatus  `dynamodbav:"status,omitempty" json:"status,omitempty"`
	StatusLivechat               AgentStatus `dynamodbav:"statusLivechat,omitempty" json:"statusLivechat,omitempty"`
	LivechatStatusSystemModified bool        `dynamodbav:"livechatStatusSystemModified,omitempty" json:"livechatStatusSystemModified,omitempty"`
	Operator                     bool        `dynamodbav:"operator,omitempty" json:"operator,omitempty"`
	CreatedAt                    string      `dynamodbav:"createdAt" json:"createdAt"`
}

func (u UserItem) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// OnlineAgent reports whether the user is reachable as a livechat agent right now.
func (u UserItem) OnlineAgent() bool {
	return u.Status != "" && u.Status != UserStatusOffline &&
		u.StatusLivechat == AgentStatusAvailable &&
		u.HasRole(RoleLivechatAgent)
}

type DepartmentItem struct {
	PK                        string `dynamodbav:"pk" json:"-"`
	DepartmentID              string `dynamodbav:"departmentId" json:"id"`
	Name                      string `dynamodbav:"name" json:"name"`
	Enabled                   bool   `dynamodbav:"enabled" json:"enabled"`
	FallbackForwardDepartment string `dynamodbav:"fallbackForwardDepartment,omitempty" json:"fallbackForwardDepartment,omitempty"`
}

type DepartmentAgentItem struct {
	PK           string `dynamodbav:"pk" json:"-"`
	DepartmentID string `dynamodbav:"departmentId" json:"departmentId"`
	AgentID      string `dynamodbav:"agentId" json:"agentId"`
	Username     string `dynamodbav:"username" json:"username"`
}

func DepartmentAgentPK(departmentID, agentID string) string {
	return departmentID + "#" + agentID
}
