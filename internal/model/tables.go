package model

const (
	RoomsTable            = "LivechatRooms"
	InquiriesTable        = "LivechatInquiries"
	UsersTable            = "Users"
	DepartmentsTable      = "LivechatDepartments"
	DepartmentAgentsTable = "LivechatDepartmentAgents"
	VisitorsTable         = "LivechatVisitors"
	MessagesTable         = "Messages"
)

const (
	IndexRoomsByServedBy    = "byServedBy"
	IndexInquiriesByRoom    = "byRoom"
	IndexUsersByUsername    = "byUsername"
	IndexAgentsByDepartment = "byDepartment"
	IndexMessagesByRoom     = "byRoom"
)
