package livechat

import (
	"errors"
	"fmt"
	"strings"

	"livechat-backend/internal/model"
)

// TransferData describes a requested move of a room.
type TransferData struct {
	RoomID        string
	TransferredBy *model.TransferActor
	TransferredTo *model.TransferTarget
	DepartmentID  string
	// Department is filled in by Transfer once DepartmentID has been resolved.
	Department   *model.DepartmentItem
	Scope        model.TransferScope
	Comment      string
	ClientAction bool
}

// mergeTransferData overlays every non-zero field of override onto base.
func mergeTransferData(base TransferData, override *TransferData) TransferData {
	if override == nil {
		return base
	}
	if override.RoomID != "" {
		base.RoomID = override.RoomID
	}
	if override.TransferredBy != nil {
		by := *override.TransferredBy
		base.TransferredBy = &by
	}
	if override.TransferredTo != nil {
		to := *override.TransferredTo
		base.TransferredTo = &to
	}
	if override.DepartmentID != "" {
		base.DepartmentID = override.DepartmentID
	}
	if override.Department != nil {
		base.Department = override.Department
	}
	if override.Scope != "" {
		base.Scope = override.Scope
	}
	if override.Comment != "" {
		base.Comment = override.Comment
	}
	if override.ClientAction {
		base.ClientAction = true
	}
	return base
}

// NewTransferredBy builds the actor of a transfer from a user record. The actor is a
// visitor when the user is the room's own visitor.
func NewTransferredBy(user model.UserItem, room model.RoomItem) model.TransferActor {
	userType := model.UserTypeAgent
	if room.Visitor.ID != "" && user.UserID == room.Visitor.ID {
		userType = model.UserTypeVisitor
	}
	return model.TransferActor{
		ID:       user.UserID,
		Username: user.Username,
		Name:     user.Name,
		UserType: userType,
	}
}

func validateTransferredBy(by *model.TransferActor) error {
	if by == nil {
		return errors.New("transferredBy is required")
	}
	var missing []string
	if strings.TrimSpace(by.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(by.Username) == "" {
		missing = append(missing, "username")
	}
	switch by.UserType {
	case model.UserTypeAgent, model.UserTypeVisitor, model.UserTypeSystem:
	case "":
		missing = append(missing, "userType")
	default:
		return fmt.Errorf("transferredBy.userType %q is not supported", by.UserType)
	}
	if len(missing) > 0 {
		return fmt.Errorf("transferredBy is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// resolveScope picks the explicit scope, else department when a destination department is present, else agent.
func resolveScope(data TransferData) model.TransferScope {
	if data.Scope != "" {
		return data.Scope
	}
	if data.DepartmentID != "" || data.Department != nil {
		return model.TransferScopeDepartment
	}
	return model.TransferScopeAgent
}

// ForwardReport summarises a ForwardOpenChats run. Declined counts rooms the router chose not
// to move; Failed counts rooms whose lookup or transfer returned an error.
type ForwardReport struct {
	Attempted   int
	Transferred int
	Skipped     int
	Declined    int
	Failed      int
}

// SagaStage is the last step of return-to-queue known to have completed.
type SagaStage string

const (
	StageValidated       SagaStage = "validated"
	StageHistoryRecorded SagaStage = "history-recorded"
	StageUnassigned      SagaStage = "unassigned"
)

// SagaFailure records how far a return-to-queue got before failing. A failure at
// StageHistoryRecorded means the audit entry is committed while the agent is still assigned.
type SagaFailure struct {
	RoomID string
	Stage  SagaStage
	Err    error
}

func (f *SagaFailure) Error() string {
	return fmt.Sprintf("return room %s to queue failed after stage %s: %v", f.RoomID, f.Stage, f.Err)
}

func (f *SagaFailure) Unwrap() error {
	return f.Err
}

// FailedStage reports the last completed stage of a failed return-to-queue.
func FailedStage(err error) (SagaStage, bool) {
	var failure *SagaFailure
	if errors.As(err, &failure) {
		return failure.Stage, true
	}
	return "", false
}

// UserChange is the payload of a user.updated notification.
type UserChange struct {
	ID           string         `json:"id"`
	ClientAction string         `json:"clientAction"`
	Diff         map[string]any `json:"diff"`
}
