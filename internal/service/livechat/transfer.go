package livechat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"livechat-backend/internal/model"
)

type TransferDeps struct {
	Store       ConversationStore
	Directory   Directory
	Departments Departments
	Router      Router
	Recorder    *HistoryRecorder
}

// TransferCoordinator moves rooms between agents, departments and the queue.
type TransferCoordinator struct {
	store       ConversationStore
	directory   Directory
	departments Departments
	router      Router
	recorder    *HistoryRecorder
	hooks       Hooks
	log         *slog.Logger
	now         func() time.Time
}

func NewTransferCoordinator(deps TransferDeps, opts ...Option) *TransferCoordinator {
	o := applyOptions(opts)
	return &TransferCoordinator{
		store:       deps.Store,
		directory:   deps.Directory,
		departments: deps.Departments,
		router:      deps.Router,
		recorder:    deps.Recorder,
		hooks:       o.Hooks,
		log:         o.Logger,
		now:         o.Now,
	}
}

// Transfer validates the room and destination department, then hands the move to the router.
func (c *TransferCoordinator) Transfer(ctx context.Context, room model.RoomItem, visitor model.VisitorItem, data TransferData) (bool, error) {
	if room.OnHold {
		transfersTotal.WithLabelValues("rejected").Inc()
		return false, newError(ErrorCodePreconditionFailed, ReasonRoomOnHold, "room is on hold", nil)
	}

	data.DepartmentID = strings.TrimSpace(data.DepartmentID)
	if data.DepartmentID != "" {
		department, err := c.departments.GetDepartment(ctx, data.DepartmentID)
		if err != nil {
			transfersTotal.WithLabelValues("rejected").Inc()
			if errors.Is(err, ErrNotFound) {
				return false, newError(ErrorCodeNotFound, ReasonInvalidDepartment, "department not found", err)
			}
			return false, dependencyError("failed to load department", err)
		}
		data.Department = &department
	}
	if data.RoomID == "" {
		data.RoomID = room.RoomID
	}

	ok, err := c.router.TransferRoom(ctx, room, visitor, data)
	if err != nil {
		transfersTotal.WithLabelValues("error").Inc()
		return false, dependencyError("failed to transfer room", err)
	}
	if ok {
		transfersTotal.WithLabelValues("transferred").Inc()
	} else {
		transfersTotal.WithLabelValues("declined").Inc()
	}
	return ok, nil
}

// ForwardOpenChats transfers every open room served by agentID to its visitor's department.
// Rooms are handled one by one and a failing room never stops the rest.
func (c *TransferCoordinator) ForwardOpenChats(ctx context.Context, agentID string) (ForwardReport, error) {
	var report ForwardReport

	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return report, newError(ErrorCodeInvalidInput, "", "agent id is required", nil)
	}

	agent, err := c.directory.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return report, newError(ErrorCodeNotFound, ReasonInvalidUser, "agent not found", err)
		}
		return report, dependencyError("failed to load agent", err)
	}

	rooms, err := c.store.ListOpenRoomsByAgent(ctx, agentID)
	if err != nil {
		return report, dependencyError("failed to list open rooms", err)
	}

	for _, room := range rooms {
		report.Attempted++
		outcome := c.forwardRoom(ctx, agent, room)
		forwardedRoomsTotal.WithLabelValues(outcome).Inc()
		switch outcome {
		case "transferred":
			report.Transferred++
		case "skipped":
			report.Skipped++
		case "declined":
			report.Declined++
		default:
			report.Failed++
		}
	}

	c.log.Info("forwarded open chats",
		slog.String("agent_id", agentID),
		slog.Int("attempted", report.Attempted),
		slog.Int("transferred", report.Transferred),
		slog.Int("skipped", report.Skipped),
		slog.Int("declined", report.Declined),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (c *TransferCoordinator) forwardRoom(ctx context.Context, agent model.UserItem, room model.RoomItem) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("forward room panicked", slog.String("room_id", room.RoomID), slog.Any("panic", r))
			outcome = "failed"
		}
	}()

	visitor, err := c.store.GetVisitor(ctx, room.Visitor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "skipped"
		}
		c.log.Error("forward room: visitor lookup failed",
			slog.String("room_id", room.RoomID),
			slog.String("visitor_id", room.Visitor.ID),
			slog.Any("error", err),
		)
		return "failed"
	}
	if visitor.Disabled {
		return "skipped"
	}

	by := NewTransferredBy(agent, room)
	ok, err := c.Transfer(ctx, room, visitor, TransferData{
		RoomID:        room.RoomID,
		TransferredBy: &by,
		DepartmentID:  visitor.DepartmentID,
	})
	if err != nil {
		c.log.Error("forward room: transfer failed",
			slog.String("room_id", room.RoomID),
			slog.String("agent_id", agent.UserID),
			slog.Any("error", err),
		)
		return "failed"
	}
	if !ok {
		return "declined"
	}
	return "transferred"
}

// ReturnRoomAsInquiry detaches the serving agent and puts the room back in the queue.
// It returns false without side effects when the room has no agent or no inquiry.
//
// The history entry is written before the router unassigns the agent and is not rolled
// back if unassignment fails; the returned error carries the last completed SagaStage.
func (c *TransferCoordinator) ReturnRoomAsInquiry(ctx context.Context, room model.RoomItem, departmentID string, overrides *TransferData) (bool, error) {
	if !room.Open {
		return false, newError(ErrorCodePreconditionFailed, ReasonRoomClosed, "room is closed", nil)
	}
	if room.OnHold {
		return false, newError(ErrorCodePreconditionFailed, ReasonRoomOnHold, "room is on hold", nil)
	}
	if room.ServedBy == nil || room.ServedBy.ID == "" {
		return false, nil
	}

	agent, err := c.directory.GetAgent(ctx, room.ServedBy.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, newError(ErrorCodeNotFound, ReasonInvalidUser, "serving agent not found", err)
		}
		return false, dependencyError("failed to load serving agent", err)
	}

	inquiry, err := c.store.GetInquiryByRoom(ctx, room.RoomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, dependencyError("failed to load inquiry", err)
	}

	departmentID = strings.TrimSpace(departmentID)
	by := NewTransferredBy(agent, room)
	data := mergeTransferData(TransferData{
		RoomID:        room.RoomID,
		Scope:         model.TransferScopeQueue,
		DepartmentID:  departmentID,
		TransferredBy: &by,
	}, overrides)

	stage := StageValidated
	if err := c.returnToQueue(ctx, room, inquiry, data, departmentID, &stage); err != nil {
		returnsToQueueTotal.WithLabelValues("failed", string(stage)).Inc()
		c.log.Error("return room to queue failed",
			slog.String("room_id", room.RoomID),
			slog.String("inquiry_id", inquiry.InquiryID),
			slog.String("agent_id", agent.UserID),
			slog.String("department_id", departmentID),
			slog.String("stage", string(stage)),
			slog.Any("error", err),
		)
		return false, newError(ErrorCodeDependencyFailure, ReasonReturnToQueueFailed, "failed to return room to queue",
			&SagaFailure{RoomID: room.RoomID, Stage: stage, Err: err})
	}
	returnsToQueueTotal.WithLabelValues("returned", string(stage)).Inc()

	c.hooks.Fire(ctx, HookRoomReturnedQueue, map[string]any{
		"room":         room,
		"inquiryId":    inquiry.InquiryID,
		"departmentId": departmentID,
	})
	return true, nil
}

func (c *TransferCoordinator) returnToQueue(ctx context.Context, room model.RoomItem, inquiry model.InquiryItem, data TransferData, departmentID string, stage *SagaStage) error {
	if err := c.recorder.Record(ctx, room, data); err != nil {
		return err
	}
	*stage = StageHistoryRecorded

	ok, err := c.router.UnassignAgent(ctx, inquiry, departmentID)
	if err != nil {
		return err
	}
	if !ok {
		c.log.Warn("router did not unassign agent",
			slog.String("room_id", room.RoomID),
			slog.String("inquiry_id", inquiry.InquiryID),
		)
	}
	*stage = StageUnassigned
	return nil
}
