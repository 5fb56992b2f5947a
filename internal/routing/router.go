// Package routing moves rooms between agents and the waiting queue.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"livechat-backend/internal/model"
	"livechat-backend/internal/service/livechat"
)

// Store is the persistence the router writes through.
type Store interface {
	GetAgent(ctx context.Context, agentID string) (model.UserItem, error)
	GetInquiryByRoom(ctx context.Context, roomID string) (model.InquiryItem, error)
	SetRoomServedBy(ctx context.Context, roomID string, servedBy model.ServedBy, departmentID string) error
	ClearRoomServedBy(ctx context.Context, roomID, departmentID string) error
	SetInquiryStatus(ctx context.Context, inquiryID string, status model.InquiryStatus, departmentID string) error
}

type Router struct {
	store    Store
	recorder *livechat.HistoryRecorder
	notifier livechat.Notifier
	log      *slog.Logger
	now      func() time.Time
}

func New(store Store, recorder *livechat.HistoryRecorder, notifier livechat.Notifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:    store,
		recorder: recorder,
		notifier: notifier,
		log:      logger,
		now:      time.Now,
	}
}

// TransferRoom hands the room to data.TransferredTo when set, otherwise sends it back to the
// queue of data.DepartmentID. It returns false when neither target can take the room.
func (r *Router) TransferRoom(ctx context.Context, room model.RoomItem, visitor model.VisitorItem, data livechat.TransferData) (bool, error) {
	switch {
	case data.TransferredTo != nil && data.TransferredTo.ID != "":
		return r.transferToAgent(ctx, room, data)
	case data.DepartmentID != "":
		return r.transferToDepartment(ctx, room, data)
	default:
		return false, nil
	}
}

func (r *Router) transferToAgent(ctx context.Context, room model.RoomItem, data livechat.TransferData) (bool, error) {
	target := data.TransferredTo
	if room.ServedBy != nil && room.ServedBy.ID == target.ID {
		return false, nil
	}

	agent, err := r.store.GetAgent(ctx, target.ID)
	if err != nil {
		if errors.Is(err, livechat.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load target agent: %w", err)
	}
	if !agent.OnlineAgent() {
		r.log.Info("transfer target is not available",
			slog.String("room_id", room.RoomID),
			slog.String("agent_id", agent.UserID),
		)
		return false, nil
	}

	servedBy := model.ServedBy{
		ID:       agent.UserID,
		Username: agent.Username,
		Ts:       r.now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.SetRoomServedBy(ctx, room.RoomID, servedBy, data.DepartmentID); err != nil {
		return false, fmt.Errorf("assign room: %w", err)
	}

	inquiry, err := r.store.GetInquiryByRoom(ctx, room.RoomID)
	switch {
	case err == nil:
		if err := r.store.SetInquiryStatus(ctx, inquiry.InquiryID, model.InquiryStatusTaken, data.DepartmentID); err != nil {
			return false, fmt.Errorf("take inquiry: %w", err)
		}
	case !errors.Is(err, livechat.ErrNotFound):
		return false, fmt.Errorf("load inquiry: %w", err)
	}

	data.TransferredTo = &model.TransferTarget{ID: agent.UserID, Username: agent.Username, Name: agent.Name}
	if err := r.recorder.Record(ctx, room, data); err != nil {
		return false, err
	}

	r.notify(ctx, room.RoomID, map[string]any{"type": "agentData", "servedBy": servedBy})
	return true, nil
}

func (r *Router) transferToDepartment(ctx context.Context, room model.RoomItem, data livechat.TransferData) (bool, error) {
	inquiry, err := r.store.GetInquiryByRoom(ctx, room.RoomID)
	if err != nil {
		if errors.Is(err, livechat.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load inquiry: %w", err)
	}

	if _, err := r.requeue(ctx, inquiry, data.DepartmentID); err != nil {
		return false, err
	}
	if err := r.recorder.Record(ctx, room, data); err != nil {
		return false, err
	}
	return true, nil
}

// UnassignAgent detaches the serving agent from the inquiry's room and queues the inquiry.
// History is left to the caller.
func (r *Router) UnassignAgent(ctx context.Context, inquiry model.InquiryItem, departmentID string) (bool, error) {
	return r.requeue(ctx, inquiry, departmentID)
}

func (r *Router) requeue(ctx context.Context, inquiry model.InquiryItem, departmentID string) (bool, error) {
	if err := r.store.ClearRoomServedBy(ctx, inquiry.RoomID, departmentID); err != nil {
		if errors.Is(err, livechat.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("unassign room: %w", err)
	}
	if err := r.store.SetInquiryStatus(ctx, inquiry.InquiryID, model.InquiryStatusQueued, departmentID); err != nil {
		if errors.Is(err, livechat.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("queue inquiry: %w", err)
	}

	r.notify(ctx, inquiry.RoomID, map[string]any{"type": "queued", "departmentId": departmentID})
	return true, nil
}

func (r *Router) notify(ctx context.Context, roomID string, payload map[string]any) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyRoom(ctx, roomID, livechat.EventOmnichannelRoom, payload); err != nil {
		r.log.Warn("room notification failed",
			slog.String("room_id", roomID),
			slog.Any("error", err),
		)
	}
}
