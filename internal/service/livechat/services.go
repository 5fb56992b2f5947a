package livechat

import (
	"context"
	"errors"

	"livechat-backend/internal/model"
)

// TranscriptReader lists the transfer-history entries of a room.
type TranscriptReader interface {
	ListRoomHistory(ctx context.Context, roomID string, limit int) ([]model.MessageItem, error)
}

// Services bundles the coordinators together with the lookups the HTTP and CLI surfaces need to
// turn ids into records.
type Services struct {
	Store        ConversationStore
	Directory    Directory
	Transcript   TranscriptReader
	History      *HistoryRecorder
	Availability *AvailabilityResolver
	Transfers    *TransferCoordinator
	Status       *AgentStatusCoordinator
}

// LoadRoom fetches a room and its visitor, translating missing records into typed errors.
func (s *Services) LoadRoom(ctx context.Context, roomID string) (model.RoomItem, model.VisitorItem, error) {
	if roomID == "" {
		return model.RoomItem{}, model.VisitorItem{}, newError(ErrorCodeInvalidInput, "", "room id is required", nil)
	}
	room, err := s.Store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.RoomItem{}, model.VisitorItem{}, newError(ErrorCodeNotFound, "", "room not found", err)
		}
		return model.RoomItem{}, model.VisitorItem{}, dependencyError("load room", err)
	}
	if room.Visitor.ID == "" {
		return room, model.VisitorItem{}, nil
	}
	visitor, err := s.Store.GetVisitor(ctx, room.Visitor.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.RoomItem{}, model.VisitorItem{}, dependencyError("load visitor", err)
	}
	return room, visitor, nil
}

// Actor resolves the acting agent of a request into a transfer actor for the given room.
func (s *Services) Actor(ctx context.Context, agentID string, room model.RoomItem) (model.TransferActor, error) {
	agent, err := s.Directory.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.TransferActor{}, newError(ErrorCodeNotFound, ReasonInvalidUser, "agent not found", err)
		}
		return model.TransferActor{}, dependencyError("load agent", err)
	}
	return NewTransferredBy(agent, room), nil
}

// RoomHistory returns up to limit transfer-history entries of a room, oldest first.
func (s *Services) RoomHistory(ctx context.Context, roomID string, limit int) ([]model.MessageItem, error) {
	if s.Transcript == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	messages, err := s.Transcript.ListRoomHistory(ctx, roomID, limit)
	if err != nil {
		return nil, dependencyError("list room history", err)
	}
	return messages, nil
}
