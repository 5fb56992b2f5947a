package livechat

import (
	"context"
	"log/slog"
	"time"

	"livechat-backend/internal/model"

	"github.com/google/uuid"
)

// HistoryRecorder writes transfer audit entries into the room transcript.
type HistoryRecorder struct {
	sink     HistorySink
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
	dispatch Dispatcher
}

// NewHistoryRecorder builds a recorder. notifier may be nil when entries need not be pushed live.
func NewHistoryRecorder(sink HistorySink, notifier Notifier, opts ...Option) *HistoryRecorder {
	o := applyOptions(opts)
	return &HistoryRecorder{
		sink:     sink,
		notifier: notifier,
		log:      o.Logger,
		now:      o.Now,
		dispatch: o.Dispatcher,
	}
}

// Record validates the actor, then persists one transfer-history message for the room.
func (r *HistoryRecorder) Record(ctx context.Context, room model.RoomItem, data TransferData) error {
	if err := validateTransferredBy(data.TransferredBy); err != nil {
		return newError(ErrorCodeInvalidInput, ReasonInvalidTransferredBy, err.Error(), err)
	}
	if room.RoomID == "" {
		return newError(ErrorCodeInvalidInput, "", "room id is required", nil)
	}

	nowStr := r.now().UTC().Format(time.RFC3339Nano)
	history := &model.TransferHistory{
		TransferredBy:      *data.TransferredBy,
		Ts:                 nowStr,
		Scope:              resolveScope(data),
		Comment:            data.Comment,
		PreviousDepartment: room.DepartmentID,
	}
	if data.Department != nil {
		next := *data.Department
		history.NextDepartment = &next
	} else if data.DepartmentID != "" {
		history.NextDepartment = &model.DepartmentItem{DepartmentID: data.DepartmentID}
	}
	if data.TransferredTo != nil {
		to := *data.TransferredTo
		history.TransferredTo = &to
	}

	messageID := uuid.NewString()
	message := model.MessageItem{
		PK:           model.MessagePK(room.RoomID, messageID),
		RoomID:       room.RoomID,
		MessageID:    messageID,
		Type:         model.MessageTypeTransferHistory,
		SenderType:   string(data.TransferredBy.UserType),
		SenderID:     data.TransferredBy.ID,
		SenderName:   data.TransferredBy.Username,
		TransferData: history,
		CreatedAt:    nowStr,
	}

	if err := r.sink.CreateMessage(ctx, message); err != nil {
		return newError(ErrorCodeDependencyFailure, "", "failed to store transfer history", err)
	}

	if r.notifier != nil {
		r.dispatch.Dispatch(func() {
			if err := r.notifier.NotifyRoom(context.Background(), room.RoomID, EventRoomMessage, message); err != nil {
				r.log.Warn("transfer history broadcast failed",
					slog.String("room_id", room.RoomID),
					slog.Any("error", err),
				)
			}
		})
	}

	return nil
}
