package app

import (
	"context"
	"testing"

	"livechat-backend/internal/model"
	"livechat-backend/internal/service/livechat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyStore struct{}

func (emptyStore) GetRoom(context.Context, string) (model.RoomItem, error) {
	return model.RoomItem{}, livechat.ErrNotFound
}
func (emptyStore) ListOpenRoomsByAgent(context.Context, string) ([]model.RoomItem, error) {
	return nil, nil
}
func (emptyStore) GetInquiryByRoom(context.Context, string) (model.InquiryItem, error) {
	return model.InquiryItem{}, livechat.ErrNotFound
}
func (emptyStore) GetVisitor(context.Context, string) (model.VisitorItem, error) {
	return model.VisitorItem{}, livechat.ErrNotFound
}

func TestWireBuildsEveryCoordinator(t *testing.T) {
	services := Wire(Deps{Store: emptyStore{}})

	require.NotNil(t, services.History)
	require.NotNil(t, services.Availability)
	require.NotNil(t, services.Transfers)
	require.NotNil(t, services.Status)

	_, _, err := services.LoadRoom(context.Background(), "missing")
	assert.Equal(t, livechat.ErrorCodeNotFound, livechat.CodeOf(err))

	_, err = services.Transfers.ReturnRoomAsInquiry(context.Background(), model.RoomItem{RoomID: "r1"}, "", nil)
	assert.True(t, livechat.IsReason(err, livechat.ReasonRoomClosed))
}
