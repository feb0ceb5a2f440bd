package app

import (
	"context"
	"fmt"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/internal/chat/repository"
	"apartment_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// ReadUseCase 將訊息標為已讀並通知房內其他連線
type ReadUseCase struct {
	roomRepo    repository.RoomRepository
	msgRepo     repository.MessageRepository
	broadcaster *Broadcaster
	events      repository.EventPublisher
}

// NewReadUseCase create ReadUseCase
func NewReadUseCase(
	roomRepo repository.RoomRepository,
	msgRepo repository.MessageRepository,
	broadcaster *Broadcaster,
	events repository.EventPublisher,
) *ReadUseCase {
	return &ReadUseCase{
		roomRepo:    roomRepo,
		msgRepo:     msgRepo,
		broadcaster: broadcaster,
		events:      events,
	}
}

// MarkAsRead websocket path; the caller already joined the room so only the calling
// connection is left out of the notice
func (uc *ReadUseCase) MarkAsRead(ctx context.Context, reader domain.Identity, roomID, connID string) (int64, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return uc.MarkRoomRead(ctx, reader, room, domain.Delivery{ExcludeConnID: connID})
}

// MarkRoomRead flip the reader's flags (the store brings the cached counters along)
// and send messages_read to the room minus the exclusions in notice
func (uc *ReadUseCase) MarkRoomRead(ctx context.Context, reader domain.Identity, room *domain.ChatRoom, notice domain.Delivery) (int64, error) {
	updated, err := uc.msgRepo.MarkRead(ctx, room.ID, reader.Role)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}

	notice.RoomID = room.ID
	uc.broadcaster.Broadcast(ctx, notice, domain.MessagesRead, domain.MessagesReadPayload{
		RoomID:       room.ID,
		ReaderRole:   reader.Role,
		UpdatedCount: updated,
	})

	if updated > 0 {
		ev := repository.NewChatEvent(domain.EventMessagesRead, room)
		ev.ReaderRole = reader.Role
		ev.UpdatedCount = updated
		if err := uc.events.Publish(ctx, ev); err != nil {
			logger.Log.Warn("publish messages_read", zap.String("room_id", room.ID), zap.Error(err))
		}
	}
	return updated, nil
}
