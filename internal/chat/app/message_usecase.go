package app

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/internal/chat/repository"
	"apartment_chat_service/pkg/config"
	errprocess "apartment_chat_service/pkg/err"
	"apartment_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// SendMessageUseCase 負責處理聊天訊息
type SendMessageUseCase struct {
	roomRepo    repository.RoomRepository
	msgRepo     repository.MessageRepository
	broadcaster *Broadcaster
	events      repository.EventPublisher
	cfg         config.RoomConfig
}

// NewSendMessageUseCase init create message use case
func NewSendMessageUseCase(
	roomRepo repository.RoomRepository,
	msgRepo repository.MessageRepository,
	broadcaster *Broadcaster,
	events repository.EventPublisher,
	cfg config.RoomConfig,
) *SendMessageUseCase {
	cfg.Defaults()
	return &SendMessageUseCase{
		roomRepo:    roomRepo,
		msgRepo:     msgRepo,
		broadcaster: broadcaster,
		events:      events,
		cfg:         cfg,
	}
}

// Execute validate, persist, then fan out new_message
func (uc *SendMessageUseCase) Execute(ctx context.Context, sender domain.Identity, roomID, content string) (*domain.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errprocess.Wrap(domain.ErrInvalidInput, "content must not be empty", zap.String("room_id", roomID))
	}
	if utf8.RuneCountInString(content) > uc.cfg.MaxMessageLength {
		return nil, errprocess.Wrap(domain.ErrInvalidInput, "content is too long", zap.String("room_id", roomID))
	}

	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	msg := domain.NewChatMessage(room.ID, sender, content, time.Now().UTC())
	if err := uc.msgRepo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	uc.broadcaster.Broadcast(ctx, uc.fanout(sender, room), domain.NewMessage, msg)

	ev := repository.NewChatEvent(domain.EventMessageCreated, room)
	ev.Message = msg
	if err := uc.events.Publish(ctx, ev); err != nil {
		logger.Log.Warn("publish message_created", zap.String("room_id", room.ID), zap.Error(err))
	}
	return msg, nil
}

// fanout the room group (sender included), plus connected admins of the apartment that
// do not have the room open. Admin -> resident only with symmetric fan-out enabled.
func (uc *SendMessageUseCase) fanout(sender domain.Identity, room *domain.ChatRoom) domain.Delivery {
	d := domain.Delivery{RoomID: room.ID}
	switch {
	case sender.IsResident():
		d.ApartmentID = room.ApartmentID
		d.NotJoinedRole = domain.RoleAdmin
	case uc.cfg.SymmetricFanout:
		d.ApartmentID = room.ApartmentID
		d.NotJoinedRole = domain.RoleUser
		d.NotJoinedUserID = room.ResidentID
	}
	return d
}
