package app

import (
	"context"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/internal/chat/repository"
)

// TypingUseCase relay typing presence, nothing is stored
type TypingUseCase struct {
	dir         repository.DirectoryRepository
	broadcaster *Broadcaster
}

// NewTypingUseCase create TypingUseCase
func NewTypingUseCase(dir repository.DirectoryRepository, broadcaster *Broadcaster) *TypingUseCase {
	return &TypingUseCase{dir: dir, broadcaster: broadcaster}
}

// Execute relay to the other occupants of the room, never back to the typing user
func (uc *TypingUseCase) Execute(ctx context.Context, sender domain.Identity, roomID string, isTyping bool) {
	uc.broadcaster.Broadcast(ctx,
		domain.Delivery{RoomID: roomID, ExcludeUserID: sender.UserID},
		domain.UserTyping,
		domain.UserTypingPayload{
			RoomID:   roomID,
			UserID:   sender.UserID,
			UserName: uc.dir.DisplayName(ctx, sender.UserID),
			IsTyping: isTyping,
		},
	)
}
