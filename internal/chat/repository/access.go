package repository

import (
	"context"
	"fmt"

	"apartment_chat_service/internal/chat/domain"
)

// Access authorization predicates over rooms
type Access struct {
	rooms RoomRepository
	dir   DirectoryRepository
}

// NewAccess create Access
func NewAccess(rooms RoomRepository, dir DirectoryRepository) *Access {
	return &Access{rooms: rooms, dir: dir}
}

// AuthorizeRoom load the room and check the caller may act on it: a resident owns it,
// an admin is an approved admin of the room's apartment.
func (a *Access) AuthorizeRoom(ctx context.Context, roomID string, id domain.Identity) (*domain.ChatRoom, error) {
	if !domain.ValidRoomID(roomID) {
		return nil, fmt.Errorf("%w: malformed room id %q", domain.ErrInvalidInput, roomID)
	}
	room, err := a.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	switch id.Role {
	case domain.RoleUser:
		if room.ResidentID == id.UserID {
			return room, nil
		}
	case domain.RoleAdmin:
		if room.ApartmentID != id.ApartmentID {
			break
		}
		ok, err := a.dir.IsApprovedAdmin(ctx, id.UserID, room.ApartmentID)
		if err != nil {
			return nil, fmt.Errorf("directory lookup: %w", err)
		}
		if ok {
			return room, nil
		}
	}
	return nil, fmt.Errorf("%w: room %s", domain.ErrForbidden, roomID)
}

// AuthorizeApartmentAdmin caller administers its own apartment
func (a *Access) AuthorizeApartmentAdmin(ctx context.Context, id domain.Identity) error {
	if !id.IsAdmin() {
		return fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	ok, err := a.dir.IsApprovedAdmin(ctx, id.UserID, id.ApartmentID)
	if err != nil {
		return fmt.Errorf("directory lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: not an approved admin of apartment %s", domain.ErrForbidden, id.ApartmentID)
	}
	return nil
}
