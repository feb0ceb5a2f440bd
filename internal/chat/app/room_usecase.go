package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/internal/chat/repository"
	"apartment_chat_service/pkg/config"
	errprocess "apartment_chat_service/pkg/err"
	"apartment_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// RoomUseCase 聊天室查詢與建立 (history / bootstrap)
type RoomUseCase struct {
	roomRepo repository.RoomRepository
	msgRepo  repository.MessageRepository
	dir      repository.DirectoryRepository
	access   *repository.Access
	reads    *ReadUseCase
	events   repository.EventPublisher
	cfg      config.RoomConfig
}

// NewRoomUseCase create RoomUseCase
func NewRoomUseCase(
	roomRepo repository.RoomRepository,
	msgRepo repository.MessageRepository,
	dir repository.DirectoryRepository,
	reads *ReadUseCase,
	events repository.EventPublisher,
	cfg config.RoomConfig,
) *RoomUseCase {
	cfg.Defaults()
	return &RoomUseCase{
		roomRepo: roomRepo,
		msgRepo:  msgRepo,
		dir:      dir,
		access:   repository.NewAccess(roomRepo, dir),
		reads:    reads,
		events:   events,
		cfg:      cfg,
	}
}

// Authorize room exists and the caller may act on it
func (uc *RoomUseCase) Authorize(ctx context.Context, id domain.Identity, roomID string) (*domain.ChatRoom, error) {
	return uc.access.AuthorizeRoom(ctx, roomID, id)
}

// GetRoomList rooms of the admin's apartment, most recently active first
func (uc *RoomUseCase) GetRoomList(ctx context.Context, id domain.Identity) ([]domain.ChatRoom, error) {
	if err := uc.access.AuthorizeApartmentAdmin(ctx, id); err != nil {
		return nil, err
	}
	return uc.roomRepo.ListByApartment(ctx, id.ApartmentID)
}

// GetMyRoom find-or-create the resident's room
func (uc *RoomUseCase) GetMyRoom(ctx context.Context, id domain.Identity) (*domain.ChatRoom, error) {
	if !id.IsResident() {
		return nil, fmt.Errorf("%w: resident only", domain.ErrForbidden)
	}
	resident := domain.Resident{UserID: id.UserID, ApartmentID: id.ApartmentID}
	if r, err := uc.dir.FindResident(ctx, id.UserID); err == nil {
		resident = *r
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	return uc.findOrCreate(ctx, resident)
}

// CreateRoomForResident admin opens a conversation with a resident of its apartment
func (uc *RoomUseCase) CreateRoomForResident(ctx context.Context, id domain.Identity, residentID string) (*domain.ChatRoom, error) {
	if residentID == "" {
		return nil, errprocess.Wrap(domain.ErrInvalidInput, "residentId is required")
	}
	if err := uc.access.AuthorizeApartmentAdmin(ctx, id); err != nil {
		return nil, err
	}
	resident, err := uc.dir.FindResident(ctx, residentID)
	if err != nil {
		return nil, err
	}
	if resident.ApartmentID != id.ApartmentID {
		return nil, fmt.Errorf("%w: resident %s is not in apartment %s", domain.ErrForbidden, residentID, id.ApartmentID)
	}
	return uc.findOrCreate(ctx, *resident)
}

func (uc *RoomUseCase) findOrCreate(ctx context.Context, resident domain.Resident) (*domain.ChatRoom, error) {
	room, err := uc.roomRepo.FindByResident(ctx, resident.UserID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	room = domain.NewChatRoom(resident.ApartmentID, resident.UserID, resident.Name, time.Now().UTC())
	err = uc.roomRepo.CreateRoom(ctx, room)
	if errors.Is(err, repository.ErrRoomExists) {
		// 同時建立，以先建立者為準
		return uc.roomRepo.FindByResident(ctx, resident.UserID)
	}
	if err != nil {
		return nil, err
	}

	logger.Log.Info("chat room created", zap.String("room_id", room.ID), zap.String("resident_id", resident.UserID))
	if err := uc.events.Publish(ctx, repository.NewChatEvent(domain.EventRoomCreated, room)); err != nil {
		logger.Log.Warn("publish room_created", zap.String("room_id", room.ID), zap.Error(err))
	}
	return room, nil
}

// GetRoomDetail mark the caller's incoming messages read, then return the room and its newest page
func (uc *RoomUseCase) GetRoomDetail(ctx context.Context, id domain.Identity, roomID string, pageSize int) (*domain.RoomDetail, error) {
	room, err := uc.Authorize(ctx, id, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.reads.MarkRoomRead(ctx, id, room, domain.Delivery{ExcludeUserID: id.UserID}); err != nil {
		return nil, err
	}
	// 重新讀取已讀後的計數
	room, err = uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	page, err := uc.messagePage(ctx, roomID, uc.normalize(domain.PageQuery{Page: 1, PageSize: pageSize}))
	if err != nil {
		return nil, err
	}
	return &domain.RoomDetail{Room: room, Messages: page}, nil
}

// GetMessagePage newest first; page 1 equals the room detail tail
func (uc *RoomUseCase) GetMessagePage(ctx context.Context, id domain.Identity, roomID string, q domain.PageQuery) (*domain.MessagePage, error) {
	if q.Cursor < 0 {
		return nil, errprocess.Wrap(domain.ErrInvalidInput, "cursor must be positive", zap.String("room_id", roomID))
	}
	q = uc.normalize(q)
	if q.Page > maxOffset/q.PageSize {
		return nil, errprocess.Wrap(domain.ErrInvalidInput, "page is out of range", zap.String("room_id", roomID), zap.Int("page", q.Page))
	}
	if _, err := uc.Authorize(ctx, id, roomID); err != nil {
		return nil, err
	}
	return uc.messagePage(ctx, roomID, q)
}

// GetUnreadTotal unread messages addressed to the caller across its rooms
func (uc *RoomUseCase) GetUnreadTotal(ctx context.Context, id domain.Identity) (int64, error) {
	if id.IsResident() {
		room, err := uc.roomRepo.FindByResident(ctx, id.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return room.UnreadCountForResident, nil
	}

	rooms, err := uc.GetRoomList(ctx, id)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range rooms {
		total += r.UnreadCountForAdmin
	}
	return total, nil
}

// maxOffset deepest offset a page query may reach; rooms never get near it
const maxOffset = math.MaxInt32

func (uc *RoomUseCase) normalize(q domain.PageQuery) domain.PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = uc.cfg.PageSize
	}
	if q.PageSize > uc.cfg.MaxPageSize {
		q.PageSize = uc.cfg.MaxPageSize
	}
	return q
}

func (uc *RoomUseCase) messagePage(ctx context.Context, roomID string, q domain.PageQuery) (*domain.MessagePage, error) {
	total, err := uc.msgRepo.CountMessages(ctx, roomID, 0)
	if err != nil {
		return nil, err
	}
	msgs, err := uc.msgRepo.ListMessages(ctx, roomID, q.Cursor, q.Offset(), q.PageSize)
	if err != nil {
		return nil, err
	}

	var hasNext bool
	if q.Cursor > 0 {
		remaining, err := uc.msgRepo.CountMessages(ctx, roomID, q.Cursor)
		if err != nil {
			return nil, err
		}
		hasNext = remaining > int64(len(msgs))
	} else {
		hasNext = int64(q.Offset()+len(msgs)) < total
	}

	return &domain.MessagePage{
		Data:       msgs,
		Pagination: domain.NewPagination(q, total, hasNext, msgs),
	}, nil
}
