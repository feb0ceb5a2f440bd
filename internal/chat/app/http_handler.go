package app

import (
	"errors"
	"strconv"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/pkg/logger"
	"apartment_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler history / bootstrap REST API
type ChatHTTPHandler struct {
	roomUC *RoomUseCase
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(roomUC *RoomUseCase) *ChatHTTPHandler {
	return &ChatHTTPHandler{roomUC: roomUC}
}

// CreateRoomReq admin opens a room for a resident
type CreateRoomReq struct {
	ResidentID string `json:"residentId"`
}

// UnreadRes unread badge
type UnreadRes struct {
	UnreadCount int64 `json:"unreadCount"`
}

// ErrorRes error body
type ErrorRes struct {
	Error string `json:"error"`
}

// ListRooms rooms of the admin's apartment
// @Summary List chat rooms
// @Description Rooms of the caller's apartment with unread counter and last message, most recently active first
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.ChatRoom
// @Failure 401 {object} ErrorRes
// @Failure 403 {object} ErrorRes
// @Router /chat/rooms [get]
func (h *ChatHTTPHandler) ListRooms(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}
	rooms, err := h.roomUC.GetRoomList(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rooms)
}

// CreateRoom admin find-or-create a room with a resident
// @Summary Open a chat room with a resident
// @Description Admin only. Returns the resident's existing room when there is one
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRoomReq true "resident"
// @Success 200 {object} domain.ChatRoom
// @Failure 400 {object} ErrorRes
// @Failure 403 {object} ErrorRes
// @Failure 404 {object} ErrorRes
// @Router /chat/rooms [post]
func (h *ChatHTTPHandler) CreateRoom(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}
	var req CreateRoomReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	room, err := h.roomUC.CreateRoomForResident(c.UserContext(), id, req.ResidentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(room)
}

// MyRoom resident's room
// @Summary Get my chat room
// @Description Resident only. Creates the room on first access
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.ChatRoom
// @Failure 403 {object} ErrorRes
// @Router /chat/rooms/me [get]
func (h *ChatHTTPHandler) MyRoom(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}
	room, err := h.roomUC.GetMyRoom(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(room)
}

// RoomDetail room plus newest page; marks the caller's incoming messages read
// @Summary Open a chat room
// @Description Marks the caller's unread messages as read, then returns the room and its newest page (newest first)
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param roomId path string true "Room ID"
// @Param pageSize query int false "Page size"
// @Success 200 {object} domain.RoomDetail
// @Failure 400 {object} ErrorRes
// @Failure 403 {object} ErrorRes
// @Failure 404 {object} ErrorRes
// @Router /chat/rooms/{roomId} [get]
func (h *ChatHTTPHandler) RoomDetail(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}
	detail, err := h.roomUC.GetRoomDetail(c.UserContext(), id, c.Params("roomId"), c.QueryInt("pageSize", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(detail)
}

// Messages one page of history
// @Summary List messages
// @Description Newest first. Offset paging with page/pageSize, or keyset paging with cursor (seq of the oldest message already held)
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param roomId path string true "Room ID"
// @Param page query int false "Page, 1-based"
// @Param pageSize query int false "Page size"
// @Param cursor query string false "nextCursor of the previous page"
// @Success 200 {object} domain.MessagePage
// @Failure 400 {object} ErrorRes
// @Failure 403 {object} ErrorRes
// @Failure 404 {object} ErrorRes
// @Router /chat/rooms/{roomId}/messages [get]
func (h *ChatHTTPHandler) Messages(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}
	q := domain.PageQuery{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", 0),
	}
	if cur := c.Query("cursor"); cur != "" {
		q.Cursor, err = strconv.ParseInt(cur, 10, 64)
		if err != nil || q.Cursor <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid cursor"})
		}
	}
	page, err := h.roomUC.GetMessagePage(c.UserContext(), id, c.Params("roomId"), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

// Unread unread badge of the caller
// @Summary Unread total
// @Description Unread messages addressed to the caller over all of its rooms
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UnreadRes
// @Router /chat/unread [get]
func (h *ChatHTTPHandler) Unread(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}
	n, err := h.roomUC.GetUnreadTotal(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(UnreadRes{UnreadCount: n})
}

func identity(c *fiber.Ctx) (domain.Identity, error) {
	claims, ok := middlewares.ClaimsFrom(c)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return IdentityFromClaims(claims), nil
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		status = fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		status = fiber.StatusBadRequest
	}

	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		logger.Log.Error("chat api error", zap.String("path", c.Path()), zap.Error(err))
		msg = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
