package router

import (
	"context"

	"apartment_chat_service/internal/chat/app"
	"apartment_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天相關的路由
// @title Apartment Chat Service API
// @version 1.0
// @description Resident and apartment admin chat: websocket gateway plus history / bootstrap API
// @host localhost:8084
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, chatHTTP *app.ChatHTTPHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", ConnectCheck)
	r.Post("/debug", DebugLogFlag)

	// 驗證失敗的連線不會升級
	r.Get("/ws", middlewares.JWTMiddleware(), upgradeOnly, websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	chat := r.Group("/chat", middlewares.JWTMiddleware())
	chat.Get("/rooms", chatHTTP.ListRooms)
	chat.Post("/rooms", chatHTTP.CreateRoom)
	chat.Get("/rooms/me", chatHTTP.MyRoom)
	chat.Get("/rooms/:roomId", chatHTTP.RoomDetail)
	chat.Get("/rooms/:roomId/messages", chatHTTP.Messages)
	chat.Get("/unread", chatHTTP.Unread)
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
