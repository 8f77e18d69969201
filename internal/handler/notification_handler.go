package handler

import (
	"errors"
	"strings"

	"skalgpt-be/internal/pkg/apperror"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/internal/pkg/serverutils"
	internalWS "skalgpt-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// NotificationHandler upgrades authenticated clients to the realtime channel
// that carries session_title_updated events.
type NotificationHandler struct {
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewNotificationHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on the handshake, so the query param comes first
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
	}

	userID, err := serverutils.ParseUserToken(tokenStr, h.jwtSecret)
	if errors.Is(err, apperror.ErrConfiguration) {
		return err
	}
	if err != nil {
		h.logger.Warn("NotificationHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID.String()})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID.String()})
	})(c)
}

// RegisterRoutes registers the realtime routes.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
