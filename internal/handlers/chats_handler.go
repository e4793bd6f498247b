package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xpanvictor/ava/pkg/Logger"
	wsdevice "github.com/xpanvictor/ava/pkg/io/device/websocket"
	"github.com/xpanvictor/ava/pkg/io/registry"
	"github.com/xpanvictor/ava/pkg/io/stream"
)

// ChatsHandler streams device events to clients over SSE or WebSocket.
type ChatsHandler struct {
	registry  registry.DeviceRegistry
	keepAlive time.Duration
	upgrader  websocket.Upgrader
	logger    *Logger.Logger
}

func NewChatsHandler(reg registry.DeviceRegistry, keepAlive time.Duration, logger *Logger.Logger) *ChatsHandler {
	return &ChatsHandler{
		registry:  reg,
		keepAlive: keepAlive,
		logger:    logger,
		upgrader: websocket.Upgrader{
			// the device cookie already scopes what a client can see
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *ChatsHandler) RegisterRoutes(router gin.IRouter) {
	chats := router.Group("/chats")
	{
		chats.GET("", h.StreamSSE)
		chats.GET("/ws", h.StreamWebSocket)
	}
}

// StreamSSE holds the response open and writes one data frame per event.
//
// @Summary Subscribe to device events
// @Description Server-Sent Events stream of the device's signals and messages
// @Tags Chats
// @Produce text/event-stream
// @Success 200 "Event stream"
// @Failure 400 {object} ErrorResponse "Missing device"
// @Router /chats [get]
func (h *ChatsHandler) StreamSSE(c *gin.Context) {
	deviceID, ok := ExtractDeviceID(c)
	if !ok {
		return
	}

	sub := h.registry.Subscribe(deviceID)
	defer sub.Close()
	h.logger.Debugf("sse subscriber attached to device %s", deviceID)

	err := stream.Serve(c.Request.Context(), c.Writer, sub, h.keepAlive)
	switch {
	case errors.Is(err, stream.ErrStreamingUnsupported):
		respondError(c, err)
	case err != nil:
		h.logger.Warnf("sse stream for device %s ended: %v", deviceID, err)
	default:
		h.logger.Debugf("sse subscriber left device %s", deviceID)
	}
}

// @Summary Subscribe to device events over WebSocket
// @Tags Chats
// @Success 101 "Switching protocols"
// @Router /chats/ws [get]
func (h *ChatsHandler) StreamWebSocket(c *gin.Context) {
	deviceID, ok := ExtractDeviceID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("ws upgrade failed: %v", err)
		return
	}

	sub := h.registry.Subscribe(deviceID)
	defer sub.Close()
	h.logger.Debugf("ws subscriber attached to device %s", deviceID)

	if err := wsdevice.Serve(c.Request.Context(), conn, sub, h.keepAlive); err != nil {
		h.logger.Debugf("ws stream for device %s ended: %v", deviceID, err)
	}
}
