package websocket

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/thesisflow/internal/app/auth"
	"github.com/yigit/thesisflow/internal/app/models/dto"
	"github.com/yigit/thesisflow/internal/middleware"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

// Handler for WebSocket connections
type Handler struct {
	hub      *Hub
	authz    RequestAuthorizer
	commands *MessageHandler
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authz RequestAuthorizer, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		authz:    authz,
		commands: NewMessageHandler(authz, logger),
		logger:   logger,
	}
}

// HandleConnection godoc
// @Summary Subscribe to workflow events
// @Description Upgrades to a WebSocket that streams domain events. Coordinators, administrative assistants and administrators receive every event; other actors receive events for the requests they subscribe to, either with the requestId query parameter or by sending {"type":"subscribe","requestId":N}.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param requestId query int false "Defense request to subscribe to immediately"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Not allowed to view the request"
// @Router /ws/events [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	var initial int64
	if raw := c.Query("requestId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			middleware.HandleAPIError(c, apperrors.NewValidationError("requestId", "must be a positive number"))
			return
		}
		if err := h.authz.AuthorizeRequest(c, p, appauth.ActionView, id); err != nil {
			middleware.HandleAPIError(c, err)
			return
		}
		initial = id
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("actor", p.ID).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := newClient(h.hub, conn, p, h.commands, h.logger)
	if initial > 0 {
		client.subscribe(initial)
	}
	if !h.hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.logger.Info().
		Str("actor", p.ID).
		Int64("requestID", initial).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
}
