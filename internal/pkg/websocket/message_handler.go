package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	appauth "github.com/yigit/thesisflow/internal/app/auth"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

const commandTimeout = 5 * time.Second

// Command is what a client sends to change its subscriptions
type Command struct {
	// Type of command: "subscribe", "unsubscribe", "ping"
	Type      string `json:"type"`
	RequestID int64  `json:"requestId,omitempty"`
}

// RequestAuthorizer checks that a principal may see a defense request
type RequestAuthorizer interface {
	AuthorizeRequest(ctx context.Context, p appauth.Principal, action appauth.Action, requestID int64) error
}

// MessageHandler answers client commands
type MessageHandler struct {
	authz  RequestAuthorizer
	logger zerolog.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(authz RequestAuthorizer, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{authz: authz, logger: logger}
}

// Handle applies one raw command to c and returns the encoded reply.
func (h *MessageHandler) Handle(c *Client, raw []byte) []byte {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		h.logger.Debug().Err(err).Str("actor", c.principal.ID).Str("message", string(raw)).Msg("Failed to unmarshal client command")
		return encode(Message{Type: "error", Error: "malformed command"})
	}

	switch cmd.Type {
	case "ping":
		return encode(Message{Type: "pong"})
	case "subscribe":
		if err := h.Subscribe(c, cmd.RequestID); err != nil {
			return encode(Message{Type: "error", Error: err.Error(), RequestIDs: []int64{cmd.RequestID}})
		}
		return encode(Message{Type: "subscribed", RequestIDs: c.subscriptions()})
	case "unsubscribe":
		c.unsubscribe(cmd.RequestID)
		return encode(Message{Type: "unsubscribed", RequestIDs: c.subscriptions()})
	default:
		return encode(Message{Type: "error", Error: "unknown command " + cmd.Type})
	}
}

// Subscribe adds requestID to c's feed once the principal may view it.
func (h *MessageHandler) Subscribe(c *Client, requestID int64) error {
	if requestID <= 0 {
		return apperrors.NewValidationError("requestId", "must be a positive number")
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.authz.AuthorizeRequest(ctx, c.principal, appauth.ActionView, requestID); err != nil {
		if !errors.Is(err, apperrors.ErrPermissionDenied) && !errors.Is(err, apperrors.ErrNotFound) {
			h.logger.Error().Err(err).Str("actor", c.principal.ID).Int64("requestID", requestID).Msg("Error authorizing feed subscription")
		}
		return err
	}
	c.subscribe(requestID)
	return nil
}

func encode(msg Message) []byte {
	msg.Timestamp = time.Now()
	data, _ := json.Marshal(msg)
	return data
}
