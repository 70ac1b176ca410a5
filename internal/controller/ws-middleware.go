package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/syncstream/server/internal/service/room"
	"github.com/syncstream/server/pkg/ctxlogger"
	"github.com/syncstream/server/pkg/wsrouter"
)

func (c *controller) requestIdWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", uuid.NewString()))
			return next(ctx, conn, payload)
		}
	}
}

func (c *controller) loggerWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			c.logger.DebugContext(ctx, "websocket message received")

			start := time.Now()
			err := next(ctx, conn, payload)

			c.logger.InfoContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
				"error", err,
			)

			return err
		}
	}
}

// errorWSMw reports handler failures back to the failing requester only.
// A failed command is a complete no-op for the rest of the room.
func (c *controller) errorWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			err := next(ctx, conn, payload)
			if err == nil {
				return nil
			}

			sess := c.getSessionFromCtx(ctx)
			//nolint:errcheck
			c.sender.Send(ctx, sess.connId, &room.Event{
				Type: "error",
				Payload: map[string]any{
					"message": c.errorMessage(err),
				},
			})

			return err
		}
	}
}

func (c *controller) errorMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, room.ErrPermissionDenied):
		return "only the host can control playback"
	case errors.Is(err, room.ErrRoomFull):
		return "room is full"
	case errors.Is(err, errNotInRoom):
		return "not in a room"
	case errors.Is(err, errAlreadyInRoom):
		return "already in a room"
	case errors.Is(err, errInvalidInput):
		return err.Error()
	default:
		return "internal error"
	}
}
