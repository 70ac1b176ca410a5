package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/syncstream/server/internal/service/room"
	"github.com/syncstream/server/pkg/ctxlogger"
)

var (
	errNotInRoom     = errors.New("not in a room")
	errAlreadyInRoom = errors.New("already in a room")
	errInvalidInput  = errors.New("invalid input")
)

func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connId := uuid.NewString()
	if err := c.sender.Add(connId, conn); err != nil {
		c.logger.WarnContext(r.Context(), "failed to register connection", "error", err)
		conn.Close()
		return
	}

	sess := &session{connId: connId}
	ctx := context.WithValue(r.Context(), sessionCtxKey, sess)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", connId))

	c.logger.InfoContext(ctx, "connection established")

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection read loop ended", "error", err)
	}

	c.teardown(ctx, sess)
	//nolint:errcheck
	c.sender.Remove(connId)
	conn.Close()

	c.logger.InfoContext(ctx, "connection closed")
}

// teardown runs the disconnect cleanup exactly once per connection.
func (c *controller) teardown(ctx context.Context, sess *session) {
	if sess.state == sessionClosed {
		return
	}

	if sess.state == sessionRoomBound {
		if err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{
			ConnId:   sess.connId,
			RoomCode: sess.roomCode,
		}); err != nil {
			c.logger.WarnContext(ctx, "failed to disconnect member", "error", err)
		}
	}

	sess.state = sessionClosed
}

func (c *controller) decode(payload json.RawMessage, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: malformed payload", errInvalidInput)
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		return fmt.Errorf("%w: %s", errInvalidInput, validationErrors[0].Message)
	}

	return nil
}

// boundRoomCode returns the session's room, rejecting commands from
// unbound connections and commands that name a different room.
func (c *controller) boundRoomCode(sess *session, inputRoomCode string) (string, error) {
	if sess.state != sessionRoomBound {
		return "", errNotInRoom
	}

	if inputRoomCode != "" && inputRoomCode != sess.roomCode {
		return "", fmt.Errorf("%w: room code mismatch", errInvalidInput)
	}

	return sess.roomCode, nil
}

func (c *controller) handleAlive(_ context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	return nil
}

func (c *controller) handleUnknown(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	return fmt.Errorf("%w: unknown message type", errInvalidInput)
}

type createRoomInput struct {
	Username string `json:"username" validate:"required,max=32"`
}

func (c *controller) handleCreateRoom(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	sess := c.getSessionFromCtx(ctx)
	if sess.state != sessionUnbound {
		return errAlreadyInRoom
	}

	var input createRoomInput
	if err := c.decode(payload, &input); err != nil {
		return err
	}

	createRoomResp, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
		ConnId:   sess.connId,
		Username: input.Username,
	})
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	sess.bind(createRoomResp.RoomCode)

	return nil
}

type joinRoomInput struct {
	RoomCode string `json:"room_code" validate:"required"`
	Username string `json:"username" validate:"required,max=32"`
}

func (c *controller) handleJoinRoom(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	sess := c.getSessionFromCtx(ctx)
	if sess.state != sessionUnbound {
		return errAlreadyInRoom
	}

	var input joinRoomInput
	if err := c.decode(payload, &input); err != nil {
		return err
	}

	if _, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		ConnId:   sess.connId,
		Username: input.Username,
		RoomCode: input.RoomCode,
	}); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	sess.bind(input.RoomCode)

	return nil
}

type loadVideoInput struct {
	RoomCode string  `json:"room_code"`
	VideoId  string  `json:"video_id" validate:"required"`
	Time     float64 `json:"time" validate:"gte=0"`
}

func (c *controller) handleLoadVideo(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	sess := c.getSessionFromCtx(ctx)

	var input loadVideoInput
	if err := c.decode(payload, &input); err != nil {
		return err
	}

	roomCode, err := c.boundRoomCode(sess, input.RoomCode)
	if err != nil {
		return err
	}

	if err := c.roomService.LoadVideo(ctx, &room.LoadVideoParams{
		ConnId:   sess.connId,
		RoomCode: roomCode,
		VideoId:  input.VideoId,
		Time:     input.Time,
	}); err != nil {
		return fmt.Errorf("failed to load video: %w", err)
	}

	return nil
}

type playbackInput struct {
	RoomCode string  `json:"room_code"`
	Time     float64 `json:"time" validate:"gte=0"`
}

func (c *controller) playbackParams(ctx context.Context, payload json.RawMessage) (*room.PlaybackParams, error) {
	sess := c.getSessionFromCtx(ctx)

	var input playbackInput
	if err := c.decode(payload, &input); err != nil {
		return nil, err
	}

	roomCode, err := c.boundRoomCode(sess, input.RoomCode)
	if err != nil {
		return nil, err
	}

	return &room.PlaybackParams{
		ConnId:   sess.connId,
		RoomCode: roomCode,
		Time:     input.Time,
	}, nil
}

func (c *controller) handlePlay(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	params, err := c.playbackParams(ctx, payload)
	if err != nil {
		return err
	}

	if err := c.roomService.Play(ctx, params); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	return nil
}

func (c *controller) handlePause(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	params, err := c.playbackParams(ctx, payload)
	if err != nil {
		return err
	}

	if err := c.roomService.Pause(ctx, params); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	return nil
}

func (c *controller) handleSeek(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	params, err := c.playbackParams(ctx, payload)
	if err != nil {
		return err
	}

	if err := c.roomService.Seek(ctx, params); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	return nil
}

type chatMessageInput struct {
	RoomCode string `json:"room_code"`
	Sender   string `json:"sender" validate:"required,max=32"`
	Message  string `json:"message" validate:"required,max=500"`
}

func (c *controller) handleChatMessage(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	sess := c.getSessionFromCtx(ctx)

	var input chatMessageInput
	if err := c.decode(payload, &input); err != nil {
		return err
	}

	roomCode, err := c.boundRoomCode(sess, input.RoomCode)
	if err != nil {
		return err
	}

	if err := c.roomService.SendMessage(ctx, &room.SendMessageParams{
		ConnId:   sess.connId,
		RoomCode: roomCode,
		Sender:   input.Sender,
		Message:  input.Message,
	}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

type leaveRoomInput struct {
	RoomCode string `json:"room_code"`
	Username string `json:"username"`
}

// handleLeaveRoom unbinds the connection but keeps it open, so it can
// join or create another room afterwards.
func (c *controller) handleLeaveRoom(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	sess := c.getSessionFromCtx(ctx)

	var input leaveRoomInput
	if err := c.decode(payload, &input); err != nil {
		return err
	}

	roomCode, err := c.boundRoomCode(sess, input.RoomCode)
	if err != nil {
		return err
	}

	if err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		ConnId:   sess.connId,
		RoomCode: roomCode,
	}); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	sess.unbind()

	return nil
}
