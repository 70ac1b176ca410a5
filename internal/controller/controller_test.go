package controller

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatinmemory "github.com/syncstream/server/internal/repository/chat/inmemory"
	roominmemory "github.com/syncstream/server/internal/repository/room/inmemory"
	"github.com/syncstream/server/internal/repository/wssender"
	"github.com/syncstream/server/internal/service/room"
)

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := wssender.NewRepo(logger)
	roomService := room.NewService(
		roominmemory.NewRepo(),
		chatinmemory.NewRepo(100),
		sender,
		&room.Config{
			MembersLimit:     9,
			RoomCodeLength:   6,
			ChatHistoryLimit: 100,
			ChatTimeout:      time.Second,
		},
		logger,
	)

	srv := httptest.NewServer(NewController(roomService, sender, logger).GetMux())
	t.Cleanup(srv.Close)

	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(wireEvent{Type: eventType, Payload: raw}))
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event wireEvent
	require.NoError(t, conn.ReadJSON(&event))

	return event
}

func requireEvent(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()

	event := readEvent(t, conn)
	require.Equal(t, eventType, event.Type)

	var payload map[string]any
	if len(event.Payload) > 0 {
		require.NoError(t, json.Unmarshal(event.Payload, &payload))
	}

	return payload
}

func TestWatchPartySession(t *testing.T) {
	srv := newTestServer(t)

	// alice creates a room
	alice := dialWS(t, srv)
	sendEvent(t, alice, "create_room", map[string]any{"username": "alice"})

	created := requireEvent(t, alice, "room_created")
	roomCode := created["room_code"].(string)
	assert.Len(t, roomCode, 6)

	joined := requireEvent(t, alice, "joined_room")
	assert.Equal(t, true, joined["is_host"])
	participants := requireEvent(t, alice, "participants")
	assert.Equal(t, float64(1), participants["count"])

	// bob joins
	bob := dialWS(t, srv)
	sendEvent(t, bob, "join_room", map[string]any{"room_code": roomCode, "username": "bob"})

	joined = requireEvent(t, bob, "joined_room")
	assert.Equal(t, false, joined["is_host"])
	state := requireEvent(t, bob, "room_state")
	assert.Nil(t, state["video_id"])
	participants = requireEvent(t, bob, "participants")
	assert.Equal(t, float64(2), participants["count"])

	participants = requireEvent(t, alice, "participants")
	assert.Equal(t, float64(2), participants["count"])

	// bob cannot drive playback
	sendEvent(t, bob, "play", map[string]any{"time": 5})
	errPayload := requireEvent(t, bob, "error")
	assert.Equal(t, "only the host can control playback", errPayload["message"])

	// alice loads a video and plays
	sendEvent(t, alice, "load_video", map[string]any{"video_id": "abc", "time": 0})
	loaded := requireEvent(t, bob, "load_video")
	assert.Equal(t, "abc", loaded["video_id"])

	sendEvent(t, alice, "play", map[string]any{"time": 10.5})
	played := requireEvent(t, bob, "play")
	assert.Equal(t, 10.5, played["time"])

	// chat reaches everyone, sender included
	sendEvent(t, bob, "chat_message", map[string]any{"sender": "bob", "message": "hello"})
	message := requireEvent(t, bob, "chat_message")
	assert.Equal(t, "hello", message["message"])
	message = requireEvent(t, alice, "chat_message")
	assert.Equal(t, "bob", message["sender"])

	// alice disconnects, bob inherits the room
	alice.Close()
	requireEvent(t, bob, "you_are_host")
	participants = requireEvent(t, bob, "participants")
	assert.Equal(t, float64(1), participants["count"])

	sendEvent(t, bob, "pause", map[string]any{"time": 11})
	// no error event follows a successful host command, the next read
	// times out instead
	bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var event wireEvent
	err := bob.ReadJSON(&event)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timeout") || websocket.IsUnexpectedCloseError(err))
}

func TestCommandsRequireRoom(t *testing.T) {
	srv := newTestServer(t)

	conn := dialWS(t, srv)
	sendEvent(t, conn, "play", map[string]any{"time": 5})
	payload := requireEvent(t, conn, "error")
	assert.Equal(t, "not in a room", payload["message"])

	sendEvent(t, conn, "chat_message", map[string]any{"sender": "alice", "message": "hi"})
	payload = requireEvent(t, conn, "error")
	assert.Equal(t, "not in a room", payload["message"])
}

func TestJoinUnknownRoom(t *testing.T) {
	srv := newTestServer(t)

	conn := dialWS(t, srv)
	sendEvent(t, conn, "join_room", map[string]any{"room_code": "NOSUCH", "username": "alice"})
	payload := requireEvent(t, conn, "error")
	assert.Equal(t, "room not found", payload["message"])
}

func TestUnknownMessageType(t *testing.T) {
	srv := newTestServer(t)

	conn := dialWS(t, srv)
	sendEvent(t, conn, "warp_speed", map[string]any{})
	payload := requireEvent(t, conn, "error")
	assert.Contains(t, payload["message"], "unknown message type")
}

func TestInvalidInput(t *testing.T) {
	srv := newTestServer(t)

	conn := dialWS(t, srv)
	sendEvent(t, conn, "create_room", map[string]any{})
	payload := requireEvent(t, conn, "error")
	assert.Contains(t, payload["message"], "invalid input")
}

func TestLeaveAndRejoin(t *testing.T) {
	srv := newTestServer(t)

	alice := dialWS(t, srv)
	sendEvent(t, alice, "create_room", map[string]any{"username": "alice"})
	created := requireEvent(t, alice, "room_created")
	firstCode := created["room_code"].(string)
	requireEvent(t, alice, "joined_room")
	requireEvent(t, alice, "participants")

	// leaving keeps the connection usable
	sendEvent(t, alice, "leave_room", map[string]any{})
	sendEvent(t, alice, "create_room", map[string]any{"username": "alice"})
	created = requireEvent(t, alice, "room_created")
	assert.NotEqual(t, firstCode, created["room_code"])
}

func TestRESTRoomEndpoints(t *testing.T) {
	srv := newTestServer(t)

	alice := dialWS(t, srv)
	sendEvent(t, alice, "create_room", map[string]any{"username": "alice"})
	created := requireEvent(t, alice, "room_created")
	roomCode := created["room_code"].(string)
	requireEvent(t, alice, "joined_room")
	requireEvent(t, alice, "participants")

	resp, err := http.Get(srv.URL + "/api/v1/room/" + roomCode)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data room.RoomState `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, roomCode, body.Data.RoomCode)
	assert.Equal(t, 1, body.Data.Participants)
	assert.Nil(t, body.Data.VideoId)

	resp, err = http.Get(srv.URL + "/api/v1/room/NOSUCH")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRESTRoomMessages(t *testing.T) {
	srv := newTestServer(t)

	alice := dialWS(t, srv)
	sendEvent(t, alice, "create_room", map[string]any{"username": "alice"})
	created := requireEvent(t, alice, "room_created")
	roomCode := created["room_code"].(string)
	requireEvent(t, alice, "joined_room")
	requireEvent(t, alice, "participants")

	sendEvent(t, alice, "chat_message", map[string]any{"sender": "alice", "message": "hello"})
	requireEvent(t, alice, "chat_message")

	// persistence is asynchronous
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/api/v1/room/" + roomCode + "/messages")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var body struct {
			Data []room.Message `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}

		return len(body.Data) == 1 && body.Data[0].Message == "hello"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
