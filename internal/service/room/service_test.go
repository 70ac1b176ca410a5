package room

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatRedis "github.com/syncstream/server/internal/repository/chat/redis"
	roomRedis "github.com/syncstream/server/internal/repository/room/redis"
)

type fakeSender struct {
	mu     sync.Mutex
	events map[string][]Event
}

func newFakeSender() *fakeSender {
	return &fakeSender{events: make(map[string][]Event)}
}

func (f *fakeSender) Send(ctx context.Context, connId string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[connId] = append(f.events[connId], *(v.(*Event)))

	return nil
}

func (f *fakeSender) Broadcast(ctx context.Context, connIds []string, v any) {
	for _, connId := range connIds {
		f.Send(ctx, connId, v)
	}
}

func (f *fakeSender) eventsFor(connId string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.events[connId])
}

func (f *fakeSender) typesFor(connId string) []string {
	events := f.eventsFor(connId)
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}

	return types
}

func newTestService(t *testing.T, cfg *Config) (*service, *fakeSender) {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	if cfg == nil {
		cfg = &Config{
			MembersLimit:     9,
			RoomCodeLength:   6,
			ChatHistoryLimit: 100,
			ChatTimeout:      time.Second,
		}
	}

	sender := newFakeSender()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(
		roomRedis.NewRepo(rc, time.Hour),
		chatRedis.NewRepo(rc, cfg.ChatHistoryLimit, time.Hour),
		sender,
		cfg,
		logger,
	)

	return svc, sender
}

func TestCreateRoom(t *testing.T) {
	svc, sender := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "conn-1", Username: "alice"})
	require.NoError(t, err)
	assert.Len(t, resp.RoomCode, 6)

	events := sender.eventsFor("conn-1")
	require.Len(t, events, 3)
	assert.Equal(t, "room_created", events[0].Type)
	assert.Equal(t, resp.RoomCode, events[0].Payload.(map[string]any)["room_code"])
	assert.Equal(t, "joined_room", events[1].Type)
	assert.Equal(t, true, events[1].Payload.(map[string]any)["is_host"])
	assert.Equal(t, "participants", events[2].Type)
	assert.Equal(t, 1, events[2].Payload.(map[string]any)["count"])

	state, err := svc.GetRoomState(ctx, resp.RoomCode)
	require.NoError(t, err)
	assert.Nil(t, state.VideoId)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, 1, state.Participants)
}

func TestJoinRoom(t *testing.T) {
	svc, sender := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "conn-1", Username: "alice"})
	require.NoError(t, err)

	joinResp, err := svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "conn-2", Username: "bob", RoomCode: resp.RoomCode})
	require.NoError(t, err)
	assert.False(t, joinResp.IsHost)

	events := sender.eventsFor("conn-2")
	require.Len(t, events, 3)
	assert.Equal(t, "joined_room", events[0].Type)
	assert.Equal(t, false, events[0].Payload.(map[string]any)["is_host"])
	assert.Equal(t, "room_state", events[1].Type)
	assert.Equal(t, "participants", events[2].Type)
	assert.Equal(t, 2, events[2].Payload.(map[string]any)["count"])

	hostEvents := sender.eventsFor("conn-1")
	require.NotEmpty(t, hostEvents)
	last := hostEvents[len(hostEvents)-1]
	assert.Equal(t, "participants", last.Type)
	assert.Equal(t, 2, last.Payload.(map[string]any)["count"])
}

func TestJoinRoomNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.JoinRoom(context.Background(), &JoinRoomParams{ConnId: "conn-1", Username: "alice", RoomCode: "NOSUCH"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoomFull(t *testing.T) {
	svc, _ := newTestService(t, &Config{
		MembersLimit:     2,
		RoomCodeLength:   6,
		ChatHistoryLimit: 100,
		ChatTimeout:      time.Second,
	})
	ctx := context.Background()

	resp, err := svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "conn-1", Username: "alice"})
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "conn-2", Username: "bob", RoomCode: resp.RoomCode})
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "conn-3", Username: "carol", RoomCode: resp.RoomCode})
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestPlaybackHostOnly(t *testing.T) {
	svc, sender := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "conn-1", Username: "alice"})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "conn-2", Username: "bob", RoomCode: resp.RoomCode})
	require.NoError(t, err)

	hostEventsBefore := len(sender.eventsFor("conn-1"))

	err = svc.Play(ctx, &PlaybackParams{ConnId: "conn-2", RoomCode: resp.RoomCode, Time: 10})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = svc.LoadVideo(ctx, &LoadVideoParams{ConnId: "conn-2", RoomCode: resp.RoomCode, VideoId: "abc"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// a rejected command leaves the room state untouched and silent
	state, err := svc.GetRoomState(ctx, resp.RoomCode)
	require.NoError(t, err)
	assert.Nil(t, state.VideoId)
	assert.False(t, state.IsPlaying)
	assert.Len(t, sender.eventsFor("conn-1"), hostEventsBefore)
}

func TestPlaybackSync(t *testing.T) {
	svc, sender := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "conn-1", Username: "alice"})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "conn-2", Username: "bob", RoomCode: resp.RoomCode})
	require.NoError(t, err)

	hostEventsBefore := len(sender.eventsFor("conn-1"))

	err = svc.LoadVideo(ctx, &LoadVideoParams{ConnId: "conn-1", RoomCode: resp.RoomCode, VideoId: "abc"})
	require.NoError(t, err)

	err = svc.Play(ctx, &PlaybackParams{ConnId: "conn-1", RoomCode: resp.RoomCode, Time: 10.5})
	require.NoError(t, err)

	err = svc.Seek(ctx, &PlaybackParams{ConnId: "conn-1", RoomCode: resp.RoomCode, Time: 42})
	require.NoError(t, err)

	err = svc.Pause(ctx, &PlaybackParams{ConnId: "conn-1", RoomCode: resp.RoomCode, Time: 43})
	require.NoError(t, err)

	// deltas reach the other member in command order and never echo back
	assert.Len(t, sender.eventsFor("conn-1"), hostEventsBefore)
	events := sender.eventsFor("conn-2")
	require.Len(t, events, 7)
	assert.Equal(t, []string{"joined_room", "room_state", "participants", "load_video", "play", "seek", "pause"}, sender.typesFor("conn-2"))
	assert.Equal(t, "abc", events[3].Payload.(map[string]any)["video_id"])
	assert.Equal(t, 10.5, events[4].Payload.(map[string]any)["time"])
	assert.Equal(t, float64(42), events[5].Payload.(map[string]any)["time"])

	state, err := svc.GetRoomState(ctx, resp.RoomCode)
	require.NoError(t, err)
	require.NotNil(t, state.VideoId)
	assert.Equal(t, "abc", *state.VideoId)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, float64(43), state.CurrentTime)
}

func TestJoinerReceivesCurrentState(t *testing.T) {
	svc, sender := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "conn-1", Username: "alice"})
	require.NoError(t, err)

	require.NoError(t, svc.LoadVideo(ctx, &LoadVideoParams{ConnId: "conn-1", RoomCode: resp.RoomCode, VideoId: "abc"}))
	require.NoError(t, svc.Play(ctx, &PlaybackParams{ConnId: "conn-1", RoomCode: resp.RoomCode, Time: 15}))

	_, err = svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "conn-2", Username: "bob", RoomCode: resp.RoomCode})
	require.NoError(t, err)

	events := sender.eventsFor("conn-2")
	require.Len(t, events, 3)
	assert.Equal(t, "room_state", events[1].Type)
	state := events[1].Payload.(PlayerState)
	require.NotNil(t, state.VideoId)
	assert.Equal(t, "abc", *state.VideoId)
	assert.True(t, state.IsPlaying)
	assert.Equal(t, float64(15), state.CurrentTime)
}

func TestHostPromotion(t *testing.T) {
	svc, sender := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "conn-1", Username: "alice"})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "conn-2", Username: "bob", RoomCode: resp.RoomCode})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "conn-3", Username: "carol", RoomCode: resp.RoomCode})
	require.NoError(t, err)

	err = svc.LeaveRoom(ctx, &LeaveRoomParams{ConnId: "conn-1", RoomCode: resp.RoomCode})
	require.NoError(t, err)

	// earliest joined survivor inherits, and learns it before the roster update
	types2 := sender.typesFor("conn-2")
	require.GreaterOrEqual(t, len(types2), 2)
	assert.Equal(t, []string{"you_are_host", "participants"}, types2[len(types2)-2:])
	assert.NotContains(t, sender.typesFor("conn-3"), "you_are_host")

	// the new host can drive playback now
	err = svc.Play(ctx, &PlaybackParams{ConnId: "conn-2", RoomCode: resp.RoomCode, Time: 1})
	require.NoError(t, err)
	err = svc.Play(ctx, &PlaybackParams{ConnId: "conn-3", RoomCode: resp.RoomCode, Time: 1})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestRoomDestroyedWhenEmpty(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "conn-1", Username: "alice"})
	require.NoError(t, err)

	err = svc.LeaveRoom(ctx, &LeaveRoomParams{ConnId: "conn-1", RoomCode: resp.RoomCode})
	require.NoError(t, err)

	_, err = svc.GetRoomState(ctx, resp.RoomCode)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// cleanup racing an explicit leave must be a no-op
	err = svc.DisconnectMember(ctx, &DisconnectMemberParams{ConnId: "conn-1", RoomCode: resp.RoomCode})
	assert.NoError(t, err)
}

func TestChatMessage(t *testing.T) {
	svc, sender := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "conn-1", Username: "alice"})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "conn-2", Username: "bob", RoomCode: resp.RoomCode})
	require.NoError(t, err)

	err = svc.SendMessage(ctx, &SendMessageParams{ConnId: "conn-2", RoomCode: resp.RoomCode, Sender: "bob", Message: "hello"})
	require.NoError(t, err)

	// chat echoes to the sender as well
	for _, connId := range []string{"conn-1", "conn-2"} {
		events := sender.eventsFor(connId)
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		require.Equal(t, "chat_message", last.Type)
		message := last.Payload.(Message)
		assert.Equal(t, "bob", message.Sender)
		assert.Equal(t, "hello", message.Message)
		assert.NotZero(t, message.Timestamp)
	}

	// persistence happens off the relay path
	require.Eventually(t, func() bool {
		messages, err := svc.GetRecentMessages(ctx, resp.RoomCode, 10)
		return err == nil && len(messages) == 1
	}, time.Second, 10*time.Millisecond)

	messages, err := svc.GetRecentMessages(ctx, resp.RoomCode, 10)
	require.NoError(t, err)
	assert.Equal(t, "bob", messages[0].Sender)
	assert.Equal(t, "hello", messages[0].Message)
}

func TestGetRecentMessagesRoomNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.GetRecentMessages(context.Background(), "NOSUCH", 10)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSendMessageRoomNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	err := svc.SendMessage(context.Background(), &SendMessageParams{ConnId: "conn-1", RoomCode: "NOSUCH", Sender: "alice", Message: "hi"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
