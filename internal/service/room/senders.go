package room

import (
	"context"

	"github.com/syncstream/server/internal/repository/room"
)

// Outbound events are emitted here, while the caller still holds the
// room lock, so members observe them in the order they were applied.

func (s *service) sendRoomCreated(ctx context.Context, connId, roomCode string) {
	//nolint:errcheck
	s.sender.Send(ctx, connId, &Event{
		Type: "room_created",
		Payload: map[string]any{
			"room_code": roomCode,
		},
	})
}

func (s *service) sendJoinedRoom(ctx context.Context, connId, roomCode string, isHost bool) {
	//nolint:errcheck
	s.sender.Send(ctx, connId, &Event{
		Type: "joined_room",
		Payload: map[string]any{
			"room_code": roomCode,
			"is_host":   isHost,
		},
	})
}

func (s *service) sendRoomState(ctx context.Context, connId string, player room.Player) {
	//nolint:errcheck
	s.sender.Send(ctx, connId, &Event{
		Type:    "room_state",
		Payload: playerStateOf(player),
	})
}

func (s *service) sendYouAreHost(ctx context.Context, connId string) {
	//nolint:errcheck
	s.sender.Send(ctx, connId, &Event{Type: "you_are_host"})
}

func (s *service) broadcastParticipants(ctx context.Context, connIds []string, count int) {
	s.sender.Broadcast(ctx, connIds, &Event{
		Type: "participants",
		Payload: map[string]any{
			"count": count,
		},
	})
}

func (s *service) broadcastChatMessage(ctx context.Context, connIds []string, message Message) {
	s.sender.Broadcast(ctx, connIds, &Event{
		Type:    "chat_message",
		Payload: message,
	})
}

func (s *service) broadcastLoadVideo(ctx context.Context, connIds []string, videoId string, time float64) {
	s.sender.Broadcast(ctx, connIds, &Event{
		Type: "load_video",
		Payload: map[string]any{
			"video_id": videoId,
			"time":     time,
		},
	})
}

func (s *service) broadcastPlaybackDelta(ctx context.Context, connIds []string, kind string, time float64) {
	s.sender.Broadcast(ctx, connIds, &Event{
		Type: kind,
		Payload: map[string]any{
			"time": time,
		},
	})
}

func playerStateOf(player room.Player) PlayerState {
	state := PlayerState{
		CurrentTime: player.CurrentTime,
		IsPlaying:   player.IsPlaying,
	}
	if player.VideoId != "" {
		videoId := player.VideoId
		state.VideoId = &videoId
	}

	return state
}
