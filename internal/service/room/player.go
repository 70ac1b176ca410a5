package room

import (
	"context"
	"fmt"

	"github.com/syncstream/server/internal/repository/room"
)

// checkIfHost re-resolves the room's host on every use. The host id is a
// lookup key, not a cached reference, connections vanish asynchronously.
func (s *service) checkIfHost(ctx context.Context, roomCode, connId string) error {
	exists, err := s.roomRepo.RoomExists(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exists {
		return ErrRoomNotFound
	}

	hostId, err := s.roomRepo.GetHostId(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get host id: %w", err)
	}

	if hostId != connId {
		return ErrPermissionDenied
	}

	return nil
}

type LoadVideoParams struct {
	ConnId   string
	RoomCode string
	VideoId  string
	Time     float64
}

// LoadVideo replaces the room's video. Loading always starts paused, the
// host's subsequent play resumes.
func (s *service) LoadVideo(ctx context.Context, params *LoadVideoParams) error {
	unlock := s.lockRoom(params.RoomCode)
	defer unlock()

	if err := s.checkIfHost(ctx, params.RoomCode, params.ConnId); err != nil {
		return err
	}

	if err := s.roomRepo.SetPlayer(ctx, &room.SetPlayerParams{
		VideoId:     params.VideoId,
		IsPlaying:   false,
		CurrentTime: params.Time,
		RoomCode:    params.RoomCode,
	}); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	memberIds, err := s.getMemberIdsExcept(ctx, params.RoomCode, params.ConnId)
	if err != nil {
		return err
	}

	s.broadcastLoadVideo(ctx, memberIds, params.VideoId, params.Time)

	return nil
}

type PlaybackParams struct {
	ConnId   string
	RoomCode string
	Time     float64
}

func (s *service) Play(ctx context.Context, params *PlaybackParams) error {
	return s.updatePlayback(ctx, params, "play", true)
}

func (s *service) Pause(ctx context.Context, params *PlaybackParams) error {
	return s.updatePlayback(ctx, params, "pause", false)
}

func (s *service) updatePlayback(ctx context.Context, params *PlaybackParams, kind string, isPlaying bool) error {
	unlock := s.lockRoom(params.RoomCode)
	defer unlock()

	if err := s.checkIfHost(ctx, params.RoomCode, params.ConnId); err != nil {
		return err
	}

	if err := s.roomRepo.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		IsPlaying:   isPlaying,
		CurrentTime: params.Time,
		RoomCode:    params.RoomCode,
	}); err != nil {
		return fmt.Errorf("failed to update player state: %w", err)
	}

	memberIds, err := s.getMemberIdsExcept(ctx, params.RoomCode, params.ConnId)
	if err != nil {
		return err
	}

	s.broadcastPlaybackDelta(ctx, memberIds, kind, params.Time)

	return nil
}

// Seek moves the playhead without touching the playing flag. Values past
// the media duration are relayed untouched, the duration is unknown
// server-side.
func (s *service) Seek(ctx context.Context, params *PlaybackParams) error {
	unlock := s.lockRoom(params.RoomCode)
	defer unlock()

	if err := s.checkIfHost(ctx, params.RoomCode, params.ConnId); err != nil {
		return err
	}

	if err := s.roomRepo.UpdatePlayerCurrentTime(ctx, &room.UpdatePlayerCurrentTimeParams{
		CurrentTime: params.Time,
		RoomCode:    params.RoomCode,
	}); err != nil {
		return fmt.Errorf("failed to update player current time: %w", err)
	}

	memberIds, err := s.getMemberIdsExcept(ctx, params.RoomCode, params.ConnId)
	if err != nil {
		return err
	}

	s.broadcastPlaybackDelta(ctx, memberIds, "seek", params.Time)

	return nil
}
