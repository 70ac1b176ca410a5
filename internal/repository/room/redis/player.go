package redis

import (
	"context"
	"fmt"

	"github.com/syncstream/server/internal/repository/room"
)

func (r repo) SetPlayer(ctx context.Context, params *room.SetPlayerParams) error {
	pipe := r.rc.TxPipeline()

	player := room.Player{
		VideoId:     params.VideoId,
		IsPlaying:   params.IsPlaying,
		CurrentTime: params.CurrentTime,
	}
	playerKey := r.getPlayerKey(params.RoomCode)
	pipe.HSet(ctx, playerKey, player)
	pipe.Expire(ctx, playerKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

func (r repo) GetPlayer(ctx context.Context, roomCode string) (room.Player, error) {
	playerKey := r.getPlayerKey(roomCode)
	cmd := r.rc.Exists(ctx, playerKey)
	if err := cmd.Err(); err != nil {
		return room.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	if cmd.Val() == 0 {
		return room.Player{}, room.ErrPlayerNotFound
	}

	var player room.Player
	if err := r.rc.HGetAll(ctx, playerKey).Scan(&player); err != nil {
		return room.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	r.rc.Expire(ctx, playerKey, r.expireDuration)

	return player, nil
}

func (r repo) UpdatePlayerState(ctx context.Context, params *room.UpdatePlayerStateParams) error {
	playerKey := r.getPlayerKey(params.RoomCode)
	cmd := r.rc.Exists(ctx, playerKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrPlayerNotFound
	}

	if err := r.rc.HSet(ctx, playerKey,
		"is_playing", params.IsPlaying,
		"current_time", params.CurrentTime,
	).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, playerKey, r.expireDuration)

	return nil
}

func (r repo) UpdatePlayerCurrentTime(ctx context.Context, params *room.UpdatePlayerCurrentTimeParams) error {
	playerKey := r.getPlayerKey(params.RoomCode)
	cmd := r.rc.Exists(ctx, playerKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrPlayerNotFound
	}

	if err := r.rc.HSet(ctx, playerKey, "current_time", params.CurrentTime).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, playerKey, r.expireDuration)

	return nil
}
