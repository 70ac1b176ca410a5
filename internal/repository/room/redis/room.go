package redis

import (
	"context"
	"fmt"

	"github.com/syncstream/server/internal/repository/room"
)

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	roomKey := r.getRoomKey(params.RoomCode)

	// HSetNX on host_id doubles as the uniqueness check for the room code.
	ok, err := r.rc.HSetNX(ctx, roomKey, "host_id", params.HostId).Result()
	if err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	if !ok {
		return room.ErrRoomAlreadyExists
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey, "created_at", params.CreatedAt)
	pipe.Expire(ctx, roomKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomCode string) (room.Room, error) {
	roomKey := r.getRoomKey(roomCode)
	var rm room.Room
	if err := r.rc.HGetAll(ctx, roomKey).Scan(&rm); err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.HostId == "" {
		return room.Room{}, room.ErrRoomNotFound
	}

	r.rc.Expire(ctx, roomKey, r.expireDuration)

	return rm, nil
}

func (r repo) RoomExists(ctx context.Context, roomCode string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getRoomKey(roomCode)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) GetHostId(ctx context.Context, roomCode string) (string, error) {
	hostId, err := r.rc.HGet(ctx, r.getRoomKey(roomCode), "host_id").Result()
	if err != nil {
		return "", fmt.Errorf("failed to get host id: %w", err)
	}

	return hostId, nil
}

func (r repo) UpdateHostId(ctx context.Context, params *room.UpdateHostIdParams) error {
	roomKey := r.getRoomKey(params.RoomCode)
	cmd := r.rc.Exists(ctx, roomKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, roomKey, "host_id", params.HostId).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, roomKey, r.expireDuration)

	return nil
}

func (r repo) RemoveRoom(ctx context.Context, roomCode string) error {
	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, r.getRoomKey(roomCode))
	pipe.Del(ctx, r.getPlayerKey(roomCode))
	pipe.Del(ctx, r.getMemberListKey(roomCode))

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}
