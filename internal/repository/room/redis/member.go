package redis

import (
	"context"
	"fmt"

	"github.com/syncstream/server/internal/repository/room"
)

func (r repo) SetMember(ctx context.Context, params *room.SetMemberParams) error {
	pipe := r.rc.TxPipeline()

	member := room.Member{
		Username: params.Username,
		JoinedAt: params.JoinedAt,
	}

	memberKey := r.getMemberKey(params.RoomCode, params.MemberId)
	pipe.HSet(ctx, memberKey, member)
	pipe.Expire(ctx, memberKey, r.expireDuration)

	memberListKey := r.getMemberListKey(params.RoomCode)
	r.addWithIncrement(ctx, pipe, memberListKey, params.MemberId)
	pipe.Expire(ctx, memberListKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set member: %w", err)
	}

	return nil
}

func (r repo) GetMember(ctx context.Context, params *room.GetMemberParams) (room.Member, error) {
	var member room.Member
	if err := r.rc.HGetAll(ctx, r.getMemberKey(params.RoomCode, params.MemberId)).Scan(&member); err != nil {
		return room.Member{}, fmt.Errorf("failed to get member: %w", err)
	}

	if member.Username == "" {
		return room.Member{}, room.ErrMemberNotFound
	}

	return member, nil
}

func (r repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	if err := r.rc.ZRem(ctx, r.getMemberListKey(params.RoomCode), params.MemberId).Err(); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	res, err := r.rc.Del(ctx, r.getMemberKey(params.RoomCode, params.MemberId)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if res == 0 {
		return room.ErrMemberNotFound
	}

	return nil
}

// GetMemberIds returns member ids in join order, earliest first.
func (r repo) GetMemberIds(ctx context.Context, roomCode string) ([]string, error) {
	memberIds, err := r.rc.ZRange(ctx, r.getMemberListKey(roomCode), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	return memberIds, nil
}

func (r repo) GetMembersCount(ctx context.Context, roomCode string) (int, error) {
	count, err := r.rc.ZCard(ctx, r.getMemberListKey(roomCode)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get members count: %w", err)
	}

	return int(count), nil
}
