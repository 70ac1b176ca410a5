package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syncstream/server/internal/repository/room"
)

type JoinRoomParams struct {
	ConnId   string
	Username string
	RoomCode string
}

type JoinRoomResponse struct {
	IsHost bool
}

func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	unlock := s.lockRoom(params.RoomCode)
	defer unlock()

	exists, err := s.roomRepo.RoomExists(ctx, params.RoomCode)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exists {
		return JoinRoomResponse{}, ErrRoomNotFound
	}

	count, err := s.roomRepo.GetMembersCount(ctx, params.RoomCode)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get members count: %w", err)
	}

	if s.membersLimit > 0 && count >= s.membersLimit {
		return JoinRoomResponse{}, ErrRoomFull
	}

	// an empty member list cannot normally be observed, empty rooms are
	// destroyed eagerly, but a store-level expiry can produce one
	isHost := count == 0

	if err := s.roomRepo.SetMember(ctx, &room.SetMemberParams{
		MemberId: params.ConnId,
		Username: params.Username,
		JoinedAt: time.Now().Unix(),
		RoomCode: params.RoomCode,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to set member: %w", err)
	}

	if isHost {
		if err := s.roomRepo.UpdateHostId(ctx, &room.UpdateHostIdParams{
			RoomCode: params.RoomCode,
			HostId:   params.ConnId,
		}); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to update host id: %w", err)
		}
	}

	player, err := s.roomRepo.GetPlayer(ctx, params.RoomCode)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get player: %w", err)
	}

	memberIds, err := s.roomRepo.GetMemberIds(ctx, params.RoomCode)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get member ids: %w", err)
	}

	s.logger.InfoContext(ctx, "member joined", "room_code", params.RoomCode, "conn_id", params.ConnId)

	s.sendJoinedRoom(ctx, params.ConnId, params.RoomCode, isHost)
	// sync snapshot goes to the joiner only
	s.sendRoomState(ctx, params.ConnId, player)
	s.broadcastParticipants(ctx, memberIds, len(memberIds))

	return JoinRoomResponse{IsHost: isHost}, nil
}

type LeaveRoomParams struct {
	ConnId   string
	RoomCode string
}

func (s *service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	return s.removeMember(ctx, params.RoomCode, params.ConnId)
}

type DisconnectMemberParams struct {
	ConnId   string
	RoomCode string
}

// DisconnectMember performs the same cleanup as an explicit leave. It is
// idempotent, a second call for the same connection is a no-op.
func (s *service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) error {
	return s.removeMember(ctx, params.RoomCode, params.ConnId)
}

func (s *service) removeMember(ctx context.Context, roomCode, connId string) error {
	unlock := s.lockRoom(roomCode)
	defer unlock()

	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{
		MemberId: connId,
		RoomCode: roomCode,
	}); err != nil {
		// already removed, or the whole room is gone: nothing left to do
		if errors.Is(err, room.ErrMemberNotFound) || errors.Is(err, room.ErrRoomNotFound) {
			return nil
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}

	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get member ids: %w", err)
	}

	s.logger.InfoContext(ctx, "member left", "room_code", roomCode, "conn_id", connId)

	if len(memberIds) == 0 {
		return s.deleteRoom(ctx, roomCode)
	}

	hostId, err := s.roomRepo.GetHostId(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get host id: %w", err)
	}

	if hostId == connId {
		// earliest-joined member inherits the room
		newHostId := memberIds[0]
		if err := s.roomRepo.UpdateHostId(ctx, &room.UpdateHostIdParams{
			RoomCode: roomCode,
			HostId:   newHostId,
		}); err != nil {
			return fmt.Errorf("failed to update host id: %w", err)
		}

		s.logger.InfoContext(ctx, "host promoted", "room_code", roomCode, "host_id", newHostId)

		// the promotion notice must land before the next broadcast so the
		// new host never acts on a stale authority view
		s.sendYouAreHost(ctx, newHostId)
	}

	s.broadcastParticipants(ctx, memberIds, len(memberIds))

	return nil
}
