package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syncstream/server/internal/repository/room"
)

// room codes give 36^length combinations, collisions are rare enough
// that a handful of retries always suffices
const maxCodeAttempts = 10

type CreateRoomParams struct {
	ConnId   string
	Username string
}

type CreateRoomResponse struct {
	RoomCode string
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		roomCode := s.generator.GenerateRandomString(s.roomCodeLength)

		unlock := s.lockRoom(roomCode)
		err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
			RoomCode:  roomCode,
			HostId:    params.ConnId,
			CreatedAt: time.Now().Unix(),
		})
		if err != nil {
			unlock()
			if errors.Is(err, room.ErrRoomAlreadyExists) {
				continue
			}
			return CreateRoomResponse{}, fmt.Errorf("failed to set room: %w", err)
		}
		defer unlock()

		if err := s.roomRepo.SetMember(ctx, &room.SetMemberParams{
			MemberId: params.ConnId,
			Username: params.Username,
			JoinedAt: time.Now().Unix(),
			RoomCode: roomCode,
		}); err != nil {
			return CreateRoomResponse{}, fmt.Errorf("failed to set member: %w", err)
		}

		if err := s.roomRepo.SetPlayer(ctx, &room.SetPlayerParams{
			RoomCode: roomCode,
		}); err != nil {
			return CreateRoomResponse{}, fmt.Errorf("failed to set player: %w", err)
		}

		s.logger.InfoContext(ctx, "room created", "room_code", roomCode, "host_id", params.ConnId)

		s.sendRoomCreated(ctx, params.ConnId, roomCode)
		s.sendJoinedRoom(ctx, params.ConnId, roomCode, true)
		s.broadcastParticipants(ctx, []string{params.ConnId}, 1)

		return CreateRoomResponse{RoomCode: roomCode}, nil
	}

	return CreateRoomResponse{}, errors.New("failed to generate a unique room code")
}

func (s *service) GetRoomState(ctx context.Context, roomCode string) (RoomState, error) {
	rm, err := s.roomRepo.GetRoom(ctx, roomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return RoomState{}, ErrRoomNotFound
		}
		return RoomState{}, fmt.Errorf("failed to get room: %w", err)
	}

	player, err := s.roomRepo.GetPlayer(ctx, roomCode)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get player: %w", err)
	}

	count, err := s.roomRepo.GetMembersCount(ctx, roomCode)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get members count: %w", err)
	}

	playerState := playerStateOf(player)

	return RoomState{
		RoomCode:     roomCode,
		VideoId:      playerState.VideoId,
		CurrentTime:  playerState.CurrentTime,
		IsPlaying:    playerState.IsPlaying,
		Participants: count,
		CreatedAt:    rm.CreatedAt,
	}, nil
}

// deleteRoom destroys the room's state eagerly and purges its chat
// history. Purge failures are logged but never block the destruction.
func (s *service) deleteRoom(ctx context.Context, roomCode string) error {
	if err := s.roomRepo.RemoveRoom(ctx, roomCode); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	if err := s.chatRepo.PurgeRoom(ctx, roomCode); err != nil {
		s.logger.WarnContext(ctx, "failed to purge chat history", "room_code", roomCode, "error", err)
	}

	s.dropRoomLock(roomCode)
	s.logger.InfoContext(ctx, "room destroyed", "room_code", roomCode)

	return nil
}
