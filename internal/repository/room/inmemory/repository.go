package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/syncstream/server/internal/repository/room"
)

type roomState struct {
	room    room.Room
	player  room.Player
	members map[string]room.Member
	// member ids in join order, earliest first
	order []string
}

type repo struct {
	rooms map[string]*roomState
	mu    sync.RWMutex
}

// NewRepo creates a process-local room store. It starts empty and needs
// no teardown beyond process exit.
func NewRepo() *repo {
	return &repo{rooms: make(map[string]*roomState)}
}

func (r *repo) SetRoom(_ context.Context, params *room.SetRoomParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[params.RoomCode]; ok {
		return room.ErrRoomAlreadyExists
	}

	r.rooms[params.RoomCode] = &roomState{
		room: room.Room{
			HostId:    params.HostId,
			CreatedAt: params.CreatedAt,
		},
		members: make(map[string]room.Member),
	}

	return nil
}

func (r *repo) GetRoom(_ context.Context, roomCode string) (room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return room.Room{}, room.ErrRoomNotFound
	}

	return state.room, nil
}

func (r *repo) RoomExists(_ context.Context, roomCode string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomCode]

	return ok, nil
}

func (r *repo) GetHostId(_ context.Context, roomCode string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return "", room.ErrRoomNotFound
	}

	return state.room.HostId, nil
}

func (r *repo) UpdateHostId(_ context.Context, params *room.UpdateHostIdParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.room.HostId = params.HostId

	return nil
}

func (r *repo) RemoveRoom(_ context.Context, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, roomCode)

	return nil
}

func (r *repo) SetMember(_ context.Context, params *room.SetMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	if _, ok := state.members[params.MemberId]; !ok {
		state.order = append(state.order, params.MemberId)
	}
	state.members[params.MemberId] = room.Member{
		Username: params.Username,
		JoinedAt: params.JoinedAt,
	}

	return nil
}

func (r *repo) GetMember(_ context.Context, params *room.GetMemberParams) (room.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.Member{}, room.ErrRoomNotFound
	}

	member, ok := state.members[params.MemberId]
	if !ok {
		return room.Member{}, room.ErrMemberNotFound
	}

	return member, nil
}

func (r *repo) RemoveMember(_ context.Context, params *room.RemoveMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	if _, ok := state.members[params.MemberId]; !ok {
		return room.ErrMemberNotFound
	}

	delete(state.members, params.MemberId)
	state.order = slices.DeleteFunc(state.order, func(id string) bool {
		return id == params.MemberId
	})

	return nil
}

func (r *repo) GetMemberIds(_ context.Context, roomCode string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	return slices.Clone(state.order), nil
}

func (r *repo) GetMembersCount(_ context.Context, roomCode string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return 0, room.ErrRoomNotFound
	}

	return len(state.order), nil
}

func (r *repo) SetPlayer(_ context.Context, params *room.SetPlayerParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.player = room.Player{
		VideoId:     params.VideoId,
		IsPlaying:   params.IsPlaying,
		CurrentTime: params.CurrentTime,
	}

	return nil
}

func (r *repo) GetPlayer(_ context.Context, roomCode string) (room.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return room.Player{}, room.ErrPlayerNotFound
	}

	return state.player, nil
}

func (r *repo) UpdatePlayerState(_ context.Context, params *room.UpdatePlayerStateParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrPlayerNotFound
	}

	state.player.IsPlaying = params.IsPlaying
	state.player.CurrentTime = params.CurrentTime

	return nil
}

func (r *repo) UpdatePlayerCurrentTime(_ context.Context, params *room.UpdatePlayerCurrentTimeParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrPlayerNotFound
	}

	state.player.CurrentTime = params.CurrentTime

	return nil
}
