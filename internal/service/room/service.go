package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/syncstream/server/internal/repository/chat"
	"github.com/syncstream/server/internal/repository/room"
	"github.com/syncstream/server/pkg/randstr"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrRoomFull         = errors.New("room is full")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	RoomExists(context.Context, string) (bool, error)
	GetHostId(context.Context, string) (string, error)
	UpdateHostId(context.Context, *room.UpdateHostIdParams) error
	RemoveRoom(context.Context, string) error
	// member
	SetMember(context.Context, *room.SetMemberParams) error
	GetMember(context.Context, *room.GetMemberParams) (room.Member, error)
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	GetMemberIds(context.Context, string) ([]string, error)
	GetMembersCount(context.Context, string) (int, error)
	// player
	SetPlayer(context.Context, *room.SetPlayerParams) error
	GetPlayer(context.Context, string) (room.Player, error)
	UpdatePlayerState(context.Context, *room.UpdatePlayerStateParams) error
	UpdatePlayerCurrentTime(context.Context, *room.UpdatePlayerCurrentTimeParams) error
}

type iChatRepo interface {
	AppendMessage(context.Context, *chat.AppendMessageParams) error
	GetRecentMessages(ctx context.Context, roomCode string, limit int) ([]chat.Message, error)
	PurgeRoom(ctx context.Context, roomCode string) error
}

type iSender interface {
	Send(ctx context.Context, connId string, v any) error
	Broadcast(ctx context.Context, connIds []string, v any)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	MembersLimit     int
	RoomCodeLength   int
	ChatHistoryLimit int
	ChatTimeout      time.Duration
}

type service struct {
	roomRepo  iRoomRepo
	chatRepo  iChatRepo
	sender    iSender
	generator iGenerator
	logger    *slog.Logger

	membersLimit     int
	roomCodeLength   int
	chatHistoryLimit int
	chatTimeout      time.Duration

	// one mutex per live room, created on demand. Every mutation of a
	// room's state runs under its mutex, operations on different rooms
	// never contend.
	roomLocks sync.Map
}

func NewService(roomRepo iRoomRepo, chatRepo iChatRepo, sender iSender, cfg *Config, logger *slog.Logger) *service {
	s := service{
		roomRepo:         roomRepo,
		chatRepo:         chatRepo,
		sender:           sender,
		logger:           logger,
		membersLimit:     cfg.MembersLimit,
		roomCodeLength:   cfg.RoomCodeLength,
		chatHistoryLimit: cfg.ChatHistoryLimit,
		chatTimeout:      cfg.ChatTimeout,
	}

	letterBytes := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}

func (s *service) lockRoom(roomCode string) func() {
	v, _ := s.roomLocks.LoadOrStore(roomCode, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// dropRoomLock forgets the mutex of a destroyed room. Goroutines still
// waiting on the old mutex will find the room gone once they get it.
func (s *service) dropRoomLock(roomCode string) {
	s.roomLocks.Delete(roomCode)
}
