package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/syncstream/server/internal/repository/wssender"
	"github.com/syncstream/server/internal/service/room"
	"github.com/syncstream/server/pkg/validator"
	"github.com/syncstream/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	DisconnectMember(context.Context, *room.DisconnectMemberParams) error
	LoadVideo(context.Context, *room.LoadVideoParams) error
	Play(context.Context, *room.PlaybackParams) error
	Pause(context.Context, *room.PlaybackParams) error
	Seek(context.Context, *room.PlaybackParams) error
	SendMessage(context.Context, *room.SendMessageParams) error
	GetRoomState(ctx context.Context, roomCode string) (room.RoomState, error)
	GetRecentMessages(ctx context.Context, roomCode string, limit int) ([]room.Message, error)
}

type controller struct {
	roomService iRoomService
	sender      *wssender.Repo
	upgrader    websocket.Upgrader
	wsmux       *wsrouter.WSRouter
	validate    *validator.Validator
	logger      *slog.Logger
}

func NewController(roomService iRoomService, sender *wssender.Repo, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		sender:      sender,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
