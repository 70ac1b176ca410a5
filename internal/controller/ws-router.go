package controller

import (
	"github.com/syncstream/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.requestIdWSMw())
	mux.Use(c.loggerWSMw())
	mux.Use(c.errorWSMw())

	mux.Handle("alive", c.handleAlive)

	// room lifecycle
	mux.Handle("create_room", c.handleCreateRoom)
	mux.Handle("join_room", c.handleJoinRoom)
	mux.Handle("leave_room", c.handleLeaveRoom)

	// playback
	mux.Handle("load_video", c.handleLoadVideo)
	mux.Handle("play", c.handlePlay)
	mux.Handle("pause", c.handlePause)
	mux.Handle("seek", c.handleSeek)

	// chat
	mux.Handle("chat_message", c.handleChatMessage)

	mux.NotFound(c.handleUnknown)

	return mux
}
