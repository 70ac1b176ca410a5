package controller

import "context"

type sessionState int

const (
	// connection established, no room association yet
	sessionUnbound sessionState = iota
	// associated with exactly one room and one member record
	sessionRoomBound
	// terminal, per-connection resources released
	sessionClosed
)

// session is the per-connection state machine. It is only ever touched
// from the connection's read-loop goroutine, so it needs no locking.
type session struct {
	connId   string
	state    sessionState
	roomCode string
}

func (s *session) bind(roomCode string) {
	s.state = sessionRoomBound
	s.roomCode = roomCode
}

func (s *session) unbind() {
	s.state = sessionUnbound
	s.roomCode = ""
}

type contextKey int

const (
	sessionCtxKey contextKey = iota
)

func (c *controller) getSessionFromCtx(ctx context.Context) *session {
	sess, ok := ctx.Value(sessionCtxKey).(*session)
	if !ok {
		return nil
	}

	return sess
}
