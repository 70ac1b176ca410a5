package wssender

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

// conn serializes writes, gorilla/websocket allows only one concurrent
// writer per connection.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteJSON(v)
}

type Repo struct {
	conns  map[string]*conn
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *Repo {
	return &Repo{
		conns:  make(map[string]*conn),
		logger: logger,
	}
}

func (r *Repo) Add(connId string, ws *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connId]; ok {
		return ErrAlreadyExists
	}

	r.conns[connId] = &conn{ws: ws}

	return nil
}

func (r *Repo) Remove(connId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connId]; !ok {
		return ErrNotFound
	}

	delete(r.conns, connId)

	return nil
}

func (r *Repo) Send(ctx context.Context, connId string, v any) error {
	r.mu.RLock()
	c, ok := r.conns[connId]
	r.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}

	if err := c.writeJSON(v); err != nil {
		r.logger.DebugContext(ctx, "failed to write to connection", "conn_id", connId, "error", err)
		return err
	}

	return nil
}

// Broadcast writes to every listed connection, skipping ones that are
// already gone. A write failure on one connection does not stop it from
// reaching the rest.
func (r *Repo) Broadcast(ctx context.Context, connIds []string, v any) {
	for _, connId := range connIds {
		//nolint:errcheck
		r.Send(ctx, connId, v)
	}
}
