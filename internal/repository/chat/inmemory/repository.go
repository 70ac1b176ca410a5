package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/syncstream/server/internal/repository/chat"
)

type repo struct {
	messages     map[string][]chat.Message
	historyLimit int
	mu           sync.RWMutex
}

func NewRepo(historyLimit int) *repo {
	return &repo{
		messages:     make(map[string][]chat.Message),
		historyLimit: historyLimit,
	}
}

func (r *repo) AppendMessage(_ context.Context, params *chat.AppendMessageParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := append(r.messages[params.RoomCode], chat.Message{
		Sender:    params.Sender,
		Text:      params.Text,
		Timestamp: params.Timestamp,
	})
	if len(history) > r.historyLimit {
		history = history[len(history)-r.historyLimit:]
	}
	r.messages[params.RoomCode] = history

	return nil
}

func (r *repo) GetRecentMessages(_ context.Context, roomCode string, limit int) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := r.messages[roomCode]
	if len(history) > limit {
		history = history[len(history)-limit:]
	}

	return slices.Clone(history), nil
}

func (r *repo) PurgeRoom(_ context.Context, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.messages, roomCode)

	return nil
}
