package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/syncstream/server/internal/repository/chat"
)

type repo struct {
	rc             *redis.Client
	historyLimit   int
	expireDuration time.Duration
}

func NewRepo(rc *redis.Client, historyLimit int, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		historyLimit:   historyLimit,
		expireDuration: expireDuration,
	}
}

func (r repo) getMessagesKey(roomCode string) string {
	return "room:" + roomCode + ":messages"
}

func (r repo) AppendMessage(ctx context.Context, params *chat.AppendMessageParams) error {
	message, err := json.Marshal(chat.Message{
		Sender:    params.Sender,
		Text:      params.Text,
		Timestamp: params.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	messagesKey := r.getMessagesKey(params.RoomCode)
	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, messagesKey, message)
	pipe.LTrim(ctx, messagesKey, int64(-r.historyLimit), -1)
	pipe.Expire(ctx, messagesKey, r.expireDuration)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// GetRecentMessages returns up to limit messages in chronological order,
// oldest first.
func (r repo) GetRecentMessages(ctx context.Context, roomCode string, limit int) ([]chat.Message, error) {
	raw, err := r.rc.LRange(ctx, r.getMessagesKey(roomCode), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}

	messages := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var message chat.Message
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}

		messages = append(messages, message)
	}

	return messages, nil
}

func (r repo) PurgeRoom(ctx context.Context, roomCode string) error {
	if err := r.rc.Del(ctx, r.getMessagesKey(roomCode)).Err(); err != nil {
		return fmt.Errorf("failed to purge room messages: %w", err)
	}

	return nil
}
