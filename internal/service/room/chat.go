package room

import (
	"context"
	"fmt"
	"time"

	"github.com/syncstream/server/internal/repository/chat"
)

type SendMessageParams struct {
	ConnId   string
	RoomCode string
	Sender   string
	Message  string
}

// SendMessage relays a chat line to every member, sender included, and
// persists it in the background. Chat history is not on the playback
// consistency path, a storage failure only costs the message.
func (s *service) SendMessage(ctx context.Context, params *SendMessageParams) error {
	unlock := s.lockRoom(params.RoomCode)
	defer unlock()

	exists, err := s.roomRepo.RoomExists(ctx, params.RoomCode)
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exists {
		return ErrRoomNotFound
	}

	memberIds, err := s.roomRepo.GetMemberIds(ctx, params.RoomCode)
	if err != nil {
		return fmt.Errorf("failed to get member ids: %w", err)
	}

	message := Message{
		Sender:    params.Sender,
		Message:   params.Message,
		Timestamp: time.Now().UnixMilli(),
	}

	s.broadcastChatMessage(ctx, memberIds, message)

	go func() {
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.chatTimeout)
		defer cancel()

		if err := s.chatRepo.AppendMessage(persistCtx, &chat.AppendMessageParams{
			RoomCode:  params.RoomCode,
			Sender:    message.Sender,
			Text:      message.Message,
			Timestamp: message.Timestamp,
		}); err != nil {
			s.logger.WarnContext(persistCtx, "failed to persist chat message", "room_code", params.RoomCode, "error", err)
		}
	}()

	return nil
}

// GetRecentMessages returns the newest persisted chat lines in
// chronological order, capped by the configured history limit.
func (s *service) GetRecentMessages(ctx context.Context, roomCode string, limit int) ([]Message, error) {
	exists, err := s.roomRepo.RoomExists(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exists {
		return nil, ErrRoomNotFound
	}

	if limit <= 0 || limit > s.chatHistoryLimit {
		limit = s.chatHistoryLimit
	}

	history, err := s.chatRepo.GetRecentMessages(ctx, roomCode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}

	messages := make([]Message, 0, len(history))
	for _, item := range history {
		messages = append(messages, Message{
			Sender:    item.Sender,
			Message:   item.Text,
			Timestamp: item.Timestamp,
		})
	}

	return messages, nil
}
