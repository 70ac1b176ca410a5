package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

func (r repo) getRoomKey(roomCode string) string {
	return "room:" + roomCode
}

func (r repo) getPlayerKey(roomCode string) string {
	return "room:" + roomCode + ":player"
}

func (r repo) getMemberListKey(roomCode string) string {
	return "room:" + roomCode + ":memberlist"
}

func (r repo) getMemberKey(roomCode, memberId string) string {
	return "room:" + roomCode + ":member:" + memberId
}

// addWithIncrement appends the value to a sorted set with a score one
// above the current maximum, preserving insertion order.
func (r repo) addWithIncrement(ctx context.Context, c redis.Scripter, key string, value any) {
	c.EvalSha(ctx, r.maxScoreScript, []string{key}, value)
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
