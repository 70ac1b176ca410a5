package room

import (
	"context"
	"fmt"
	"slices"
)

// getMemberIdsExcept returns the room's member ids without the sender,
// playback deltas never echo back to the member who issued them.
func (s *service) getMemberIdsExcept(ctx context.Context, roomCode, excludedId string) ([]string, error) {
	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	return slices.DeleteFunc(memberIds, func(id string) bool {
		return id == excludedId
	}), nil
}
