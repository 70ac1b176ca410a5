package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/syncstream/server/internal/service/room"
	"github.com/syncstream/server/pkg/rest"
)

func (c *controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "room-code")

	roomState, err := c.roomService.GetRoomState(r.Context(), roomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to get room state", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": roomState})
}

func (c *controller) getRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "room-code")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := c.roomService.GetRecentMessages(r.Context(), roomCode, limit)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to get recent messages", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": messages})
}
