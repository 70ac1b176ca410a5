package chat

// Message is a single chat entry while its room is alive. History is
// room-scoped and purged together with the room.
type Message struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type AppendMessageParams struct {
	RoomCode  string `json:"room_code"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}
