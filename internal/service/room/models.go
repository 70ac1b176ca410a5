package room

// Event is the wire envelope for every outbound websocket message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// PlayerState is the synchronization snapshot sent to a joining
// connection and returned by the REST room endpoint. VideoId is null
// until the host loads a video.
type PlayerState struct {
	VideoId     *string `json:"video_id"`
	CurrentTime float64 `json:"current_time"`
	IsPlaying   bool    `json:"is_playing"`
}

type RoomState struct {
	RoomCode     string  `json:"room_code"`
	VideoId      *string `json:"video_id"`
	CurrentTime  float64 `json:"current_time"`
	IsPlaying    bool    `json:"is_playing"`
	Participants int     `json:"participants"`
	CreatedAt    int64   `json:"created_at"`
}

type Message struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
