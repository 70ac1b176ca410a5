package room

// Player holds the authoritative playback tuple for a room. VideoId is
// empty until the host loads a video. CurrentTime only moves on explicit
// client commands, the server never advances it on its own.
type Player struct {
	VideoId     string  `redis:"video_id" json:"video_id"`
	IsPlaying   bool    `redis:"is_playing" json:"is_playing"`
	CurrentTime float64 `redis:"current_time" json:"current_time"`
}

type SetPlayerParams struct {
	VideoId     string  `json:"video_id"`
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	RoomCode    string  `json:"room_code"`
}

type UpdatePlayerStateParams struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	RoomCode    string  `json:"room_code"`
}

type UpdatePlayerCurrentTimeParams struct {
	CurrentTime float64 `json:"current_time"`
	RoomCode    string  `json:"room_code"`
}
