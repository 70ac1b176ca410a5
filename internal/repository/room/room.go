package room

type Room struct {
	HostId    string `redis:"host_id" json:"host_id"`
	CreatedAt int64  `redis:"created_at" json:"created_at"`
}

type SetRoomParams struct {
	RoomCode  string `json:"room_code"`
	HostId    string `json:"host_id"`
	CreatedAt int64  `json:"created_at"`
}

type UpdateHostIdParams struct {
	RoomCode string `json:"room_code"`
	HostId   string `json:"host_id"`
}
