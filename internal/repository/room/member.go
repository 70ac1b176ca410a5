package room

type Member struct {
	Username string `redis:"username" json:"username"`
	JoinedAt int64  `redis:"joined_at" json:"joined_at"`
}

type SetMemberParams struct {
	MemberId string `json:"member_id"`
	Username string `json:"username"`
	JoinedAt int64  `json:"joined_at"`
	RoomCode string `json:"room_code"`
}

type GetMemberParams struct {
	MemberId string `json:"member_id"`
	RoomCode string `json:"room_code"`
}

type RemoveMemberParams struct {
	MemberId string `json:"member_id"`
	RoomCode string `json:"room_code"`
}
