package wire

// MsgJoinChannel asks the server to join one channel.
type MsgJoinChannel struct {
	Channel string `json:"channel"`
}

// Msgtype Msgtype
func (m *MsgJoinChannel) Msgtype() MsgType { return MsgTypeJoinChannel }

// MsgLeaveChannel asks the server to leave one channel.
type MsgLeaveChannel struct {
	Channel string `json:"channel"`
}

// Msgtype Msgtype
func (m *MsgLeaveChannel) Msgtype() MsgType { return MsgTypeLeaveChannel }

// MsgChat is an outbound public message to a channel.
type MsgChat struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// Msgtype Msgtype
func (m *MsgChat) Msgtype() MsgType { return MsgTypeChat }

// MsgPrivateChat is an outbound private message to one user.
type MsgPrivateChat struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Msgtype Msgtype
func (m *MsgPrivateChat) Msgtype() MsgType { return MsgTypePrivateChat }

// MsgMarkPrivateRead marks the conversation with Other as read.
type MsgMarkPrivateRead struct {
	Other string `json:"other"`
}

// Msgtype Msgtype
func (m *MsgMarkPrivateRead) Msgtype() MsgType { return MsgTypeMarkPrivateRead }

// MsgPing application-level liveness probe.
type MsgPing struct{}

// Msgtype Msgtype
func (m *MsgPing) Msgtype() MsgType { return MsgTypePing }
