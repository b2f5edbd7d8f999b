package wire

import "time"

// ChatMessage is the routing envelope of one public message.
type ChatMessage struct {
	ID       string    `json:"id"`
	Channel  string    `json:"channel"`
	FromID   string    `json:"fromId"`
	FromName string    `json:"fromName"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

// PrivateMessage is the routing envelope of one private message.
type PrivateMessage struct {
	ID       string    `json:"id"`
	FromID   string    `json:"fromId"`
	FromName string    `json:"fromName"`
	ToID     string    `json:"toId"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

// MsgLoginAck tells a client the connection id the server assigned.
type MsgLoginAck struct {
	ConnectionID string `json:"connectionId"`
	ServerID     string `json:"serverId"`
}

// Msgtype Msgtype
func (m *MsgLoginAck) Msgtype() MsgType { return MsgTypeLoginAck }

// MsgReceiveMessage delivers one public message to a channel member.
type MsgReceiveMessage struct {
	Message ChatMessage `json:"message"`
}

// Msgtype Msgtype
func (m *MsgReceiveMessage) Msgtype() MsgType { return MsgTypeReceiveMessage }

// MsgUserJoined somebody joined a channel.
type MsgUserJoined struct {
	Channel string `json:"channel"`
	UserID  string `json:"userId"`
	Name    string `json:"name"`
}

// Msgtype Msgtype
func (m *MsgUserJoined) Msgtype() MsgType { return MsgTypeUserJoined }

// MsgUserLeft somebody left a channel.
type MsgUserLeft struct {
	Channel string `json:"channel"`
	UserID  string `json:"userId"`
	Name    string `json:"name"`
}

// Msgtype Msgtype
func (m *MsgUserLeft) Msgtype() MsgType { return MsgTypeUserLeft }

// MsgUserMuted a moderator muted a user in a channel. Never delivered
// to the muted user's own connections.
type MsgUserMuted struct {
	Channel     string `json:"channel"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	MutedBy     string `json:"mutedBy"`
	MutedByName string `json:"mutedByName"`
}

// Msgtype Msgtype
func (m *MsgUserMuted) Msgtype() MsgType { return MsgTypeUserMuted }

// MsgUserUnmuted a moderator lifted a user mute.
type MsgUserUnmuted struct {
	Channel       string `json:"channel"`
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	UnmutedBy     string `json:"unmutedBy"`
	UnmutedByName string `json:"unmutedByName"`
}

// Msgtype Msgtype
func (m *MsgUserUnmuted) Msgtype() MsgType { return MsgTypeUserUnmuted }

// MsgChannelMuteChanged the channel-wide mute flag flipped.
type MsgChannelMuteChanged struct {
	Channel       string `json:"channel"`
	IsMuted       bool   `json:"isMuted"`
	ActiveManager string `json:"activeManager"`
}

// Msgtype Msgtype
func (m *MsgChannelMuteChanged) Msgtype() MsgType { return MsgTypeChannelMuteChanged }

// MsgMessageBlocked a send was rejected by mute policy. Sent to the
// sender's connection only.
type MsgMessageBlocked struct {
	Channel string `json:"channel"`
	Reason  string `json:"reason"`
}

// Msgtype Msgtype
func (m *MsgMessageBlocked) Msgtype() MsgType { return MsgTypeMessageBlocked }

// MsgMessageDeleted a persisted message was soft-deleted.
type MsgMessageDeleted struct {
	MessageID string `json:"messageId"`
	Channel   string `json:"channel"`
}

// Msgtype Msgtype
func (m *MsgMessageDeleted) Msgtype() MsgType { return MsgTypeMessageDeleted }

// MsgChannelDeleted the channel no longer exists.
type MsgChannelDeleted struct {
	Channel string `json:"channel"`
}

// Msgtype Msgtype
func (m *MsgChannelDeleted) Msgtype() MsgType { return MsgTypeChannelDeleted }

// MsgChannelNotFound the requested channel does not exist. Sent to the
// requesting connection only.
type MsgChannelNotFound struct {
	Channel string `json:"channel"`
}

// Msgtype Msgtype
func (m *MsgChannelNotFound) Msgtype() MsgType { return MsgTypeChannelNotFound }

// MsgChannelListUpdated the global channel list changed.
type MsgChannelListUpdated struct {
	Channels []string `json:"channels"`
}

// Msgtype Msgtype
func (m *MsgChannelListUpdated) Msgtype() MsgType { return MsgTypeChannelListUpdated }

// MsgReceivePrivate delivers a private message to the recipient.
type MsgReceivePrivate struct {
	Message PrivateMessage `json:"message"`
}

// Msgtype Msgtype
func (m *MsgReceivePrivate) Msgtype() MsgType { return MsgTypeReceivePrivate }

// MsgPrivateSent echoes a sent private message back to every
// connection of the sender, so multi-device senders stay in sync.
type MsgPrivateSent struct {
	Message PrivateMessage `json:"message"`
}

// Msgtype Msgtype
func (m *MsgPrivateSent) Msgtype() MsgType { return MsgTypePrivateSent }

// MsgPrivateRead the conversation between Reader and Other was marked
// read by Reader.
type MsgPrivateRead struct {
	Reader string `json:"reader"`
	Other  string `json:"other"`
}

// Msgtype Msgtype
func (m *MsgPrivateRead) Msgtype() MsgType { return MsgTypePrivateRead }

// MsgPong answer to MsgPing.
type MsgPong struct{}

// Msgtype Msgtype
func (m *MsgPong) Msgtype() MsgType { return MsgTypePong }
