package wire

import (
	"errors"
	"strings"
)

// MsgType identifies the kind of payload a Message carries.
type MsgType string

// client -> server
const (
	MsgTypeJoinChannel     MsgType = "join_channel"
	MsgTypeLeaveChannel    MsgType = "leave_channel"
	MsgTypeChat            MsgType = "chat"
	MsgTypePrivateChat     MsgType = "private_chat"
	MsgTypeMarkPrivateRead MsgType = "mark_private_read"
	MsgTypePing            MsgType = "ping"
)

// server -> client
const (
	MsgTypeLoginAck           MsgType = "login_ack"
	MsgTypeReceiveMessage     MsgType = "receive_message"
	MsgTypeUserJoined         MsgType = "user_joined"
	MsgTypeUserLeft           MsgType = "user_left"
	MsgTypeUserMuted          MsgType = "user_muted"
	MsgTypeUserUnmuted        MsgType = "user_unmuted"
	MsgTypeChannelMuteChanged MsgType = "channel_mute_changed"
	MsgTypeMessageBlocked     MsgType = "message_blocked"
	MsgTypeMessageDeleted     MsgType = "message_deleted"
	MsgTypeChannelDeleted     MsgType = "channel_deleted"
	MsgTypeChannelNotFound    MsgType = "channel_not_found"
	MsgTypeChannelListUpdated MsgType = "channel_list_updated"
	MsgTypeReceivePrivate     MsgType = "receive_private_message"
	MsgTypePrivateSent        MsgType = "private_message_sent"
	MsgTypePrivateRead        MsgType = "private_messages_read"
	MsgTypePong               MsgType = "pong"
)

var (
	// ErrUnknownMsgType the message type has no registered body
	ErrUnknownMsgType = errors.New("unknown message type")
	// ErrEmptyMessage decoded frame has no type
	ErrEmptyMessage = errors.New("empty message")
)

// ChannelKey normalizes a channel name. Channel names are
// case-insensitive keys everywhere in the system.
func ChannelKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
