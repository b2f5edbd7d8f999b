package wire

import (
	"encoding/json"
	"io"
)

// Message is the envelope every frame on the wire travels in.
// ID is a 128-bit unique id assigned by the producer.
type Message struct {
	Type MsgType `json:"type"`
	ID   string  `json:"id,omitempty"`
	Body Body    `json:"body,omitempty"`
}

// Body is one typed payload. Every payload type registers itself
// through makeEmptyBody so Decode can rebuild it from the type tag.
type Body interface {
	Msgtype() MsgType
}

type rawMessage struct {
	Type MsgType         `json:"type"`
	ID   string          `json:"id,omitempty"`
	Body json.RawMessage `json:"body,omitempty"`
}

func makeEmptyBody(t MsgType) Body {
	switch t {
	case MsgTypeJoinChannel:
		return &MsgJoinChannel{}
	case MsgTypeLeaveChannel:
		return &MsgLeaveChannel{}
	case MsgTypeChat:
		return &MsgChat{}
	case MsgTypePrivateChat:
		return &MsgPrivateChat{}
	case MsgTypeMarkPrivateRead:
		return &MsgMarkPrivateRead{}
	case MsgTypePing:
		return &MsgPing{}
	case MsgTypeLoginAck:
		return &MsgLoginAck{}
	case MsgTypeReceiveMessage:
		return &MsgReceiveMessage{}
	case MsgTypeUserJoined:
		return &MsgUserJoined{}
	case MsgTypeUserLeft:
		return &MsgUserLeft{}
	case MsgTypeUserMuted:
		return &MsgUserMuted{}
	case MsgTypeUserUnmuted:
		return &MsgUserUnmuted{}
	case MsgTypeChannelMuteChanged:
		return &MsgChannelMuteChanged{}
	case MsgTypeMessageBlocked:
		return &MsgMessageBlocked{}
	case MsgTypeMessageDeleted:
		return &MsgMessageDeleted{}
	case MsgTypeChannelDeleted:
		return &MsgChannelDeleted{}
	case MsgTypeChannelNotFound:
		return &MsgChannelNotFound{}
	case MsgTypeChannelListUpdated:
		return &MsgChannelListUpdated{}
	case MsgTypeReceivePrivate:
		return &MsgReceivePrivate{}
	case MsgTypePrivateSent:
		return &MsgPrivateSent{}
	case MsgTypePrivateRead:
		return &MsgPrivateRead{}
	case MsgTypePong:
		return &MsgPong{}
	}
	return nil
}

// MakeEmptyMessage builds a Message with a zero body of the given type.
func MakeEmptyMessage(t MsgType) (*Message, error) {
	body := makeEmptyBody(t)
	if body == nil {
		return nil, ErrUnknownMsgType
	}
	return &Message{Type: t, Body: body}, nil
}

// NewMessage wraps a body into an envelope with the given id.
func NewMessage(id string, body Body) *Message {
	return &Message{Type: body.Msgtype(), ID: id, Body: body}
}

// Encode writes the message as one JSON frame.
func (m *Message) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(m)
}

// Marshal returns the JSON frame bytes.
func (m *Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ReadMessage decodes one JSON frame into a typed Message.
func ReadMessage(r io.Reader) (*Message, error) {
	var raw rawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	return fromRaw(&raw)
}

// Unmarshal decodes a JSON frame from bytes.
func Unmarshal(data []byte) (*Message, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return fromRaw(&raw)
}

func fromRaw(raw *rawMessage) (*Message, error) {
	if raw.Type == "" {
		return nil, ErrEmptyMessage
	}
	body := makeEmptyBody(raw.Type)
	if body == nil {
		return nil, ErrUnknownMsgType
	}
	if len(raw.Body) > 0 {
		if err := json.Unmarshal(raw.Body, body); err != nil {
			return nil, err
		}
	}
	return &Message{Type: raw.Type, ID: raw.ID, Body: body}, nil
}
