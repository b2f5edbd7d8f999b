package hub

import (
	"github.com/gorilla/websocket"
	"github.com/ws-chat/database"
	"github.com/ws-chat/peer"
	"github.com/ws-chat/wire"
)

// ClientPeer 代表一个客户端连接，驱动它的生命周期：
// 建立时登记到 Registry，断开时注销并补发离开广播
type ClientPeer struct {
	*peer.Peer
	connID   string
	identity database.Identity
	hub      *Hub
}

// OnMessage 分发来自客户端的请求
func (p *ClientPeer) OnMessage(msg *wire.Message) error {
	p.hub.registry.Touch(p.connID)

	switch body := msg.Body.(type) {
	case *wire.MsgJoinChannel:
		return p.hub.session.Join(p.connID, body.Channel)
	case *wire.MsgLeaveChannel:
		return p.hub.session.Leave(p.connID, body.Channel)
	case *wire.MsgChat:
		return p.hub.router.SendChannelMessage(p.connID, body.Channel, body.Text)
	case *wire.MsgPrivateChat:
		return p.hub.router.SendPrivateMessage(p.connID, body.To, body.Text)
	case *wire.MsgMarkPrivateRead:
		return p.hub.router.MarkPrivateMessagesRead(p.connID, body.Other)
	case *wire.MsgPing:
		p.hub.registry.TouchPing(p.connID)
		pong, _ := wire.MakeEmptyMessage(wire.MsgTypePong)
		pong.ID = msg.ID
		p.PushMessage(pong, nil)
	}
	return nil
}

// OnPong 传输层心跳应答
func (p *ClientPeer) OnPong() error {
	p.hub.registry.TouchPing(p.connID)
	return nil
}

// OnDisconnect 连接断开
func (p *ClientPeer) OnDisconnect() error {
	p.hub.unregister <- &delPeer{peer: p}
	return nil
}

func newClientPeer(connID string, identity database.Identity, h *Hub, conn *websocket.Conn) *ClientPeer {
	clientPeer := &ClientPeer{
		connID:   connID,
		identity: identity,
		hub:      h,
	}

	p := peer.NewPeer(connID, &peer.Config{
		Listeners: &peer.MessageListeners{
			OnMessage:    clientPeer.OnMessage,
			OnPong:       clientPeer.OnPong,
			OnDisconnect: clientPeer.OnDisconnect,
		},
		MaxMessageSize: h.config.Peer.MaxMessageSize,
		WriteWait:      h.config.Peer.WriteWaitDuration(),
		PongWait:       h.config.Peer.PongWaitDuration(),
		PingPeriod:     h.config.Peer.PingPeriodDuration(),
	})

	clientPeer.Peer = p
	clientPeer.SetConnection(conn)

	return clientPeer
}
