package peer

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ws-chat/wire"
)

const (
	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	defaultPingPeriod = (defaultPongWait * 8) / 10

	// Maximum message size allowed from peer.
	defaultMaxMessageSize = 4096

	defaultMessageQueueLen = 32
)

// MessageListeners 消息监听
type MessageListeners struct {
	// OnMessage is invoked for every decoded frame from the peer.
	OnMessage func(msg *wire.Message) error

	// OnPong is invoked when a transport-level pong arrives. Optional.
	OnPong func() error

	OnDisconnect func() error
}

// Config 节点配置
type Config struct {
	// Time allowed to write a message to the peer.
	WriteWait time.Duration
	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration
	// Send pings to peer with this period. Must be less than pongWait.
	PingPeriod time.Duration
	// Maximum message size allowed from peer.
	MaxMessageSize int

	// MessageQueueLen message len
	MessageQueueLen int

	Listeners *MessageListeners
}

type outMessage struct {
	message *wire.Message
	done    chan<- struct{}
}

// Peer 封装了 websocket 通信底层接口
type Peer struct {
	id     string
	config *Config
	conn   *websocket.Conn
	send   chan outMessage

	timeConnected time.Time

	connected int32
}

// NewPeer 创建一个新的节点
func NewPeer(id string, config *Config) *Peer {
	if config.WriteWait == 0 {
		config.WriteWait = defaultWriteWait
	}
	if config.PongWait == 0 {
		config.PongWait = defaultPongWait
	}
	if config.PingPeriod == 0 {
		config.PingPeriod = defaultPingPeriod
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = defaultMaxMessageSize
	}
	if config.MessageQueueLen == 0 {
		config.MessageQueueLen = defaultMessageQueueLen
	}

	if config.PingPeriod >= config.PongWait {
		config.PingPeriod = (config.PongWait * 9) / 10
	}
	return &Peer{
		id:     id,
		config: config,
		send:   make(chan outMessage, config.MessageQueueLen),
	}
}

// ID peer id
func (p *Peer) ID() string {
	return p.id
}

// IsConnected IsConnected
func (p *Peer) IsConnected() bool {
	return atomic.LoadInt32(&p.connected) == 1
}

// SetConnection bind connection , start
func (p *Peer) SetConnection(conn *websocket.Conn) {
	// Already connected?
	if !atomic.CompareAndSwapInt32(&p.connected, 0, 1) {
		return
	}

	p.conn = conn
	p.timeConnected = time.Now()

	p.start()
}

func (p *Peer) start() {
	go p.handleRead()
	go p.handleWrite()
}

func (p *Peer) handleRead() {
	defer func() {
		p.disconnect()
		if p.config.Listeners.OnDisconnect != nil {
			p.config.Listeners.OnDisconnect()
		}
	}()
	p.conn.SetReadLimit(int64(p.config.MaxMessageSize))
	p.conn.SetReadDeadline(time.Now().Add(p.config.PongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(p.config.PongWait))
		if p.config.Listeners.OnPong != nil {
			p.config.Listeners.OnPong()
		}
		return nil
	})
	for {
		messageType, message, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("peer %v read error: %v", p.id, err)
			}
			break
		}
		if messageType == websocket.CloseMessage {
			log.Printf("closed: %v", p.id)
			break
		}

		msg, err := wire.Unmarshal(message)
		if err != nil {
			log.Printf("bad frame from %v: %v", p.id, err)
			continue
		}
		// 监听器的错误不进读循环
		if err := p.config.Listeners.OnMessage(msg); err != nil {
			log.Printf("peer %v message error: %v", p.id, err)
		}
	}
}

func (p *Peer) handleWrite() {
	ticker := time.NewTicker(p.config.PingPeriod)
	defer func() {
		ticker.Stop()
		p.disconnect()
	}()
	for {
		select {
		case outMessage, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteWait))
			if !ok {
				// The peer was closed.
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			buf, err := outMessage.message.Marshal()
			if err != nil {
				log.Printf("peer %v marshal error: %v", p.id, err)
				signalDone(outMessage.done)
				continue
			}
			err = p.conn.WriteMessage(websocket.TextMessage, buf)
			signalDone(outMessage.done)
			if err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func signalDone(done chan<- struct{}) {
	if done != nil {
		done <- struct{}{}
	}
}

// PushMessage 把消息写到队列中，等待发送。连接已断开时静默丢弃，
// 不向调用方抛错
func (p *Peer) PushMessage(message *wire.Message, doneChan chan<- struct{}) {
	if atomic.LoadInt32(&p.connected) == 0 {
		if doneChan != nil {
			go func() {
				doneChan <- struct{}{}
			}()
		}
		return
	}
	defer func() {
		// 和 Close 并发时队列可能已关闭，按断开处理
		if recover() != nil && doneChan != nil {
			go func() {
				doneChan <- struct{}{}
			}()
		}
	}()
	p.send <- outMessage{message: message, done: doneChan}
}

// Close close conn
func (p *Peer) Close() {
	p.disconnect()
}

// 断开连接并释放发送队列。队列必须随连接一起关闭：
// 写泵死掉后还堵在 PushMessage 里的调用方要靠它解除阻塞
func (p *Peer) disconnect() {
	if !atomic.CompareAndSwapInt32(&p.connected, 1, 0) {
		return
	}
	close(p.send)
	p.conn.Close()
}
