// Package chat 是服务端的客户端镜像：持有一条逻辑连接，断线自动重连，
// 去重加入请求，并把服务端事件按到达顺序转发给本地订阅者
package chat

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ws-chat/database"
	"github.com/ws-chat/peer"
	"github.com/ws-chat/wire"
)

const (
	reconnectTimes   = 10
	maxReconnectWait = time.Second * 30
)

// State 客户端状态机：
// Idle → Connecting → Connected ⇄ Reconnecting → Disposed
type State int32

// client states
const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateDisposed
)

// Handler 本地事件订阅者
type Handler func(msg *wire.Message)

// Config 客户端配置
type Config struct {
	// Addr 服务器地址，host:port
	Addr     string
	Secret   string
	Identity database.Identity

	// Peer 可选的底层连接参数
	Peer peer.Config
}

// Client 持有一条到服务器的逻辑连接
type Client struct {
	cfg Config

	mu       sync.Mutex
	state    State
	peer     *peer.Peer
	handlers map[wire.MsgType][]Handler
	connID   string
	serverID string

	// joined 已加入的频道，重连后按它恢复，重复加入在本地就被吃掉
	joined mapset.Set

	disposeOnce sync.Once
	quit        chan struct{}
}

// NewClient NewClient
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:      cfg,
		handlers: make(map[wire.MsgType][]Handler),
		joined:   mapset.NewSet(),
		quit:     make(chan struct{}),
	}
}

// State current state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectionID 服务器分配的连接标识，LoginAck 之后可用
func (c *Client) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

// On 订阅一类服务端事件。同一事件的多个订阅者各自收到一次。
// 订阅之前到达的事件没有监听者，直接丢弃。服务端在加入频道时
// 总会推送全量状态，不需要补发
func (c *Client) On(t wire.MsgType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = append(c.handlers[t], h)
}

// Connect 建立连接。只在 Idle 状态下有效
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dial()
	if err != nil {
		c.setState(StateConnecting, StateIdle)
		return err
	}
	c.bind(conn)
	return nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	id := c.cfg.Identity
	admin := "0"
	if id.IsAdmin {
		admin = "1"
	}
	nonce := fmt.Sprint(time.Now().UnixNano())

	h := md5.New()
	io.WriteString(h, fmt.Sprintf("%v%v%v%v", id.UserID, id.Name, admin, nonce))
	io.WriteString(h, c.cfg.Secret)
	digest := hex.EncodeToString(h.Sum(nil))

	query := url.Values{}
	query.Set("uid", id.UserID)
	query.Set("name", id.Name)
	query.Set("admin", admin)
	query.Set("nonce", nonce)
	query.Set("digest", digest)

	u := url.URL{Scheme: "ws", Host: c.cfg.Addr, Path: "/ws", RawQuery: query.Encode()}
	log.Printf("connecting to %s", u.Host)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Println("dial:", err)
		return nil, err
	}
	return conn, nil
}

// bind 挂上一条新的底层连接并恢复已加入的频道。
// 拨号和拿锁之间客户端可能已经被 Dispose，这种迟到的连接
// 直接关掉，不能把状态机顶回 Connected
func (c *Client) bind(conn *websocket.Conn) {
	pcfg := c.cfg.Peer
	pcfg.Listeners = &peer.MessageListeners{
		OnMessage:    c.onMessage,
		OnDisconnect: c.onDisconnect,
	}
	p := peer.NewPeer(fmt.Sprintf("C%v", c.cfg.Identity.UserID), &pcfg)

	c.mu.Lock()
	if c.state != StateConnecting && c.state != StateReconnecting {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.peer = p
	c.state = StateConnected
	c.mu.Unlock()

	p.SetConnection(conn)

	for _, key := range c.joined.ToSlice() {
		p.PushMessage(wire.NewMessage(uuid.New().String(), &wire.MsgJoinChannel{Channel: key.(string)}), nil)
	}
}

func (c *Client) onMessage(msg *wire.Message) error {
	switch body := msg.Body.(type) {
	case *wire.MsgLoginAck:
		c.mu.Lock()
		c.connID = body.ConnectionID
		c.serverID = body.ServerID
		c.mu.Unlock()
	case *wire.MsgChannelDeleted:
		c.joined.Remove(body.Channel)
	}

	c.mu.Lock()
	handlers := make([]Handler, len(c.handlers[msg.Type]))
	copy(handlers, c.handlers[msg.Type])
	c.mu.Unlock()

	for _, h := range handlers {
		dispatch(h, msg)
	}
	return nil
}

// 订阅者的 panic 不跨过事件边界
func dispatch(h Handler, msg *wire.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("handler for %v failed: %v", msg.Type, r)
		}
	}()
	h(msg)
}

func (c *Client) onDisconnect() error {
	if !c.setState(StateConnected, StateReconnecting) {
		// Disposed 或主动断开，不重连
		return nil
	}
	go c.reconnectLoop()
	return nil
}

func (c *Client) reconnectLoop() {
	wait := time.Second
	for i := 0; i < reconnectTimes; i++ {
		select {
		case <-c.quit:
			return
		case <-time.After(wait):
		}
		if wait *= 2; wait > maxReconnectWait {
			wait = maxReconnectWait
		}
		if c.State() != StateReconnecting {
			return
		}
		conn, err := c.dial()
		if err != nil {
			continue
		}
		// bind 自己会判断客户端是否已经不在重连状态
		c.bind(conn)
		if c.State() == StateConnected {
			log.Println("reconnected")
		}
		return
	}
	log.Println("give up reconnecting")
	c.setState(StateReconnecting, StateIdle)
}

// JoinChannel 加入频道。未连接时是 no-op；已加入过的频道
// 不再发起往返
func (c *Client) JoinChannel(name string) {
	key := wire.ChannelKey(name)
	c.mu.Lock()
	if c.state != StateConnected || c.peer == nil {
		c.mu.Unlock()
		return
	}
	p := c.peer
	c.mu.Unlock()

	// Add 返回 false 表示已经在集合里
	if !c.joined.Add(key) {
		return
	}
	p.PushMessage(wire.NewMessage(uuid.New().String(), &wire.MsgJoinChannel{Channel: key}), nil)
}

// LeaveChannel 离开频道。未连接时是 no-op
func (c *Client) LeaveChannel(name string) {
	key := wire.ChannelKey(name)
	c.joined.Remove(key)
	c.push(&wire.MsgLeaveChannel{Channel: key})
}

// SendMessage 发频道消息。未连接时是 no-op
func (c *Client) SendMessage(channel, text string) {
	c.push(&wire.MsgChat{Channel: wire.ChannelKey(channel), Text: text})
}

// SendPrivateMessage 发私信。未连接时是 no-op
func (c *Client) SendPrivateMessage(toUserID, text string) {
	c.push(&wire.MsgPrivateChat{To: toUserID, Text: text})
}

// MarkPrivateMessagesRead 把与 other 的会话标记已读
func (c *Client) MarkPrivateMessagesRead(otherUserID string) {
	c.push(&wire.MsgMarkPrivateRead{Other: otherUserID})
}

// Ping 应用层心跳
func (c *Client) Ping() {
	c.push(&wire.MsgPing{})
}

func (c *Client) push(body wire.Body) {
	c.mu.Lock()
	if c.state != StateConnected || c.peer == nil {
		c.mu.Unlock()
		return
	}
	p := c.peer
	c.mu.Unlock()
	p.PushMessage(wire.NewMessage(uuid.New().String(), body), nil)
}

// Dispose 终止客户端。可以安全地调用多次，传输层只会被释放一次
func (c *Client) Dispose() {
	c.disposeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateDisposed
		p := c.peer
		c.mu.Unlock()

		close(c.quit)
		if p != nil {
			p.Close()
		}
	})
}

func (c *Client) setState(from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return false
	}
	c.state = to
	return true
}
