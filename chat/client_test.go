package chat

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

// chatServer 回环测试服务器：升级连接、回 LoginAck、记录收到的帧，
// 并把 join 回显成 UserJoined 事件
type chatServer struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  []*websocket.Conn
	frames []*wire.Message
}

func (s *chatServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	n := len(s.conns)
	s.mu.Unlock()

	s.write(conn, &wire.MsgLoginAck{ConnectionID: fmt.Sprintf("conn-%d", n), ServerID: "s1"})

	for {
		_, buf, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := wire.Unmarshal(buf)
		if err != nil {
			continue
		}
		s.mu.Lock()
		s.frames = append(s.frames, msg)
		s.mu.Unlock()

		switch body := msg.Body.(type) {
		case *wire.MsgJoinChannel:
			s.write(conn, &wire.MsgUserJoined{Channel: body.Channel, UserID: "alice", Name: "Alice"})
		case *wire.MsgPing:
			s.write(conn, &wire.MsgPong{})
		}
	}
}

func (s *chatServer) write(conn *websocket.Conn, body wire.Body) {
	buf, err := wire.NewMessage(fmt.Sprint(time.Now().UnixNano()), body).Marshal()
	if err != nil {
		return
	}
	conn.WriteMessage(websocket.TextMessage, buf)
}

func (s *chatServer) frameCount(t wire.MsgType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, msg := range s.frames {
		if msg.Type == t {
			count++
		}
	}
	return count
}

func (s *chatServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *chatServer) closeConn(i int) {
	s.mu.Lock()
	conn := s.conns[i]
	s.mu.Unlock()
	conn.Close()
}

func newTestServer() (*chatServer, *httptest.Server) {
	cs := &chatServer{}
	srv := httptest.NewServer(http.HandlerFunc(cs.handle))
	return cs, srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		Addr:     strings.TrimPrefix(srv.URL, "http://"),
		Secret:   "test",
		Identity: database.Identity{UserID: "alice", Name: "Alice"},
	})
}

// waitUntil 轮询直到条件成立或超时
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond * 20)
	}
	t.Fatal("condition not met in time")
}

func TestClient_NoopBeforeConnect(t *testing.T) {
	c := NewClient(Config{Addr: "127.0.0.1:0"})

	// 未连接时所有发送都是 no-op，不报错不恐慌
	c.JoinChannel("general")
	c.LeaveChannel("general")
	c.SendMessage("general", "hello")
	c.SendPrivateMessage("bob", "psst")
	c.Ping()

	assert.Equal(t, StateIdle, c.State())
}

func TestClient_Connect(t *testing.T) {
	cs, srv := newTestServer()
	defer srv.Close()

	c := newTestClient(srv)
	defer c.Dispose()

	require.NoError(t, c.Connect())
	assert.Equal(t, StateConnected, c.State())

	waitUntil(t, time.Second*2, func() bool { return c.ConnectionID() != "" })
	assert.Equal(t, "conn-1", c.ConnectionID())
	assert.Equal(t, 1, cs.connCount())

	// 已连接状态下重复 Connect 是 no-op
	require.NoError(t, c.Connect())
	assert.Equal(t, 1, cs.connCount())
}

func TestClient_JoinDedup(t *testing.T) {
	cs, srv := newTestServer()
	defer srv.Close()

	c := newTestClient(srv)
	defer c.Dispose()
	require.NoError(t, c.Connect())

	c.JoinChannel("General")
	c.JoinChannel("general")
	c.JoinChannel("  GENERAL ")

	waitUntil(t, time.Second*2, func() bool { return cs.frameCount(wire.MsgTypeJoinChannel) >= 1 })
	time.Sleep(time.Millisecond * 100)

	// 同一频道只发起一次往返
	assert.Equal(t, 1, cs.frameCount(wire.MsgTypeJoinChannel))
}

func TestClient_ObserverDispatch(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	c := newTestClient(srv)
	defer c.Dispose()

	var mu sync.Mutex
	counts := map[string]int{}
	bump := func(key string) {
		mu.Lock()
		counts[key]++
		mu.Unlock()
	}

	// 第一个订阅者恐慌不影响后面的
	c.On(wire.MsgTypeUserJoined, func(msg *wire.Message) {
		bump("panicky")
		panic("boom")
	})
	c.On(wire.MsgTypeUserJoined, func(msg *wire.Message) {
		body := msg.Body.(*wire.MsgUserJoined)
		assert.Equal(t, "general", body.Channel)
		bump("second")
	})
	c.On(wire.MsgTypeUserLeft, func(msg *wire.Message) { bump("left") })

	require.NoError(t, c.Connect())
	c.JoinChannel("general")

	waitUntil(t, time.Second*2, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return counts["second"] == 1
	})
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, counts["panicky"])
	assert.Equal(t, 0, counts["left"])
}

func TestClient_Reconnect(t *testing.T) {
	cs, srv := newTestServer()
	defer srv.Close()

	c := newTestClient(srv)
	defer c.Dispose()
	require.NoError(t, c.Connect())
	c.JoinChannel("general")
	waitUntil(t, time.Second*2, func() bool { return cs.frameCount(wire.MsgTypeJoinChannel) == 1 })

	// 服务端掐断连接，客户端应自动重连并恢复已加入的频道
	cs.closeConn(0)
	waitUntil(t, time.Second*5, func() bool { return cs.connCount() == 2 })
	waitUntil(t, time.Second*2, func() bool { return c.State() == StateConnected })
	waitUntil(t, time.Second*2, func() bool { return cs.frameCount(wire.MsgTypeJoinChannel) == 2 })
	assert.Equal(t, "conn-2", c.ConnectionID())
}

func TestClient_LateConnectionAfterDispose(t *testing.T) {
	cs, srv := newTestServer()
	defer srv.Close()

	c := newTestClient(srv)
	require.NoError(t, c.Connect())
	waitUntil(t, time.Second*2, func() bool { return c.ConnectionID() != "" })

	// 模拟重连的拨号在 Dispose 之后才完成
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)

	c.Dispose()
	c.bind(conn)

	// 状态机不能被迟到的连接顶回 Connected
	assert.Equal(t, StateDisposed, c.State())
	// 迟到的连接已被释放
	assert.Error(t, conn.WriteMessage(websocket.TextMessage, []byte("{}")))
	assert.Equal(t, 2, cs.connCount())
}

func TestClient_Dispose(t *testing.T) {
	cs, srv := newTestServer()
	defer srv.Close()

	c := newTestClient(srv)
	require.NoError(t, c.Connect())
	waitUntil(t, time.Second*2, func() bool { return c.ConnectionID() != "" })

	c.Dispose()
	// 传输层只释放一次，重复调用无害
	c.Dispose()
	assert.Equal(t, StateDisposed, c.State())

	// 终止后一切操作都是 no-op
	c.JoinChannel("general")
	c.SendMessage("general", "hello")
	assert.NoError(t, c.Connect())
	time.Sleep(time.Millisecond * 100)
	assert.Equal(t, 1, cs.connCount())
	assert.Equal(t, StateDisposed, c.State())
}
