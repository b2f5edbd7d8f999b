package peer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ws-chat/wire"
)

// 起一个接受连接但从不读取的服务端
func newDeafServer(t *testing.T) (*httptest.Server, chan struct{}) {
	t.Helper()
	block := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-block
	}))
	return srv, block
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	return conn
}

// 对端不读导致写泵超时退出后，堵在 PushMessage 里的调用方
// 必须全部解除阻塞，不能挂死
func TestPeer_PushUnblocksWhenWriterDies(t *testing.T) {
	srv, block := newDeafServer(t)
	defer srv.Close()
	defer close(block)

	p := NewPeer("p1", &Config{
		WriteWait:       time.Millisecond * 200,
		MessageQueueLen: 1,
		Listeners: &MessageListeners{
			OnMessage: func(*wire.Message) error { return nil },
		},
	})
	p.SetConnection(dial(t, srv))

	// 大帧塞满对端的接收缓冲，写泵很快撞上写超时
	payload := strings.Repeat("x", 512*1024)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.PushMessage(wire.NewMessage("", &wire.MsgChat{Channel: "general", Text: payload}), nil)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second * 10):
		t.Fatal("PushMessage callers still blocked after the write pump died")
	}
	assert.False(t, p.IsConnected())
}

func TestPeer_PushAfterClose(t *testing.T) {
	srv, block := newDeafServer(t)
	defer srv.Close()
	defer close(block)

	p := NewPeer("p1", &Config{
		Listeners: &MessageListeners{
			OnMessage: func(*wire.Message) error { return nil },
		},
	})
	p.SetConnection(dial(t, srv))
	p.Close()
	// Close 可以安全地调用多次
	p.Close()

	// 关闭后推送静默丢弃，done 仍然收到信号
	donechan := make(chan struct{}, 1)
	p.PushMessage(wire.NewMessage("", &wire.MsgPing{}), donechan)
	select {
	case <-donechan:
	case <-time.After(time.Second):
		t.Fatal("done signal missing for push after close")
	}
}
