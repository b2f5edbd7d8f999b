package hub

import (
	"log"

	"github.com/google/uuid"
	"github.com/ws-chat/wire"
)

// pushTo 向单条连接投递一个事件。投递失败只记日志，不向上抛
func pushTo(conn *Connection, body wire.Body) {
	deliver(conn, wire.NewMessage(uuid.New().String(), body))
}

// broadcast 把一个事件投递给接收集合里的每条连接。
// 单个接收方失败不影响其余接收方
func broadcast(conns []*Connection, body wire.Body) {
	if len(conns) == 0 {
		return
	}
	msg := wire.NewMessage(uuid.New().String(), body)
	for _, conn := range conns {
		deliver(conn, msg)
	}
}

// broadcastExcept 同 broadcast，但跳过 excluded 中出现的连接
func broadcastExcept(conns []*Connection, excluded []*Connection, body wire.Body) {
	if len(excluded) == 0 {
		broadcast(conns, body)
		return
	}
	skip := make(map[string]bool, len(excluded))
	for _, conn := range excluded {
		skip[conn.ID] = true
	}
	msg := wire.NewMessage(uuid.New().String(), body)
	for _, conn := range conns {
		if skip[conn.ID] {
			continue
		}
		deliver(conn, msg)
	}
}

func deliver(conn *Connection, msg *wire.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("deliver %v to %v failed: %v", msg.Type, conn.ID, r)
		}
	}()
	conn.sender.PushMessage(msg, nil)
}
