package hub

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

// MessageRouter 接收出站消息，过禁言检查，落库并分发给正确的接收集合。
// 落库走异步批量队列，不阻塞分发，也不持有 Registry 的锁
type MessageRouter struct {
	registry *Registry
	policy   *MutePolicy
	cache    database.PolicyCache
	store    database.MessageStore

	saveQueue chan interface{}
	quit      chan struct{}
}

// NewMessageRouter 创建 router 并启动落库队列
func NewMessageRouter(registry *Registry, policy *MutePolicy, cache database.PolicyCache, store database.MessageStore) *MessageRouter {
	r := &MessageRouter{
		registry:  registry,
		policy:    policy,
		cache:     cache,
		store:     store,
		saveQueue: make(chan interface{}, 1000),
		quit:      make(chan struct{}),
	}
	go r.saveHandler()
	return r
}

// Stop 停掉落库队列
func (r *MessageRouter) Stop() {
	close(r.quit)
}

// SendChannelMessage 频道消息：检查禁言，通过则落库并广播给全体成员；
// 被拒绝时只给发送方回 MessageBlocked，不落库不广播
func (r *MessageRouter) SendChannelMessage(connID, channelName, text string) error {
	conn := r.registry.Get(connID)
	if conn == nil {
		return nil
	}
	key := wire.ChannelKey(channelName)

	snap, err := r.cache.Snapshot(key)
	if err != nil {
		return err
	}
	if !snap.Exists {
		pushTo(conn, &wire.MsgChannelNotFound{Channel: key})
		return nil
	}
	verdict := r.policy.Check(snap, conn.Identity)
	if !verdict.Allowed {
		pushTo(conn, &wire.MsgMessageBlocked{Channel: key, Reason: verdict.Reason})
		return nil
	}

	msg := &database.ChatMsg{
		ID:       uuid.New().String(),
		Channel:  key,
		FromID:   conn.Identity.UserID,
		FromName: conn.Identity.Name,
		Text:     text,
		CreateAt: time.Now(),
	}
	r.enqueueSave(msg)

	broadcast(r.registry.MembersOf(key), &wire.MsgReceiveMessage{Message: wire.ChatMessage{
		ID:       msg.ID,
		Channel:  key,
		FromID:   msg.FromID,
		FromName: msg.FromName,
		Text:     msg.Text,
		SentAt:   msg.CreateAt,
	}})
	return nil
}

// SendPrivateMessage 私信：落库（默认未读），投递给接收方的每条连接，
// 并把 PrivateMessageSent 回投给发送方的每条连接。私信不做禁言检查
func (r *MessageRouter) SendPrivateMessage(connID, toUserID, text string) error {
	conn := r.registry.Get(connID)
	if conn == nil {
		return nil
	}

	msg := &database.PrivateMsg{
		ID:       uuid.New().String(),
		FromID:   conn.Identity.UserID,
		ToID:     toUserID,
		FromName: conn.Identity.Name,
		Text:     text,
		CreateAt: time.Now(),
	}
	r.enqueueSave(msg)

	envelope := wire.PrivateMessage{
		ID:       msg.ID,
		FromID:   msg.FromID,
		FromName: msg.FromName,
		ToID:     msg.ToID,
		Text:     msg.Text,
		SentAt:   msg.CreateAt,
	}
	broadcast(r.registry.ConnectionsOf(toUserID), &wire.MsgReceivePrivate{Message: envelope})
	broadcast(r.registry.ConnectionsOf(conn.Identity.UserID), &wire.MsgPrivateSent{Message: envelope})
	return nil
}

// MarkPrivateMessagesRead 把 other 发给当前用户的私信标记为已读，
// 并通知双方的全部连接。落库是异步的，刚投递的私信可能还在
// 队列里，先冲刷再标记
func (r *MessageRouter) MarkPrivateMessagesRead(connID, otherUserID string) error {
	conn := r.registry.Get(connID)
	if conn == nil {
		return nil
	}
	r.flushSaves()
	affected, err := r.store.MarkRead(otherUserID, conn.Identity.UserID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return nil
	}
	body := &wire.MsgPrivateRead{Reader: conn.Identity.UserID, Other: otherUserID}
	broadcast(r.registry.ConnectionsOf(otherUserID), body)
	broadcast(r.registry.ConnectionsOf(conn.Identity.UserID), body)
	return nil
}

// DropMessage 管理操作：软删除一条消息并通知频道当前成员
func (r *MessageRouter) DropMessage(msgID, channelName string) error {
	key := wire.ChannelKey(channelName)
	if err := r.store.MarkDeleted(msgID); err != nil {
		return err
	}
	broadcast(r.registry.MembersOf(key), &wire.MsgMessageDeleted{MessageID: msgID, Channel: key})
	return nil
}

// AnnounceUserMuted 向频道成员广播禁言事件，但排除被禁言用户的
// 全部连接，不能让他从这个事件得知自己被禁言
func (r *MessageRouter) AnnounceUserMuted(channelName string, target *database.User, by database.Identity) {
	key := wire.ChannelKey(channelName)
	broadcastExcept(r.registry.MembersOf(key), r.registry.ConnectionsOf(target.ID), &wire.MsgUserMuted{
		Channel:     key,
		UserID:      target.ID,
		Name:        target.Name,
		MutedBy:     by.UserID,
		MutedByName: by.Name,
	})
}

// AnnounceUserUnmuted 解除禁言广播给全体成员，包括本人
func (r *MessageRouter) AnnounceUserUnmuted(channelName string, target *database.User, by database.Identity) {
	key := wire.ChannelKey(channelName)
	broadcast(r.registry.MembersOf(key), &wire.MsgUserUnmuted{
		Channel:       key,
		UserID:        target.ID,
		Name:          target.Name,
		UnmutedBy:     by.UserID,
		UnmutedByName: by.Name,
	})
}

// AnnounceChannelMute 频道级禁言开关变更
func (r *MessageRouter) AnnounceChannelMute(channelName string, isMuted bool, activeManager string) {
	key := wire.ChannelKey(channelName)
	broadcast(r.registry.MembersOf(key), &wire.MsgChannelMuteChanged{
		Channel:       key,
		IsMuted:       isMuted,
		ActiveManager: activeManager,
	})
}

// saveFlush 落库队列里的哨兵，排在它前面的消息都落库后收到信号
type saveFlush struct {
	done chan struct{}
}

// flushSaves 等待队列里已有的消息全部落库
func (r *MessageRouter) flushSaves() {
	flush := saveFlush{done: make(chan struct{})}
	select {
	case r.saveQueue <- flush:
	case <-r.quit:
		return
	}
	select {
	case <-flush.done:
	case <-r.quit:
	}
}

func (r *MessageRouter) enqueueSave(msg interface{}) {
	select {
	case r.saveQueue <- msg:
	default:
		// 队列被写满说明存储跟不上了，同步兜底
		log.Println("save queue full, falling back to sync save")
		r.save([]interface{}{msg})
	}
}

// saveHandler 批量消费落库队列
func (r *MessageRouter) saveHandler() {
	for {
		select {
		case msg := <-r.saveQueue:
			batch := []interface{}{msg}
			n := len(r.saveQueue)
			for i := 0; i < n; i++ {
				batch = append(batch, <-r.saveQueue)
			}
			r.save(batch)
		case <-r.quit:
			return
		}
	}
}

func (r *MessageRouter) save(batch []interface{}) {
	chats := make([]*database.ChatMsg, 0, len(batch))
	privates := make([]*database.PrivateMsg, 0)
	flushes := make([]saveFlush, 0)
	for _, item := range batch {
		switch msg := item.(type) {
		case *database.ChatMsg:
			chats = append(chats, msg)
		case *database.PrivateMsg:
			privates = append(privates, msg)
		case saveFlush:
			flushes = append(flushes, msg)
		}
	}
	if len(chats) > 0 {
		if err := r.store.Append(chats...); err != nil {
			log.Println("save chat messages:", err)
		}
	}
	if len(privates) > 0 {
		if err := r.store.AppendPrivate(privates...); err != nil {
			log.Println("save private messages:", err)
		}
	}
	for _, flush := range flushes {
		close(flush.done)
	}
}
