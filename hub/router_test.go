package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

// 落库是异步的，给队列一点时间
func waitSave() { time.Sleep(time.Millisecond * 50) }

func (e *testEnv) messages() *database.MemMessageStore {
	return e.stores.Messages.(*database.MemMessageStore)
}

func TestRouter_SendChannelMessage(t *testing.T) {
	e := newTestEnv()
	defer e.close()
	e.addChannel("general", "root", false)

	alice := e.connect("c1", "alice", "Alice", false)
	bob := e.connect("c2", "bob", "Bob", false)
	outsider := e.connect("c3", "carol", "Carol", false)
	e.session.Join("c1", "general")
	e.session.Join("c2", "general")

	require.NoError(t, e.router.SendChannelMessage("c1", "general", "hello"))

	// 全体成员各一份，包括发送方自己；圈外人收不到
	assert.Equal(t, 1, alice.count(wire.MsgTypeReceiveMessage))
	assert.Equal(t, 1, bob.count(wire.MsgTypeReceiveMessage))
	assert.Equal(t, 0, outsider.count(wire.MsgTypeReceiveMessage))

	body := bob.last(wire.MsgTypeReceiveMessage).Body.(*wire.MsgReceiveMessage)
	assert.Equal(t, "alice", body.Message.FromID)
	assert.Equal(t, "hello", body.Message.Text)
	assert.NotEmpty(t, body.Message.ID)

	waitSave()
	assert.Equal(t, 1, e.messages().Count("general"))
}

func TestRouter_SenderMultiConn(t *testing.T) {
	e := newTestEnv()
	defer e.close()
	e.addChannel("general", "root", false)

	// carol 两端在线，只有 c1 加入了频道
	c1 := e.connect("c1", "carol", "Carol", false)
	c2 := e.connect("c2", "carol", "Carol", false)
	e.session.Join("c1", "general")

	require.NoError(t, e.router.SendChannelMessage("c1", "general", "hi"))

	assert.Equal(t, 1, c1.count(wire.MsgTypeReceiveMessage))
	assert.Equal(t, 0, c2.count(wire.MsgTypeReceiveMessage))
}

func TestRouter_ChannelMutedBlocks(t *testing.T) {
	e := newTestEnv()
	defer e.close()
	e.addChannel("general", "root", true)

	alice := e.connect("c1", "alice", "Alice", false)
	bob := e.connect("c2", "bob", "Bob", false)
	e.session.Join("c1", "general")
	e.session.Join("c2", "general")

	require.NoError(t, e.router.SendChannelMessage("c1", "general", "hello"))

	// 只有发送方本人收到拒绝，别人什么都看不见
	assert.Equal(t, 1, alice.count(wire.MsgTypeMessageBlocked))
	assert.Equal(t, 0, bob.count(wire.MsgTypeMessageBlocked))
	assert.Equal(t, 0, alice.count(wire.MsgTypeReceiveMessage))
	assert.Equal(t, 0, bob.count(wire.MsgTypeReceiveMessage))

	body := alice.last(wire.MsgTypeMessageBlocked).Body.(*wire.MsgMessageBlocked)
	assert.Equal(t, ReasonChannelMuted, body.Reason)

	// 被拒绝的消息不落库
	waitSave()
	assert.Equal(t, 0, e.messages().Count("general"))
}

func TestRouter_GlobalMuteBlocks(t *testing.T) {
	e := newTestEnv()
	defer e.close()
	e.addChannel("general", "root", false)
	e.stores.Mutes.Add(&database.MuteRecord{UserID: "bob", ChannelName: "", MutedBy: "root"})

	bob := e.connect("c1", "bob", "Bob", false)
	e.session.Join("c1", "general")

	require.NoError(t, e.router.SendChannelMessage("c1", "general", "hello"))

	body := bob.last(wire.MsgTypeMessageBlocked).Body.(*wire.MsgMessageBlocked)
	assert.Equal(t, ReasonUserMutedGlobal, body.Reason)
}

func TestRouter_UnknownChannel(t *testing.T) {
	e := newTestEnv()
	defer e.close()

	alice := e.connect("c1", "alice", "Alice", false)
	require.NoError(t, e.router.SendChannelMessage("c1", "nowhere", "hello"))

	assert.Equal(t, 1, alice.count(wire.MsgTypeChannelNotFound))
}

func TestRouter_SendPrivateMessage(t *testing.T) {
	e := newTestEnv()
	defer e.close()

	sender1 := e.connect("c1", "alice", "Alice", false)
	sender2 := e.connect("c2", "alice", "Alice", false)
	recv1 := e.connect("c3", "bob", "Bob", false)
	recv2 := e.connect("c4", "bob", "Bob", false)

	require.NoError(t, e.router.SendPrivateMessage("c1", "bob", "psst"))

	// 接收方每条连接一份，发送方每条连接一份回执
	assert.Equal(t, 1, recv1.count(wire.MsgTypeReceivePrivate))
	assert.Equal(t, 1, recv2.count(wire.MsgTypeReceivePrivate))
	assert.Equal(t, 1, sender1.count(wire.MsgTypePrivateSent))
	assert.Equal(t, 1, sender2.count(wire.MsgTypePrivateSent))
	assert.Equal(t, 0, recv1.count(wire.MsgTypePrivateSent))

	waitSave()
	assert.Equal(t, 1, e.messages().CountPrivate("alice", "bob"))
}

func TestRouter_MarkPrivateRead(t *testing.T) {
	e := newTestEnv()
	defer e.close()

	alice := e.connect("c1", "alice", "Alice", false)
	bob := e.connect("c2", "bob", "Bob", false)

	require.NoError(t, e.router.SendPrivateMessage("c1", "bob", "psst"))
	waitSave()

	// bob 把和 alice 的会话标记已读，双方都收到通知
	require.NoError(t, e.router.MarkPrivateMessagesRead("c2", "alice"))
	assert.Equal(t, 1, alice.count(wire.MsgTypePrivateRead))
	assert.Equal(t, 1, bob.count(wire.MsgTypePrivateRead))

	body := alice.last(wire.MsgTypePrivateRead).Body.(*wire.MsgPrivateRead)
	assert.Equal(t, "bob", body.Reader)
	assert.Equal(t, "alice", body.Other)

	// 没有未读消息时不再通知
	require.NoError(t, e.router.MarkPrivateMessagesRead("c2", "alice"))
	assert.Equal(t, 1, alice.count(wire.MsgTypePrivateRead))
}

func TestRouter_MarkReadRightAfterDelivery(t *testing.T) {
	e := newTestEnv()
	defer e.close()

	alice := e.connect("c1", "alice", "Alice", false)
	bob := e.connect("c2", "bob", "Bob", false)

	// 不等异步落库，紧跟着投递就标记已读，通知不能丢
	require.NoError(t, e.router.SendPrivateMessage("c1", "bob", "psst"))
	require.NoError(t, e.router.MarkPrivateMessagesRead("c2", "alice"))

	assert.Equal(t, 1, alice.count(wire.MsgTypePrivateRead))
	assert.Equal(t, 1, bob.count(wire.MsgTypePrivateRead))
}

func TestRouter_DropMessage(t *testing.T) {
	e := newTestEnv()
	defer e.close()
	e.addChannel("general", "root", false)

	alice := e.connect("c1", "alice", "Alice", false)
	e.session.Join("c1", "general")

	require.NoError(t, e.router.SendChannelMessage("c1", "general", "oops"))
	waitSave()
	msgID := alice.last(wire.MsgTypeReceiveMessage).Body.(*wire.MsgReceiveMessage).Message.ID

	require.NoError(t, e.router.DropMessage(msgID, "general"))
	body := alice.last(wire.MsgTypeMessageDeleted).Body.(*wire.MsgMessageDeleted)
	assert.Equal(t, msgID, body.MessageID)
	assert.Equal(t, 0, e.messages().Count("general"))
}

func TestRouter_MuteSecrecy(t *testing.T) {
	e := newTestEnv()
	defer e.close()
	e.addChannel("general", "root", false)
	e.addUser("bob", "Bob", false)

	alice := e.connect("c1", "alice", "Alice", false)
	bob1 := e.connect("c2", "bob", "Bob", false)
	bob2 := e.connect("c3", "bob", "Bob", false)
	carol := e.connect("c4", "carol", "Carol", false)
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		e.session.Join(id, "general")
	}

	target, _ := e.stores.Users.Get("bob")
	e.router.AnnounceUserMuted("general", target, database.Identity{UserID: "root", Name: "Root", IsAdmin: true})

	// 被禁言用户的任何一条连接都不能收到这个事件
	assert.Equal(t, 0, bob1.count(wire.MsgTypeUserMuted))
	assert.Equal(t, 0, bob2.count(wire.MsgTypeUserMuted))
	assert.Equal(t, 1, alice.count(wire.MsgTypeUserMuted))
	assert.Equal(t, 1, carol.count(wire.MsgTypeUserMuted))

	// 解禁则全员可见，包括本人
	e.router.AnnounceUserUnmuted("general", target, database.Identity{UserID: "root", Name: "Root", IsAdmin: true})
	assert.Equal(t, 1, bob1.count(wire.MsgTypeUserUnmuted))
	assert.Equal(t, 1, bob2.count(wire.MsgTypeUserUnmuted))
	assert.Equal(t, 1, alice.count(wire.MsgTypeUserUnmuted))
}
