package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ws-chat/database"
)

func TestRegistry_JoinIdempotent(t *testing.T) {
	r := NewRegistry("s1")
	r.Register("c1", database.Identity{UserID: "alice"}, &fakeSender{})

	already, ok := r.Join("c1", "general")
	assert.True(t, ok)
	assert.False(t, already)

	already, ok = r.Join("c1", "general")
	assert.True(t, ok)
	assert.True(t, already)

	assert.Equal(t, 1, len(r.MembersOf("general")))
	assert.Equal(t, []string{"general"}, r.ChannelsOf("c1"))
}

func TestRegistry_JoinUnknownConn(t *testing.T) {
	r := NewRegistry("s1")
	_, ok := r.Join("nope", "general")
	assert.False(t, ok)
	assert.Nil(t, r.MembersOf("general"))
}

func TestRegistry_ChannelCaseInsensitive(t *testing.T) {
	r := NewRegistry("s1")
	r.Register("c1", database.Identity{UserID: "alice"}, &fakeSender{})

	r.Join("c1", "General")
	already, _ := r.Join("c1", "  GENERAL ")
	assert.True(t, already)
	assert.Equal(t, 1, len(r.MembersOf("general")))
}

func TestRegistry_LeaveNonMember(t *testing.T) {
	r := NewRegistry("s1")
	r.Register("c1", database.Identity{UserID: "alice"}, &fakeSender{})

	assert.False(t, r.Leave("c1", "general"))

	r.Join("c1", "general")
	assert.True(t, r.Leave("c1", "general"))
	assert.False(t, r.Leave("c1", "general"))
	assert.Empty(t, r.ChannelsOf("c1"))
}

func TestRegistry_UnregisterCleansUp(t *testing.T) {
	r := NewRegistry("s1")
	r.Register("c1", database.Identity{UserID: "alice"}, &fakeSender{})
	r.Register("c2", database.Identity{UserID: "alice"}, &fakeSender{})
	r.Join("c1", "general")
	r.Join("c1", "random")

	channels := r.Unregister("c1")
	assert.ElementsMatch(t, []string{"general", "random"}, channels)
	assert.Nil(t, r.Get("c1"))
	assert.Empty(t, r.MembersOf("general"))

	// 同一用户的另一条连接不受影响
	assert.Equal(t, 1, len(r.ConnectionsOf("alice")))

	assert.Nil(t, r.Unregister("c1"))
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry("s1")
	old, left := r.Register("c1", database.Identity{UserID: "alice"}, &fakeSender{})
	assert.Nil(t, old)
	assert.Empty(t, left)

	r.Join("c1", "general")
	r.Join("c1", "random")
	old, left = r.Register("c1", database.Identity{UserID: "alice"}, &fakeSender{})
	assert.NotNil(t, old)
	// 旧记录的频道关系已被清掉，调用方拿到离开列表去补发广播
	assert.ElementsMatch(t, []string{"general", "random"}, left)
	assert.Empty(t, r.ChannelsOf("c1"))
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_ConnectionsOf(t *testing.T) {
	r := NewRegistry("s1")
	r.Register("c1", database.Identity{UserID: "alice"}, &fakeSender{})
	r.Register("c2", database.Identity{UserID: "alice"}, &fakeSender{})
	r.Register("c3", database.Identity{UserID: "bob"}, &fakeSender{})

	assert.Equal(t, 2, len(r.ConnectionsOf("alice")))
	assert.Equal(t, 1, len(r.ConnectionsOf("bob")))
	assert.Nil(t, r.ConnectionsOf("carol"))
	assert.Equal(t, 3, r.Count())
}
