package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ws-chat/database"
)

func TestMutePolicy_Check(t *testing.T) {
	snap := &database.PolicySnapshot{
		Channel:       "general",
		Exists:        true,
		MutedUsers:    map[string]bool{"bob": true, "eve": true},
		GlobalMutes:   map[string]bool{"mallory": true},
		ActiveManager: "root",
	}
	p := NewMutePolicy(nil)

	tests := []struct {
		name    string
		id      database.Identity
		muted   bool
		allowed bool
		reason  string
	}{
		{"plain user allowed", database.Identity{UserID: "alice"}, false, true, ""},
		{"muted in channel", database.Identity{UserID: "bob"}, false, false, ReasonUserMutedChannel},
		{"muted globally", database.Identity{UserID: "mallory"}, false, false, ReasonUserMutedGlobal},
		{"channel muted blocks plain user", database.Identity{UserID: "alice"}, true, false, ReasonChannelMuted},
		{"channel muted admits manager", database.Identity{UserID: "root"}, true, true, ""},
		{"channel muted admits admin", database.Identity{UserID: "alice", IsAdmin: true}, true, true, ""},
		// 被点名禁言的管理员照样闭嘴
		{"muted admin stays muted", database.Identity{UserID: "eve", IsAdmin: true}, false, false, ReasonUserMutedChannel},
		{"muted admin in muted channel", database.Identity{UserID: "eve", IsAdmin: true}, true, false, ReasonUserMutedChannel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap.IsMuted = tt.muted
			verdict := p.Check(snap, tt.id)
			assert.Equal(t, tt.allowed, verdict.Allowed)
			assert.Equal(t, tt.reason, verdict.Reason)
		})
	}
}

func TestMutePolicy_GlobalBeatsChannel(t *testing.T) {
	// 同时有全局和频道禁言时，原因报全局的
	snap := &database.PolicySnapshot{
		Exists:      true,
		MutedUsers:  map[string]bool{"bob": true},
		GlobalMutes: map[string]bool{"bob": true},
	}
	p := NewMutePolicy(nil)
	verdict := p.Check(snap, database.Identity{UserID: "bob"})
	assert.Equal(t, ReasonUserMutedGlobal, verdict.Reason)
}

func TestMutePolicy_CanPost(t *testing.T) {
	stores := database.NewMemStores()
	stores.Channels.Save(&database.Channel{Name: "general", CreatedBy: "root", ActiveManager: "root"})
	stores.Mutes.Add(&database.MuteRecord{UserID: "bob", ChannelName: "general", MutedBy: "root"})
	cache := database.NewSnapshotCache(stores.Channels, stores.Mutes, 0)
	p := NewMutePolicy(cache)

	verdict, err := p.CanPost(database.Identity{UserID: "alice"}, "General")
	require.NoError(t, err)
	assert.True(t, verdict.Allowed)

	verdict, err = p.CanPost(database.Identity{UserID: "bob"}, "general")
	require.NoError(t, err)
	assert.False(t, verdict.Allowed)
}
