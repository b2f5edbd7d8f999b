package database

import (
	"sync"
	"time"
)

const defaultSnapshotTTL = time.Second * 5

// SnapshotCache 带 TTL 的策略快照缓存。发言检查走这里而不是直接查库，
// 所以禁言变更允许有一个有限的生效窗口
type SnapshotCache struct {
	mu        sync.Mutex
	channels  ChannelStore
	mutes     MuteStore
	ttl       time.Duration
	snapshots map[string]*PolicySnapshot
}

// NewSnapshotCache NewSnapshotCache. ttl<=0 时使用默认值
func NewSnapshotCache(channels ChannelStore, mutes MuteStore, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotCache{
		channels:  channels,
		mutes:     mutes,
		ttl:       ttl,
		snapshots: make(map[string]*PolicySnapshot),
	}
}

// Snapshot 取频道的禁言快照，过期就刷新
func (c *SnapshotCache) Snapshot(channel string) (*PolicySnapshot, error) {
	c.mu.Lock()
	snap, ok := c.snapshots[channel]
	if ok && time.Since(snap.TakenAt) < c.ttl {
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	// 刷新不持有锁，存储可能是 IO 操作
	snap, err := c.refresh(channel)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snapshots[channel] = snap
	c.mu.Unlock()
	return snap, nil
}

// Invalidate 丢掉一个频道的快照。channel 为空时清空全部快照，
// 全局禁言变更会影响每个频道
func (c *SnapshotCache) Invalidate(channel string) {
	c.mu.Lock()
	if channel == "" {
		c.snapshots = make(map[string]*PolicySnapshot)
	} else {
		delete(c.snapshots, channel)
	}
	c.mu.Unlock()
}

func (c *SnapshotCache) refresh(channel string) (*PolicySnapshot, error) {
	snap := &PolicySnapshot{
		Channel:     channel,
		MutedUsers:  make(map[string]bool),
		GlobalMutes: make(map[string]bool),
		TakenAt:     time.Now(),
	}
	ch, err := c.channels.Get(channel)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return snap, nil
	}
	snap.Exists = true
	snap.IsMuted = ch.IsMuted
	snap.ActiveManager = ch.ActiveManager

	recs, err := c.mutes.List(channel)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		snap.MutedUsers[rec.UserID] = true
	}
	globals, err := c.mutes.List("")
	if err != nil {
		return nil, err
	}
	for _, rec := range globals {
		snap.GlobalMutes[rec.UserID] = true
	}
	return snap, nil
}
