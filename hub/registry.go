package hub

import (
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

// Sender 是一个连接的发送端。投递失败不向调用方抛错
type Sender interface {
	PushMessage(msg *wire.Message, done chan<- struct{})
	Close()
}

// Connection 一条在线连接。一个用户可以同时持有多条连接。
// 时间字段只能经由 Registry 更新
type Connection struct {
	ID           string
	Identity     database.Identity
	ServerID     string
	ConnectedAt  time.Time
	LastActivity time.Time
	LastPing     time.Time

	sender Sender
}

// Registry 在线连接与频道成员关系的唯一持有者。
// 其它组件只通过这里的方法读写成员关系，不直接碰共享 map
type Registry struct {
	mu       sync.RWMutex
	serverID string
	// conns 连接主表
	conns map[string]*Connection
	// channels 频道 -> 连接集合
	channels map[string]mapset.Set
	// users 用户 -> 连接集合
	users map[string]mapset.Set
	// joined 连接 -> 频道集合
	joined map[string]mapset.Set
}

// NewRegistry NewRegistry
func NewRegistry(serverID string) *Registry {
	return &Registry{
		serverID: serverID,
		conns:    make(map[string]*Connection, 1000),
		channels: make(map[string]mapset.Set),
		users:    make(map[string]mapset.Set),
		joined:   make(map[string]mapset.Set),
	}
}

// Register 登记一条连接。同一 connID 重复登记会替换旧记录，
// 返回被替换的连接和它当时所在的频道，调用方据此补发离开广播
func (r *Registry) Register(connID string, identity database.Identity, sender Sender) (*Connection, []string) {
	now := time.Now()
	conn := &Connection{
		ID:           connID,
		Identity:     identity,
		ServerID:     r.serverID,
		ConnectedAt:  now,
		LastActivity: now,
		LastPing:     now,
		sender:       sender,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var channels []string
	old := r.conns[connID]
	if old != nil {
		channels = r.dropLocked(connID)
	}
	r.conns[connID] = conn
	set, ok := r.users[identity.UserID]
	if !ok {
		set = mapset.NewThreadUnsafeSet()
		r.users[identity.UserID] = set
	}
	set.Add(connID)
	return old, channels
}

// Unregister 注销连接并清掉它全部的频道成员关系，
// 返回它离开的频道列表。未知 connID 是 no-op
func (r *Registry) Unregister(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropLocked(connID)
}

func (r *Registry) dropLocked(connID string) []string {
	conn, ok := r.conns[connID]
	if !ok {
		return nil
	}
	var channels []string
	if set, ok := r.joined[connID]; ok {
		for _, key := range set.ToSlice() {
			channel := key.(string)
			channels = append(channels, channel)
			if members, ok := r.channels[channel]; ok {
				members.Remove(connID)
				if members.Cardinality() == 0 {
					delete(r.channels, channel)
				}
			}
		}
		delete(r.joined, connID)
	}
	if set, ok := r.users[conn.Identity.UserID]; ok {
		set.Remove(connID)
		if set.Cardinality() == 0 {
			delete(r.users, conn.Identity.UserID)
		}
	}
	delete(r.conns, connID)
	return channels
}

// Join 把连接加入频道。重复加入是 no-op，alreadyMember=true。
// 未知 connID 时 ok=false
func (r *Registry) Join(connID, channel string) (alreadyMember bool, ok bool) {
	channel = wire.ChannelKey(channel)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.conns[connID]; !found {
		return false, false
	}
	members, found := r.channels[channel]
	if !found {
		members = mapset.NewThreadUnsafeSet()
		r.channels[channel] = members
	}
	if members.Contains(connID) {
		return true, true
	}
	members.Add(connID)

	set, found := r.joined[connID]
	if !found {
		set = mapset.NewThreadUnsafeSet()
		r.joined[connID] = set
	}
	set.Add(channel)
	return false, true
}

// Leave 把连接移出频道。不在频道内是 no-op，removed=false
func (r *Registry) Leave(connID, channel string) (removed bool) {
	channel = wire.ChannelKey(channel)

	r.mu.Lock()
	defer r.mu.Unlock()

	members, found := r.channels[channel]
	if !found || !members.Contains(connID) {
		return false
	}
	members.Remove(connID)
	if members.Cardinality() == 0 {
		delete(r.channels, channel)
	}
	if set, found := r.joined[connID]; found {
		set.Remove(channel)
	}
	return true
}

// Get 取一条连接，没有返回 nil
func (r *Registry) Get(connID string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[connID]
}

// MembersOf 返回频道当前成员的一致性快照
func (r *Registry) MembersOf(channel string) []*Connection {
	channel = wire.ChannelKey(channel)

	r.mu.RLock()
	defer r.mu.RUnlock()

	members, found := r.channels[channel]
	if !found {
		return nil
	}
	conns := make([]*Connection, 0, members.Cardinality())
	for _, id := range members.ToSlice() {
		if conn, ok := r.conns[id.(string)]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// ConnectionsOf 返回一个用户的全部在线连接，
// 用于寻址或从广播中排除这个用户
func (r *Registry) ConnectionsOf(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, found := r.users[userID]
	if !found {
		return nil
	}
	conns := make([]*Connection, 0, set.Cardinality())
	for _, id := range set.ToSlice() {
		if conn, ok := r.conns[id.(string)]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// ChannelsOf 返回连接已加入的频道
func (r *Registry) ChannelsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, found := r.joined[connID]
	if !found {
		return nil
	}
	channels := make([]string, 0, set.Cardinality())
	for _, key := range set.ToSlice() {
		channels = append(channels, key.(string))
	}
	return channels
}

// All 返回全部在线连接的快照
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Count 在线连接数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Touch 刷新连接的活跃时间。未知 connID 是 no-op
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[connID]; ok {
		conn.LastActivity = time.Now()
	}
}

// TouchPing 记录一次心跳
func (r *Registry) TouchPing(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[connID]; ok {
		now := time.Now()
		conn.LastPing = now
		conn.LastActivity = now
	}
}
