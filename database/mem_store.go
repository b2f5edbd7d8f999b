package database

import (
	"sync"
)

// MemUserStore 内存用户存储，单机模式和测试用
type MemUserStore struct {
	mu    sync.Mutex
	users map[string]User
}

// NewMemUserStore NewMemUserStore
func NewMemUserStore() *MemUserStore {
	return &MemUserStore{users: make(map[string]User)}
}

// Get Get
func (s *MemUserStore) Get(id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Save Save
func (s *MemUserStore) Save(user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

// SetAdmin SetAdmin
func (s *MemUserStore) SetAdmin(id string, isAdmin bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	u.IsAdmin = isAdmin
	s.users[id] = u
	return 1, nil
}

// AdminCount AdminCount
func (s *MemUserStore) AdminCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, u := range s.users {
		if u.IsAdmin {
			count++
		}
	}
	return count, nil
}

// MemChannelStore 内存频道存储
type MemChannelStore struct {
	mu       sync.Mutex
	channels map[string]Channel
}

// NewMemChannelStore NewMemChannelStore
func NewMemChannelStore() *MemChannelStore {
	return &MemChannelStore{channels: make(map[string]Channel)}
}

// Get Get
func (s *MemChannelStore) Get(name string) (*Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

// List List
func (s *MemChannelStore) List() ([]Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels := make([]Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, ch)
	}
	return channels, nil
}

// Save Save
func (s *MemChannelStore) Save(channel *Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channel.Name] = *channel
	return nil
}

// Delete Delete
func (s *MemChannelStore) Delete(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[name]; !ok {
		return 0, nil
	}
	delete(s.channels, name)
	return 1, nil
}

// MemMuteStore 内存禁言记录存储
type MemMuteStore struct {
	mu   sync.Mutex
	recs []MuteRecord
	next uint64
}

// NewMemMuteStore NewMemMuteStore
func NewMemMuteStore() *MemMuteStore {
	return &MemMuteStore{next: 1}
}

// Get Get
func (s *MemMuteStore) Get(userID, channel string) (*MuteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recs {
		if rec.UserID == userID && rec.ChannelName == channel {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

// List List
func (s *MemMuteStore) List(channel string) ([]MuteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := make([]MuteRecord, 0)
	for _, rec := range s.recs {
		if rec.ChannelName == channel {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// Add 同一 (user, channel) 重复添加只保留一条
func (s *MemMuteStore) Add(rec *MuteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.recs {
		if old.UserID == rec.UserID && old.ChannelName == rec.ChannelName {
			return nil
		}
	}
	rec.ID = s.next
	s.next++
	s.recs = append(s.recs, *rec)
	return nil
}

// Remove Remove
func (s *MemMuteStore) Remove(userID, channel string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.recs {
		if rec.UserID == userID && rec.ChannelName == channel {
			s.recs = append(s.recs[:i], s.recs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// MemMessageStore 内存消息存储
type MemMessageStore struct {
	mu       sync.Mutex
	msgs     []ChatMsg
	privates []PrivateMsg
}

// NewMemMessageStore NewMemMessageStore
func NewMemMessageStore() *MemMessageStore {
	return &MemMessageStore{}
}

// Append Append
func (s *MemMessageStore) Append(msgs ...*ChatMsg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.msgs = append(s.msgs, *m)
	}
	return nil
}

// AppendPrivate AppendPrivate
func (s *MemMessageStore) AppendPrivate(msgs ...*PrivateMsg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.privates = append(s.privates, *m)
	}
	return nil
}

// MarkDeleted MarkDeleted
func (s *MemMessageStore) MarkDeleted(msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].ID == msgID {
			s.msgs[i].IsDeleted = true
			return nil
		}
	}
	for i := range s.privates {
		if s.privates[i].ID == msgID {
			s.privates[i].IsDeleted = true
			return nil
		}
	}
	return nil
}

// MarkRead MarkRead
func (s *MemMessageStore) MarkRead(fromID, toID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	affected := 0
	for i := range s.privates {
		p := &s.privates[i]
		if p.FromID == fromID && p.ToID == toID && !p.IsRead {
			p.IsRead = true
			affected++
		}
	}
	return affected, nil
}

// Count 返回未删除的频道消息数，测试用
func (s *MemMessageStore) Count(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.msgs {
		if m.Channel == channel && !m.IsDeleted {
			count++
		}
	}
	return count
}

// CountPrivate 返回两人之间的私信数，测试用
func (s *MemMessageStore) CountPrivate(fromID, toID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.privates {
		if p.FromID == fromID && p.ToID == toID {
			count++
		}
	}
	return count
}

// NewMemStores 装配一整套内存存储
func NewMemStores() Stores {
	return Stores{
		Users:    NewMemUserStore(),
		Channels: NewMemChannelStore(),
		Mutes:    NewMemMuteStore(),
		Messages: NewMemMessageStore(),
	}
}
