package database

import "time"

// PolicySnapshot 是某个频道禁言状态的一致性快照，允许有限过期
type PolicySnapshot struct {
	Channel       string
	Exists        bool
	IsMuted       bool
	ActiveManager string
	// MutedUsers 本频道内被禁言的用户
	MutedUsers map[string]bool
	// GlobalMutes 全局被禁言的用户
	GlobalMutes map[string]bool
	TakenAt     time.Time
}

// PolicyCache 提供发言检查用的快照，读不到时从存储刷新
type PolicyCache interface {
	Snapshot(channel string) (*PolicySnapshot, error)
	// Invalidate 在禁言数据变更后调用，下次读取强制刷新
	Invalidate(channel string)
}

// PresenceMirror 把在线连接镜像到外部缓存，带服务器实例标识。
// 单机模式下用 NopPresenceMirror
type PresenceMirror interface {
	AddConn(rec *ConnRecord) error
	DelConn(connID, userID string) error
	ConnCount(userID string) (int, error)
	// Clean 删除某个服务器实例的全部连接记录
	Clean(serverID string) error
}

// NopPresenceMirror 单机模式下的空实现
type NopPresenceMirror struct{}

// AddConn AddConn
func (NopPresenceMirror) AddConn(rec *ConnRecord) error { return nil }

// DelConn DelConn
func (NopPresenceMirror) DelConn(connID, userID string) error { return nil }

// ConnCount ConnCount
func (NopPresenceMirror) ConnCount(userID string) (int, error) { return 0, nil }

// Clean Clean
func (NopPresenceMirror) Clean(serverID string) error { return nil }
