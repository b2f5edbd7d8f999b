package database

import (
	"time"
)

// Identity 是已通过认证的用户身份，在连接存续期内不变
type Identity struct {
	UserID  string
	Name    string
	IsAdmin bool
}

// User 用户对象
type User struct {
	ID       string `xorm:"pk 'id'"`
	Name     string
	IsAdmin  bool
	CreateAt time.Time `xorm:"created"`
}

// Channel 频道对象。IsMuted=true 时只有 ActiveManager 和管理员可以发言
type Channel struct {
	Name          string `xorm:"pk"`
	CreatedBy     string
	ActiveManager string
	IsMuted       bool
	CreateAt      time.Time `xorm:"created"`
}

// MuteRecord 禁言记录。ChannelName 为空表示全局禁言。
// 每个 (UserID, ChannelName) 至多一条记录
type MuteRecord struct {
	ID          uint64 `xorm:"pk autoincr 'id'"`
	UserID      string `xorm:"index"`
	ChannelName string
	MutedBy     string
	Reason      string
	MuteAt      time.Time `xorm:"created"`
}

// ChatMsg 频道消息
type ChatMsg struct {
	ID        string `xorm:"pk 'id'"`
	Channel   string `xorm:"index"`
	FromID    string
	FromName  string
	Text      string `xorm:"varchar(1024)"`
	IsDeleted bool
	CreateAt  time.Time
}

// PrivateMsg 单聊消息，默认未读
type PrivateMsg struct {
	ID        string `xorm:"pk 'id'"`
	FromID    string `xorm:"index"`
	ToID      string `xorm:"index"`
	FromName  string
	Text      string `xorm:"varchar(1024)"`
	IsRead    bool
	IsDeleted bool
	CreateAt  time.Time
}

// ConnRecord 在线连接记录，带服务器实例标识，用于跨实例查询在线状态
type ConnRecord struct {
	ConnID   string
	UserID   string
	ServerID string
	LoginAt  int64 // second
}
