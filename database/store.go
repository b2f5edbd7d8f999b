package database

// ChannelStore 定义了频道的存取接口
type ChannelStore interface {
	// Get returns nil, nil when the channel does not exist
	Get(name string) (*Channel, error)
	List() ([]Channel, error)
	Save(channel *Channel) error
	Delete(name string) (int, error)
}

// MuteStore 定义了禁言记录的存取接口。channel 为空表示全局禁言
type MuteStore interface {
	// Get returns nil, nil when no record exists
	Get(userID, channel string) (*MuteRecord, error)
	List(channel string) ([]MuteRecord, error)
	Add(rec *MuteRecord) error
	Remove(userID, channel string) (int, error)
}

// MessageStore 消息存取接口。删除是软删除
type MessageStore interface {
	Append(msgs ...*ChatMsg) error
	AppendPrivate(msgs ...*PrivateMsg) error
	MarkDeleted(msgID string) error
	// MarkRead marks every unread message from fromID to toID as read,
	// returns the number of affected rows
	MarkRead(fromID, toID string) (int, error)
}

// UserStore 用户存取接口
type UserStore interface {
	// Get returns nil, nil when the user does not exist
	Get(id string) (*User, error)
	Save(user *User) error
	SetAdmin(id string, isAdmin bool) (int, error)
	AdminCount() (int, error)
}

// Stores 打包全部存储接口，由 main 根据配置装配
type Stores struct {
	Users    UserStore
	Channels ChannelStore
	Mutes    MuteStore
	Messages MessageStore
}
