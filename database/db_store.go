package database

import (
	"log"

	"github.com/go-xorm/xorm"
)

// DbUserStore mysql 用户存储
type DbUserStore struct {
	engine *xorm.Engine
}

// NewDbUserStore NewDbUserStore
func NewDbUserStore(engine *xorm.Engine) *DbUserStore {
	if err := engine.Sync2(new(User)); err != nil {
		log.Println(err)
	}
	return &DbUserStore{engine: engine}
}

// Get Get
func (s *DbUserStore) Get(id string) (*User, error) {
	user := &User{}
	has, err := s.engine.ID(id).Get(user)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	return user, nil
}

// Save Save
func (s *DbUserStore) Save(user *User) error {
	has, err := s.engine.ID(user.ID).Exist(new(User))
	if err != nil {
		return err
	}
	if has {
		_, err = s.engine.ID(user.ID).AllCols().Update(user)
		return err
	}
	_, err = s.engine.Insert(user)
	return err
}

// SetAdmin SetAdmin
func (s *DbUserStore) SetAdmin(id string, isAdmin bool) (int, error) {
	affected, err := s.engine.ID(id).Cols("is_admin").Update(&User{IsAdmin: isAdmin})
	return int(affected), err
}

// AdminCount AdminCount
func (s *DbUserStore) AdminCount() (int, error) {
	count, err := s.engine.Where("is_admin = ?", true).Count(new(User))
	return int(count), err
}

// DbChannelStore mysql 频道存储
type DbChannelStore struct {
	engine *xorm.Engine
}

// NewDbChannelStore NewDbChannelStore
func NewDbChannelStore(engine *xorm.Engine) *DbChannelStore {
	if err := engine.Sync2(new(Channel)); err != nil {
		log.Println(err)
	}
	return &DbChannelStore{engine: engine}
}

// Get Get
func (s *DbChannelStore) Get(name string) (*Channel, error) {
	channel := &Channel{}
	has, err := s.engine.ID(name).Get(channel)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	return channel, nil
}

// List List
func (s *DbChannelStore) List() ([]Channel, error) {
	channels := make([]Channel, 0)
	err := s.engine.Find(&channels)
	return channels, err
}

// Save Save
func (s *DbChannelStore) Save(channel *Channel) error {
	has, err := s.engine.ID(channel.Name).Exist(new(Channel))
	if err != nil {
		return err
	}
	if has {
		_, err = s.engine.ID(channel.Name).AllCols().Update(channel)
		return err
	}
	_, err = s.engine.Insert(channel)
	return err
}

// Delete Delete
func (s *DbChannelStore) Delete(name string) (int, error) {
	affected, err := s.engine.ID(name).Delete(new(Channel))
	return int(affected), err
}

// DbMuteStore mysql 禁言记录存储
type DbMuteStore struct {
	engine *xorm.Engine
}

// NewDbMuteStore NewDbMuteStore
func NewDbMuteStore(engine *xorm.Engine) *DbMuteStore {
	if err := engine.Sync2(new(MuteRecord)); err != nil {
		log.Println(err)
	}
	return &DbMuteStore{engine: engine}
}

// Get Get
func (s *DbMuteStore) Get(userID, channel string) (*MuteRecord, error) {
	rec := &MuteRecord{}
	has, err := s.engine.Where("user_id = ? AND channel_name = ?", userID, channel).Get(rec)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	return rec, nil
}

// List List
func (s *DbMuteStore) List(channel string) ([]MuteRecord, error) {
	recs := make([]MuteRecord, 0)
	err := s.engine.Where("channel_name = ?", channel).Find(&recs)
	return recs, err
}

// Add 同一 (user, channel) 已有记录时不重复插入
func (s *DbMuteStore) Add(rec *MuteRecord) error {
	has, err := s.engine.Where("user_id = ? AND channel_name = ?", rec.UserID, rec.ChannelName).Exist(new(MuteRecord))
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.engine.Insert(rec)
	return err
}

// Remove Remove
func (s *DbMuteStore) Remove(userID, channel string) (int, error) {
	affected, err := s.engine.Where("user_id = ? AND channel_name = ?", userID, channel).Delete(new(MuteRecord))
	return int(affected), err
}

// DbMessageStore mysql 消息存储
type DbMessageStore struct {
	engine *xorm.Engine
}

// NewDbMessageStore new a DbMessageStore
func NewDbMessageStore(engine *xorm.Engine) *DbMessageStore {
	err := engine.Sync2(new(ChatMsg), new(PrivateMsg))
	if err != nil {
		log.Println(err)
	}
	return &DbMessageStore{engine: engine}
}

// Append save messages to mysql
func (s *DbMessageStore) Append(msgs ...*ChatMsg) error {
	if len(msgs) == 0 {
		return nil
	}
	_, err := s.engine.Insert(msgs)
	return err
}

// AppendPrivate AppendPrivate
func (s *DbMessageStore) AppendPrivate(msgs ...*PrivateMsg) error {
	if len(msgs) == 0 {
		return nil
	}
	_, err := s.engine.Insert(msgs)
	return err
}

// MarkDeleted 软删除
func (s *DbMessageStore) MarkDeleted(msgID string) error {
	_, err := s.engine.ID(msgID).Cols("is_deleted").Update(&ChatMsg{IsDeleted: true})
	if err != nil {
		return err
	}
	_, err = s.engine.ID(msgID).Cols("is_deleted").Update(&PrivateMsg{IsDeleted: true})
	return err
}

// MarkRead MarkRead
func (s *DbMessageStore) MarkRead(fromID, toID string) (int, error) {
	affected, err := s.engine.Where("from_id = ? AND to_id = ? AND is_read = ?", fromID, toID, false).
		Cols("is_read").Update(&PrivateMsg{IsRead: true})
	return int(affected), err
}

// NewDbStores 装配一整套 mysql 存储
func NewDbStores(engine *xorm.Engine) Stores {
	return Stores{
		Users:    NewDbUserStore(engine),
		Channels: NewDbChannelStore(engine),
		Mutes:    NewDbMuteStore(engine),
		Messages: NewDbMessageStore(engine),
	}
}
