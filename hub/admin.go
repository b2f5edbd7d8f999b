package hub

import (
	"errors"

	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

// 管理操作在任何状态变更之前就被边界检查拦下，
// 带类型的拒绝原因返回给调用方
var (
	// ErrNotAdmin requester 不是管理员
	ErrNotAdmin = errors.New("requester is not an admin")
	// ErrSelfAction 不允许对自己执行禁言/解禁/升降级
	ErrSelfAction = errors.New("cannot target yourself")
	// ErrLastAdmin 必须至少保留一名管理员
	ErrLastAdmin = errors.New("at least one admin must remain")
	// ErrUnknownUser 目标用户不存在
	ErrUnknownUser = errors.New("unknown user")
	// ErrUnknownChannel 目标频道不存在
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrChannelExists 频道已存在
	ErrChannelExists = errors.New("channel already exists")
)

// AdminService 管理操作入口：禁言/解禁、升降级、频道增删、删消息。
// 先校验不变式，再写存储，最后触发广播和快照失效
type AdminService struct {
	users    database.UserStore
	channels database.ChannelStore
	mutes    database.MuteStore
	cache    database.PolicyCache
	session  *ChannelSession
	router   *MessageRouter
}

// NewAdminService NewAdminService
func NewAdminService(stores database.Stores, cache database.PolicyCache, session *ChannelSession, router *MessageRouter) *AdminService {
	return &AdminService{
		users:    stores.Users,
		channels: stores.Channels,
		mutes:    stores.Mutes,
		cache:    cache,
		session:  session,
		router:   router,
	}
}

// MuteUser 禁言用户。channelName 为空表示全局禁言。
// 全局禁言不广播：没有哪一个频道的成员集合是它的接收方
func (a *AdminService) MuteUser(by database.Identity, userID, channelName, reason string) error {
	if !by.IsAdmin {
		return ErrNotAdmin
	}
	if by.UserID == userID {
		return ErrSelfAction
	}
	target, err := a.users.Get(userID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUnknownUser
	}

	key := ""
	if channelName != "" {
		key = wire.ChannelKey(channelName)
		channel, err := a.channels.Get(key)
		if err != nil {
			return err
		}
		if channel == nil {
			return ErrUnknownChannel
		}
	}

	err = a.mutes.Add(&database.MuteRecord{
		UserID:      userID,
		ChannelName: key,
		MutedBy:     by.UserID,
		Reason:      reason,
	})
	if err != nil {
		return err
	}
	a.cache.Invalidate(key)

	if key != "" {
		a.router.AnnounceUserMuted(key, target, by)
	}
	return nil
}

// UnmuteUser 解除禁言。解禁广播发给包括本人在内的全体成员
func (a *AdminService) UnmuteUser(by database.Identity, userID, channelName string) error {
	if !by.IsAdmin {
		return ErrNotAdmin
	}
	if by.UserID == userID {
		return ErrSelfAction
	}
	target, err := a.users.Get(userID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUnknownUser
	}

	key := ""
	if channelName != "" {
		key = wire.ChannelKey(channelName)
	}
	affected, err := a.mutes.Remove(userID, key)
	if err != nil {
		return err
	}
	if affected == 0 {
		return nil
	}
	a.cache.Invalidate(key)

	if key != "" {
		a.router.AnnounceUserUnmuted(key, target, by)
	}
	return nil
}

// Promote 提升为管理员
func (a *AdminService) Promote(by database.Identity, userID string) error {
	if !by.IsAdmin {
		return ErrNotAdmin
	}
	if by.UserID == userID {
		return ErrSelfAction
	}
	affected, err := a.users.SetAdmin(userID, true)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUnknownUser
	}
	return nil
}

// Demote 撤销管理员。只剩一名管理员时无条件拒绝
func (a *AdminService) Demote(by database.Identity, userID string) error {
	if !by.IsAdmin {
		return ErrNotAdmin
	}
	if by.UserID == userID {
		return ErrSelfAction
	}
	count, err := a.users.AdminCount()
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastAdmin
	}
	affected, err := a.users.SetAdmin(userID, false)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUnknownUser
	}
	return nil
}

// MuteChannel 频道级禁言开关。开启时当前操作者接管 ActiveManager，
// 解除时交还给创建者
func (a *AdminService) MuteChannel(by database.Identity, channelName string, mute bool) error {
	if !by.IsAdmin {
		return ErrNotAdmin
	}
	key := wire.ChannelKey(channelName)
	channel, err := a.channels.Get(key)
	if err != nil {
		return err
	}
	if channel == nil {
		return ErrUnknownChannel
	}

	channel.IsMuted = mute
	if mute {
		channel.ActiveManager = by.UserID
	} else {
		channel.ActiveManager = channel.CreatedBy
	}
	if err := a.channels.Save(channel); err != nil {
		return err
	}
	a.cache.Invalidate(key)
	a.router.AnnounceChannelMute(key, channel.IsMuted, channel.ActiveManager)
	return nil
}

// CreateChannel 创建频道，创建者默认是 ActiveManager
func (a *AdminService) CreateChannel(by database.Identity, channelName string) error {
	key := wire.ChannelKey(channelName)
	if key == "" {
		return ErrUnknownChannel
	}
	existing, err := a.channels.Get(key)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrChannelExists
	}
	err = a.channels.Save(&database.Channel{
		Name:          key,
		CreatedBy:     by.UserID,
		ActiveManager: by.UserID,
	})
	if err != nil {
		return err
	}
	a.session.AnnounceChannelList()
	return nil
}

// DeleteChannel 删除频道并清退全部成员
func (a *AdminService) DeleteChannel(by database.Identity, channelName string) error {
	if !by.IsAdmin {
		return ErrNotAdmin
	}
	key := wire.ChannelKey(channelName)
	affected, err := a.channels.Delete(key)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUnknownChannel
	}
	a.cache.Invalidate(key)
	a.session.DropChannel(key)
	return nil
}

// DeleteMessage 软删除一条消息并通知频道成员
func (a *AdminService) DeleteMessage(by database.Identity, msgID, channelName string) error {
	if !by.IsAdmin {
		return ErrNotAdmin
	}
	return a.router.DropMessage(msgID, channelName)
}
