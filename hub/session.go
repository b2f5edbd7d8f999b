package hub

import (
	"log"

	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

// ChannelSession 编排一条连接进出频道的全过程：
// 校验频道存在、更新成员关系、向相关成员广播
type ChannelSession struct {
	registry *Registry
	channels database.ChannelStore
}

// NewChannelSession NewChannelSession
func NewChannelSession(registry *Registry, channels database.ChannelStore) *ChannelSession {
	return &ChannelSession{registry: registry, channels: channels}
}

// Join 处理加入频道。频道不存在时只通知请求方，不动成员关系。
// 重复加入不再次广播
func (s *ChannelSession) Join(connID, channelName string) error {
	conn := s.registry.Get(connID)
	if conn == nil {
		// 连接已断开后到达的迟到请求
		return nil
	}
	key := wire.ChannelKey(channelName)

	channel, err := s.channels.Get(key)
	if err != nil {
		return err
	}
	if channel == nil {
		pushTo(conn, &wire.MsgChannelNotFound{Channel: key})
		return nil
	}

	alreadyMember, ok := s.registry.Join(connID, key)
	if !ok || alreadyMember {
		return nil
	}
	// 新成员自己也收到 UserJoined，客户端靠它刷新本地状态
	broadcast(s.registry.MembersOf(key), &wire.MsgUserJoined{
		Channel: key,
		UserID:  conn.Identity.UserID,
		Name:    conn.Identity.Name,
	})
	return nil
}

// Leave 处理离开频道。不是成员时是 no-op，零广播
func (s *ChannelSession) Leave(connID, channelName string) error {
	conn := s.registry.Get(connID)
	if conn == nil {
		return nil
	}
	key := wire.ChannelKey(channelName)

	if !s.registry.Leave(connID, key) {
		return nil
	}
	broadcast(s.registry.MembersOf(key), &wire.MsgUserLeft{
		Channel: key,
		UserID:  conn.Identity.UserID,
		Name:    conn.Identity.Name,
	})
	return nil
}

// Disconnected 连接注销后，为它曾加入的每个频道补发一次 UserLeft
func (s *ChannelSession) Disconnected(conn *Connection, channels []string) {
	for _, channel := range channels {
		broadcast(s.registry.MembersOf(channel), &wire.MsgUserLeft{
			Channel: channel,
			UserID:  conn.Identity.UserID,
			Name:    conn.Identity.Name,
		})
	}
}

// DropChannel 频道被删除：先通知全部成员，再把他们移出频道，
// 最后向所有在线连接广播频道列表变更
func (s *ChannelSession) DropChannel(channelName string) {
	key := wire.ChannelKey(channelName)

	members := s.registry.MembersOf(key)
	broadcast(members, &wire.MsgChannelDeleted{Channel: key})
	for _, member := range members {
		s.registry.Leave(member.ID, key)
	}
	s.AnnounceChannelList()
}

// AnnounceChannelList 向所有在线连接广播当前频道列表
func (s *ChannelSession) AnnounceChannelList() {
	channels, err := s.channels.List()
	if err != nil {
		log.Println("list channels:", err)
		return
	}
	names := make([]string, 0, len(channels))
	for _, channel := range channels {
		names = append(names, channel.Name)
	}
	broadcast(s.registry.All(), &wire.MsgChannelListUpdated{Channels: names})
}
