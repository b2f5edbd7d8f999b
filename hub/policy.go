package hub

import (
	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

// 拒绝发言的原因，随 MessageBlocked 下发给发送方本人
const (
	ReasonChannelMuted     = "channel_muted"
	ReasonUserMutedChannel = "user_muted_channel"
	ReasonUserMutedGlobal  = "user_muted_global"
)

// Verdict 一次发言检查的结论
type Verdict struct {
	Allowed bool
	Reason  string
}

// MutePolicy 判定某个用户能否向某个频道发言。
// 只读组件，数据来自策略快照，允许有限过期
type MutePolicy struct {
	cache database.PolicyCache
}

// NewMutePolicy NewMutePolicy
func NewMutePolicy(cache database.PolicyCache) *MutePolicy {
	return &MutePolicy{cache: cache}
}

// CanPost 取频道快照并判定
func (p *MutePolicy) CanPost(id database.Identity, channel string) (*Verdict, error) {
	snap, err := p.cache.Snapshot(wire.ChannelKey(channel))
	if err != nil {
		return nil, err
	}
	return p.Check(snap, id), nil
}

// Check 对一份快照判定。规则：
// 明确的个人禁言（全局或本频道）优先于管理员身份，被点名禁言的
// 管理员仍然不能发言。频道级禁言放行 ActiveManager 和管理员
func (p *MutePolicy) Check(snap *database.PolicySnapshot, id database.Identity) *Verdict {
	if snap.GlobalMutes[id.UserID] {
		return &Verdict{Reason: ReasonUserMutedGlobal}
	}
	if snap.MutedUsers[id.UserID] {
		return &Verdict{Reason: ReasonUserMutedChannel}
	}
	if snap.IsMuted && id.UserID != snap.ActiveManager && !id.IsAdmin {
		return &Verdict{Reason: ReasonChannelMuted}
	}
	return &Verdict{Allowed: true}
}
