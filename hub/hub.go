package hub

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ws-chat/config"
	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

const mirrorRefreshInterval = time.Second * 30

type addPeer struct {
	peer *ClientPeer
	err  chan error
}

type delPeer struct {
	peer *ClientPeer
	done chan struct{}
}

// Hub 是服务中心：持有 Registry 和各编排组件，
// 连接的登记和注销统一经由 peerHandler 串行处理
type Hub struct {
	upgrader *websocket.Upgrader
	config   *config.Config
	ServerID string

	registry *Registry
	policy   *MutePolicy
	session  *ChannelSession
	router   *MessageRouter
	admin    *AdminService
	identity IdentityProvider

	stores database.Stores
	cache  database.PolicyCache
	mirror database.PresenceMirror

	register   chan *addPeer
	unregister chan *delPeer
	quit       chan struct{}
}

// NewHub 创建一个 Hub 对象，并初始化
func NewHub(cfg *config.Config) (*Hub, error) {
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.Server.Origin == "*" {
				return true
			}
			rOrigin := r.Header.Get("Origin")
			if strings.Contains(cfg.Server.Origin, rOrigin) {
				return true
			}
			log.Println("refuse", rOrigin)
			return false
		},
	}

	cache := cfg.Cache.Policy
	if cache == nil {
		cache = database.NewSnapshotCache(cfg.Stores.Channels, cfg.Stores.Mutes, 0)
	}
	mirror := cfg.Cache.Mirror
	if mirror == nil {
		mirror = database.NopPresenceMirror{}
	}

	registry := NewRegistry(cfg.Server.ID)
	policy := NewMutePolicy(cache)
	session := NewChannelSession(registry, cfg.Stores.Channels)
	router := NewMessageRouter(registry, policy, cache, cfg.Stores.Messages)

	hub := &Hub{
		upgrader: upgrader,
		config:   cfg,
		ServerID: cfg.Server.ID,
		registry: registry,
		policy:   policy,
		session:  session,
		router:   router,
		admin:    NewAdminService(cfg.Stores, cache, session, router),
		identity: newDigestIdentityProvider(cfg.Server.Secret, cfg.Stores.Users),
		stores:   cfg.Stores,
		cache:    cache,
		mirror:   mirror,

		register:   make(chan *addPeer, 1),
		unregister: make(chan *delPeer, 1),
		quit:       make(chan struct{}),
	}

	go httplisten(hub, &cfg.Server)

	return hub, nil
}

// Run start all handlers
func (h *Hub) Run() {
	go h.peerHandler()
	go h.mirrorHandler()

	<-h.quit
}

// peerHandler 串行消费连接的登记与注销
func (h *Hub) peerHandler() {
	log.Println("start peerHandler")
	for {
		select {
		case p := <-h.register:
			peer := p.peer
			old, left := h.registry.Register(peer.connID, peer.identity, peer)
			if old != nil {
				// 同一 connID 的残留连接，踢掉旧的，
				// 它所在频道的成员要看到它离开
				log.Printf("kick stale conn %v", peer.connID)
				old.sender.Close()
				h.session.Disconnected(old, left)
			}
			if err := h.mirror.AddConn(&database.ConnRecord{
				ConnID:   peer.connID,
				UserID:   peer.identity.UserID,
				ServerID: h.ServerID,
				LoginAt:  time.Now().Unix(),
			}); err != nil {
				log.Println("mirror add:", err)
			}
			log.Printf("client %v connected as %v", peer.connID, peer.identity.UserID)
			if p.err != nil {
				p.err <- nil
			}
		case p := <-h.unregister:
			peer := p.peer
			conn := h.registry.Get(peer.connID)
			if conn != nil && conn.sender == Sender(peer) {
				channels := h.registry.Unregister(peer.connID)
				h.session.Disconnected(conn, channels)
				if err := h.mirror.DelConn(peer.connID, peer.identity.UserID); err != nil {
					log.Println("mirror del:", err)
				}
				log.Printf("client %v disconnected", peer.connID)
			}
			if p.done != nil {
				p.done <- struct{}{}
			}
		case <-h.quit:
			return
		}
	}
}

// mirrorHandler 周期性刷新在线镜像，避免记录过期
func (h *Hub) mirrorHandler() {
	if h.config.Server.Mode == config.ModeSingle {
		return
	}
	ticker := time.NewTicker(mirrorRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, conn := range h.registry.All() {
				h.mirror.AddConn(&database.ConnRecord{
					ConnID:   conn.ID,
					UserID:   conn.Identity.UserID,
					ServerID: h.ServerID,
					LoginAt:  conn.ConnectedAt.Unix(),
				})
			}
		case <-h.quit:
			return
		}
	}
}

// DropChannel 外部触发的频道删除入口
func (h *Hub) DropChannel(name string) {
	h.cache.Invalidate(wire.ChannelKey(name))
	h.session.DropChannel(name)
}

// Admin 管理操作入口
func (h *Hub) Admin() *AdminService {
	return h.admin
}

// Close close hub
func (h *Hub) Close() {
	h.clean()
	close(h.quit)
}

// clean 踢掉全部在线连接并清理镜像
func (h *Hub) clean() {
	for _, conn := range h.registry.All() {
		conn.sender.Close()
		h.registry.Unregister(conn.ID)
		h.mirror.DelConn(conn.ID, conn.Identity.UserID)
	}
	h.router.Stop()

	if h.config.Server.Mode == config.ModeCluster {
		if err := h.mirror.Clean(h.ServerID); err != nil {
			log.Println("mirror clean:", err)
		}
	}

	time.Sleep(time.Second)
}
