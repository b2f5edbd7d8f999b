package hub

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/ws-chat/config"
	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

// IdentityProvider 从一个已经通过认证的请求里解析出用户身份。
// 认证本身由外部服务完成，这里只校验签名并还原身份
type IdentityProvider interface {
	Resolve(r *http.Request) (*database.Identity, error)
}

type digestIdentityProvider struct {
	secret string
	users  database.UserStore
}

func newDigestIdentityProvider(secret string, users database.UserStore) *digestIdentityProvider {
	return &digestIdentityProvider{secret: secret, users: users}
}

// Resolve 校验 uid+name+admin+nonce 的摘要。管理员标志以用户表为准，
// 升降级在连接之间生效
func (p *digestIdentityProvider) Resolve(r *http.Request) (*database.Identity, error) {
	q := r.URL.Query()
	uid := q.Get("uid")
	name := q.Get("name")
	admin := q.Get("admin")
	nonce := q.Get("nonce")
	digest := q.Get("digest")

	if uid == "" || nonce == "" || digest == "" {
		return nil, fmt.Errorf("missing identity params")
	}
	if !checkDigest(p.secret, fmt.Sprintf("%v%v%v%v", uid, name, admin, nonce), digest) {
		return nil, fmt.Errorf("bad digest")
	}

	identity := &database.Identity{UserID: uid, Name: name, IsAdmin: admin == "1"}

	user, err := p.users.Get(uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		err = p.users.Save(&database.User{ID: uid, Name: name, IsAdmin: identity.IsAdmin})
		if err != nil {
			return nil, err
		}
	} else {
		identity.Name = user.Name
		identity.IsAdmin = user.IsAdmin
	}
	return identity, nil
}

// MakeDigest 客户端用同一个算法对身份参数签名
func MakeDigest(secret, uid, name, admin, nonce string) string {
	h := md5.New()
	io.WriteString(h, fmt.Sprintf("%v%v%v%v", uid, name, admin, nonce))
	io.WriteString(h, secret)
	return hex.EncodeToString(h.Sum(nil))
}

func checkDigest(secret, text, digest string) bool {
	h := md5.New()
	io.WriteString(h, text)
	io.WriteString(h, secret)
	return digest == hex.EncodeToString(h.Sum(nil))
}

// start http server ,this function must be in a routine
func httplisten(hub *Hub, conf *config.ServerConfig) {
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleClientWebSocket(hub, w, r)
	})
	http.HandleFunc("/q/online", func(w http.ResponseWriter, r *http.Request) {
		httpQueryOnlineHandler(hub, w, r)
	})
	http.HandleFunc("/admin/mute", adminHandler(hub, handleMute))
	http.HandleFunc("/admin/unmute", adminHandler(hub, handleUnmute))
	http.HandleFunc("/admin/promote", adminHandler(hub, handlePromote))
	http.HandleFunc("/admin/demote", adminHandler(hub, handleDemote))
	http.HandleFunc("/admin/channel/create", adminHandler(hub, handleChannelCreate))
	http.HandleFunc("/admin/channel/delete", adminHandler(hub, handleChannelDelete))
	http.HandleFunc("/admin/channel/mute", adminHandler(hub, handleChannelMute))
	http.HandleFunc("/admin/message/delete", adminHandler(hub, handleMessageDelete))

	addr := fmt.Sprintf("%s:%d", conf.ListenIP, conf.ListenPort)
	log.Println("listen on ", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Println("ListenAndServe: ", err)
	}
}

// 处理来自客户端的连接
func handleClientWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	identity, err := hub.identity.Resolve(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, err.Error())
		return
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	connID := uuid.New().String()
	log.Printf("client %v connecting as %v", connID, identity.UserID)
	clientPeer := newClientPeer(connID, *identity, hub, conn)

	errchan := make(chan error, 1)
	hub.register <- &addPeer{peer: clientPeer, err: errchan}
	if err = <-errchan; err != nil {
		log.Println(err)
		clientPeer.Close()
		return
	}

	ack := wire.NewMessage(uuid.New().String(), &wire.MsgLoginAck{
		ConnectionID: connID,
		ServerID:     hub.ServerID,
	})
	clientPeer.PushMessage(ack, nil)
}

// 查询某个用户的在线连接数，跨实例数据来自镜像
func httpQueryOnlineHandler(hub *Hub, w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	local := len(hub.registry.ConnectionsOf(uid))
	total, err := hub.mirror.ConnCount(uid)
	if err != nil || total < local {
		total = local
	}
	json.NewEncoder(w).Encode(map[string]int{"local": local, "total": total})
}

type adminRequest struct {
	UserID    string `json:"userId"`
	Channel   string `json:"channel"`
	MessageID string `json:"messageId"`
	Reason    string `json:"reason"`
	Mute      bool   `json:"mute"`
}

type adminAction func(hub *Hub, by database.Identity, req *adminRequest) error

func adminHandler(hub *Hub, action adminAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := hub.identity.Resolve(r)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, err.Error())
			return
		}
		var req adminRequest
		if r.Body != nil {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		if err := action(hub, *identity, &req); err != nil {
			writeAdminErr(w, err)
			return
		}
		fmt.Fprint(w, "ok")
	}
}

func writeAdminErr(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotAdmin:
		w.WriteHeader(http.StatusForbidden)
	case ErrSelfAction, ErrLastAdmin, ErrUnknownUser, ErrUnknownChannel, ErrChannelExists:
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func handleMute(hub *Hub, by database.Identity, req *adminRequest) error {
	return hub.admin.MuteUser(by, req.UserID, req.Channel, req.Reason)
}

func handleUnmute(hub *Hub, by database.Identity, req *adminRequest) error {
	return hub.admin.UnmuteUser(by, req.UserID, req.Channel)
}

func handlePromote(hub *Hub, by database.Identity, req *adminRequest) error {
	return hub.admin.Promote(by, req.UserID)
}

func handleDemote(hub *Hub, by database.Identity, req *adminRequest) error {
	return hub.admin.Demote(by, req.UserID)
}

func handleChannelCreate(hub *Hub, by database.Identity, req *adminRequest) error {
	return hub.admin.CreateChannel(by, req.Channel)
}

func handleChannelDelete(hub *Hub, by database.Identity, req *adminRequest) error {
	return hub.admin.DeleteChannel(by, req.Channel)
}

func handleChannelMute(hub *Hub, by database.Identity, req *adminRequest) error {
	return hub.admin.MuteChannel(by, req.Channel, req.Mute)
}

func handleMessageDelete(hub *Hub, by database.Identity, req *adminRequest) error {
	return hub.admin.DeleteMessage(by, req.MessageID, req.Channel)
}
