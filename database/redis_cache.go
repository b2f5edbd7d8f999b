package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"
)

const (
	connRedisPattern        = "CONN_%s"
	userConnsRedisPattern   = "USER_CONNS_%s"
	serverConnsRedisPattern = "SERVER_CONNS_%s"

	connRecordExpire = time.Hour * 24
)

// RedisPresenceMirror 把在线连接记录镜像到 redis，按用户和服务器实例分别索引。
// 只做在线状态查询，不参与消息路由
type RedisPresenceMirror struct {
	client *redis.Client
}

// NewRedisPresenceMirror NewRedisPresenceMirror
func NewRedisPresenceMirror(client *redis.Client) *RedisPresenceMirror {
	return &RedisPresenceMirror{client: client}
}

// AddConn AddConn
func (c *RedisPresenceMirror) AddConn(rec *ConnRecord) error {
	buf, _ := json.Marshal(rec)
	ckey := fmt.Sprintf(connRedisPattern, rec.ConnID)
	if _, err := c.client.Set(ckey, buf, connRecordExpire).Result(); err != nil {
		return err
	}
	c.client.SAdd(fmt.Sprintf(userConnsRedisPattern, rec.UserID), rec.ConnID)
	c.client.HSet(fmt.Sprintf(serverConnsRedisPattern, rec.ServerID), ckey, rec.LoginAt)
	return nil
}

// DelConn DelConn
func (c *RedisPresenceMirror) DelConn(connID, userID string) error {
	ckey := fmt.Sprintf(connRedisPattern, connID)
	str, err := c.client.Get(ckey).Result()
	if err == nil {
		rec := &ConnRecord{}
		if json.Unmarshal([]byte(str), rec) == nil {
			c.client.HDel(fmt.Sprintf(serverConnsRedisPattern, rec.ServerID), ckey)
		}
	}
	c.client.Del(ckey)
	c.client.SRem(fmt.Sprintf(userConnsRedisPattern, userID), connID)
	return nil
}

// ConnCount 用户当前在线连接数，跨全部服务器实例
func (c *RedisPresenceMirror) ConnCount(userID string) (int, error) {
	count, err := c.client.SCard(fmt.Sprintf(userConnsRedisPattern, userID)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Clean 清掉某个服务器实例遗留的连接记录，重启时调用
func (c *RedisPresenceMirror) Clean(serverID string) error {
	skey := fmt.Sprintf(serverConnsRedisPattern, serverID)
	fields, err := c.client.HKeys(skey).Result()
	if err != nil {
		return err
	}
	for _, ckey := range fields {
		str, err := c.client.Get(ckey).Result()
		if err != nil {
			continue
		}
		rec := &ConnRecord{}
		if json.Unmarshal([]byte(str), rec) != nil {
			continue
		}
		c.client.Del(ckey)
		c.client.SRem(fmt.Sprintf(userConnsRedisPattern, rec.UserID), rec.ConnID)
	}
	c.client.Del(skey)
	return nil
}
