package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/go-ini/ini"
	"github.com/ws-chat/database"
)

const (
	defaultConfigName = "conf.ini"
	defaultIDName     = "id.lock"
)

var (
	configDir         = "./"
	defaultDataDir    = "./data"
	defaultConfigFile = filepath.Join(configDir, defaultConfigName)
)

const (
	// ModeSingle 单机启动模式
	ModeSingle = 1
	// ModeCluster 集群模式，要求配置 redis 做在线镜像
	ModeCluster = 2
)

// ServerConfig ServerConfig
type ServerConfig struct {
	// ID 服务器实例标识，自动生成并缓存到文件，重启不变
	ID         string
	ListenIP   string
	ListenPort int
	Secret     string
	Origin     string
	Mode       int
	DataDir    string
}

// RedisConfig redis config
type RedisConfig struct {
	IP       string
	Port     int
	Password string
	Db       int
}

// MysqlConfig mysql config
type MysqlConfig struct {
	IP       string
	Port     int
	User     string
	Password string
	DbName   string
}

// PeerConfig 连接的心跳与读写超时，单位秒
type PeerConfig struct {
	MaxMessageSize int
	WriteWait      int
	PongWait       int
	PingPeriod     int
}

// WriteWaitDuration WriteWaitDuration
func (c *PeerConfig) WriteWaitDuration() time.Duration {
	return time.Duration(c.WriteWait) * time.Second
}

// PongWaitDuration PongWaitDuration
func (c *PeerConfig) PongWaitDuration() time.Duration {
	return time.Duration(c.PongWait) * time.Second
}

// PingPeriodDuration PingPeriodDuration
func (c *PeerConfig) PingPeriodDuration() time.Duration {
	return time.Duration(c.PingPeriod) * time.Second
}

// CacheConfig 策略快照的过期窗口，单位秒
type CacheConfig struct {
	SnapshotTTL int
}

// Cache 缓存服务装配
type Cache struct {
	Policy database.PolicyCache
	Mirror database.PresenceMirror
}

// Config 系统配置信息，包括 redis 配置，mysql 配置。
// Stores 和 Cache 由 main 按配置装配后挂进来
type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Mysql  MysqlConfig
	Peer   PeerConfig
	Snap   CacheConfig

	Stores database.Stores
	Cache  Cache
}

// LoadConfig 读默认位置的 conf.ini
func LoadConfig() (*Config, error) {
	return LoadConfigFile(defaultConfigFile)
}

// LoadConfigFile LoadConfigFile
func LoadConfigFile(path string) (*Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		fmt.Printf("Fail to read file: %v", err)
		return nil, err
	}
	var config Config
	if err = cfg.Section("server").MapTo(&config.Server); err != nil {
		return nil, err
	}
	if err = cfg.Section("redis").MapTo(&config.Redis); err != nil {
		return nil, err
	}
	if err = cfg.Section("mysql").MapTo(&config.Mysql); err != nil {
		return nil, err
	}
	if err = cfg.Section("peer").MapTo(&config.Peer); err != nil {
		return nil, err
	}
	if err = cfg.Section("cache").MapTo(&config.Snap); err != nil {
		return nil, err
	}

	if config.Server.Mode == 0 {
		config.Server.Mode = ModeSingle
	}
	if config.Server.DataDir == "" {
		config.Server.DataDir = defaultDataDir
	}
	if _, err := os.Stat(config.Server.DataDir); err != nil {
		if err = os.MkdirAll(config.Server.DataDir, os.ModePerm); err != nil {
			fmt.Println(err)
			return nil, err
		}
	}

	config.Server.ID, err = BuildServerID(config.Server.DataDir)
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// BuildServerID build a serverID
func BuildServerID(dataDir string) (string, error) {
	idFile := filepath.Join(dataDir, defaultIDName)
	_, err := os.Stat(idFile)
	if err != nil {
		sid := fmt.Sprintf("%d", time.Now().Unix())
		ioutil.WriteFile(idFile, []byte(sid), 0644)
	}
	fb, err := ioutil.ReadFile(idFile)
	if err != nil {
		return "", err
	}
	return string(fb), nil
}
