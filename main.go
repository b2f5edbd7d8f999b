package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/ws-chat/config"
	"github.com/ws-chat/database"
	"github.com/ws-chat/hub"

	_ "github.com/go-sql-driver/mysql"
)

func handleInterrupt(hub *hub.Hub, sc chan os.Signal) {
	<-sc
	hub.Close()
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	// read config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Panicln(err)
	}

	if cfg.Mysql.IP != "" {
		source := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
			cfg.Mysql.User, cfg.Mysql.Password, cfg.Mysql.IP, cfg.Mysql.Port, cfg.Mysql.DbName)
		engine := database.InitMysqlDb(source)
		if engine == nil {
			log.Panicln("init mysql failed")
		}
		cfg.Stores = database.NewDbStores(engine)
	} else {
		// 没配数据库就全部放内存，开发环境用
		cfg.Stores = database.NewMemStores()
	}

	cfg.Cache.Policy = database.NewSnapshotCache(cfg.Stores.Channels, cfg.Stores.Mutes,
		time.Duration(cfg.Snap.SnapshotTTL)*time.Second)

	if cfg.Server.Mode == config.ModeCluster {
		redis := database.InitRedis(cfg.Redis.IP, cfg.Redis.Port, cfg.Redis.Password)

		t1 := time.Now()
		serverTime, err := redis.Time().Result()
		t2 := time.Now()
		if err != nil {
			log.Panicln(err)
		}
		serverTime = serverTime.Add(t2.Sub(t1))
		if math.Abs(float64(serverTime.Sub(time.Now())/time.Millisecond)) > 500 {
			log.Panicln("system time is incorrect")
		}

		mirror := database.NewRedisPresenceMirror(redis)
		// 清掉上次运行遗留的在线记录
		if err := mirror.Clean(cfg.Server.ID); err != nil {
			log.Println(err)
		}
		cfg.Cache.Mirror = mirror
	} else {
		cfg.Cache.Mirror = database.NopPresenceMirror{}
	}

	// new server
	h, err := hub.NewHub(cfg)
	if err != nil {
		log.Panicln(err)
	}
	// listen sys.exit
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, os.Interrupt)

	go handleInterrupt(h, sc)

	h.Run()
}
