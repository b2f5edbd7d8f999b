package database

import (
	"fmt"
	"log"

	// just init
	_ "github.com/go-sql-driver/mysql"
	"github.com/go-redis/redis"
	"github.com/go-xorm/xorm"
	"xorm.io/core"
)

// InitMysqlDb init mysql database
func InitMysqlDb(source string) *xorm.Engine {
	url := fmt.Sprintf("%s?charset=utf8&parseTime=True&loc=Local", source)
	engine, err := xorm.NewEngine("mysql", url)
	if err != nil {
		log.Println(err)
		return nil
	}

	tbMapper := core.NewPrefixMapper(core.SnakeMapper{}, "t_")
	engine.SetTableMapper(tbMapper)
	engine.SetColumnMapper(core.SnakeMapper{})

	return engine
}

// InitRedis return a redis instance
func InitRedis(ip string, port int, pass string) *redis.Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", ip, port),
		Password: pass,
	})
	return redisdb
}
