package app

import (
	"time"

	"Gin_postgres_redis_lendshare/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchLastSeen 用 SETNX 节流，每个用户每个 throttle 周期最多写一次库
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(CtxUserID)
		if uid == "" || rdb == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if ok, _ := rdb.SetNX(ctx, "lend:lastseen:"+uid, "1", throttle).Result(); ok {
			_ = repo.TouchUserSeen(ctx, uid)
		}
		c.Next()
	}
}
