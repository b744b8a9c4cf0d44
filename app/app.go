package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"Gin_postgres_redis_lendshare/auth"
	"Gin_postgres_redis_lendshare/config"
	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/mq"
	"Gin_postgres_redis_lendshare/notify"
	"Gin_postgres_redis_lendshare/service"
	"Gin_postgres_redis_lendshare/session"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client // 为 nil 时没有 cookie 会话和 passkey
	WA     *webauthn.WebAuthn
	Config config.Config
	Repo   *db.Repo
	Core   *service.Core
	Tokens *auth.Signer

	appSess *session.AppSessionStore
	pub     *mq.Publisher
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

// New wires the router and the core around already opened connections.
// rdb and wa may be nil.
func New(cfg config.Config, gdb *gorm.DB, rdb *redis.Client, wa *webauthn.WebAuthn, d notify.Dispatcher) *App {
	repo := db.NewRepo(gdb)
	tokens := auth.NewSigner(cfg.JWTSecret, cfg.JWTTTL)
	core := service.New(repo, service.Options{
		Dispatcher:          d,
		Logger:              slog.Default(),
		Signer:              tokens,
		IsAdminEmail:        cfg.IsAdminEmail,
		LoanDefaultDuration: cfg.LoanDefaultDuration,
		DueSoonWindow:       cfg.DueSoonWindow,
	})

	r := gin.Default()
	useCORS(r, cfg)

	a := &App{
		Router: r, DB: gdb, RDB: rdb, WA: wa, Config: cfg,
		Repo: repo, Core: core, Tokens: tokens,
	}
	if rdb != nil {
		a.appSess = session.NewAppSessionStore(rdb, cfg.AppSessionTTL)
	}
	return a
}

// MustNew 连接 Postgres / Redis / RabbitMQ，任一必需依赖失败直接退出
func MustNew(cfg config.Config) *App {
	dbConn, err := db.ConnectDB(cfg.DSN())
	if err != nil {
		fatal("database", err)
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fatal("redis", err)
	}

	// --- WebAuthn RP ---
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "LendShare",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		fatal("webauthn", err)
	}

	// --- 通知投递：有 RABBIT_URL 走 AMQP，否则只打日志 ---
	var (
		d   notify.Dispatcher = notify.NewLogDispatcher(slog.Default())
		pub *mq.Publisher
	)
	if cfg.RabbitURL != "" {
		pub, err = mq.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			fatal("rabbitmq", err)
		}
		d = notify.NewAMQPDispatcher(pub)
		slog.Info("notifications published to rabbitmq", "exchange", cfg.NotifyExchange)
	}

	a := New(cfg, dbConn, rdb, wa, d)
	a.pub = pub
	return a
}

func (a *App) Close() {
	if a.pub != nil {
		_ = a.pub.Close()
	}
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func fatal(what string, err error) {
	slog.Error("startup failed", "component", what, "err", err)
	os.Exit(1)
}
