// Package service holds the marketplace rules: the borrow lifecycle,
// the rating ledger and the notification feed, plus the catalog and
// account operations the HTTP layer needs.
package service

import (
	"context"
	"log/slog"
	"time"

	"Gin_postgres_redis_lendshare/auth"
	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/models"
	"Gin_postgres_redis_lendshare/notify"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultLoanDuration  = 48 * time.Hour
	DefaultDueSoonWindow = 24 * time.Hour
)

var tracer = otel.Tracer("Gin_postgres_redis_lendshare/service")

type Options struct {
	Dispatcher          notify.Dispatcher
	Logger              *slog.Logger
	Now                 func() time.Time
	Signer              *auth.Signer
	IsAdminEmail        func(email string) bool
	LoanDefaultDuration time.Duration
	DueSoonWindow       time.Duration
}

// Core 聚合所有业务组件，共享同一个 Repo 和通知出口
type Core struct {
	Accounts      *Accounts
	Catalog       *Catalog
	Borrow        *Lifecycle
	Ratings       *Ratings
	Notifications *Notifications
	Stats         *Stats
	Sweeper       *Sweeper
}

func New(repo *db.Repo, opt Options) *Core {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Dispatcher == nil {
		opt.Dispatcher = notify.NewLogDispatcher(opt.Logger)
	}
	if opt.Now == nil {
		opt.Now = func() time.Time { return time.Now().UTC() }
	}
	if opt.LoanDefaultDuration <= 0 {
		opt.LoanDefaultDuration = DefaultLoanDuration
	}
	if opt.DueSoonWindow <= 0 {
		opt.DueSoonWindow = DefaultDueSoonWindow
	}
	if opt.IsAdminEmail == nil {
		opt.IsAdminEmail = func(string) bool { return false }
	}

	notes := &Notifications{repo: repo, dispatch: opt.Dispatcher, log: opt.Logger, now: opt.Now}
	return &Core{
		Accounts:      &Accounts{repo: repo, signer: opt.Signer, isAdmin: opt.IsAdminEmail},
		Catalog:       &Catalog{repo: repo, now: opt.Now},
		Borrow:        &Lifecycle{repo: repo, notes: notes, now: opt.Now, loanDuration: opt.LoanDefaultDuration},
		Ratings:       &Ratings{repo: repo, notes: notes},
		Notifications: notes,
		Stats:         &Stats{repo: repo},
		Sweeper:       &Sweeper{repo: repo, notes: notes, log: opt.Logger, window: opt.DueSoonWindow},
	}
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func nameOf(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
