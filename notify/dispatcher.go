// Package notify hands stored notifications to a delivery transport.
// The row in lend_notifications is the record; delivery is best-effort.
package notify

import (
	"context"
	"log/slog"

	"Gin_postgres_redis_lendshare/models"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, n *models.Notification) error
}

// LogDispatcher 只打日志，没有配置 RABBIT_URL 时使用
type LogDispatcher struct {
	Log *slog.Logger
}

func NewLogDispatcher(l *slog.Logger) *LogDispatcher {
	if l == nil {
		l = slog.Default()
	}
	return &LogDispatcher{Log: l}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, n *models.Notification) error {
	d.Log.InfoContext(ctx, "notification",
		"id", n.ID,
		"user_id", n.UserID,
		"type", n.Type,
		"title", n.Title,
	)
	return nil
}

// Nop drops everything.
type Nop struct{}

func (Nop) Dispatch(context.Context, *models.Notification) error { return nil }
