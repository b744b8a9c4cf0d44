package app

import (
	"context"
	"log/slog"

	"Gin_postgres_redis_lendshare/config"
	"Gin_postgres_redis_lendshare/db"
)

// BootstrapAdmins promotes every registered account listed in ADMIN_EMAILS.
func BootstrapAdmins(ctx context.Context, cfg config.Config, repo *db.Repo) {
	if len(cfg.AdminEmails) == 0 {
		n, _ := repo.CountAdmins(ctx)
		if n == 0 {
			slog.Warn("no admin configured; set ADMIN_EMAILS to manage categories")
		}
		return
	}
	n, err := repo.PromoteAdminsByEmail(ctx, cfg.AdminEmails)
	if err != nil {
		slog.Error("bootstrap admins", "err", err)
		return
	}
	if n > 0 {
		slog.Info("bootstrap admins promoted", "count", n)
	}
}
