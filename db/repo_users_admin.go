// db/repo_users_admin.go
package db

import (
	"context"
	"strings"

	"Gin_postgres_redis_lendshare/models"
)

func (r *Repo) SetUserAdmin(ctx context.Context, userID string, isAdmin bool) error {
	return r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_admin", isAdmin).Error
}

// PromoteAdminsByEmail flags every existing user whose email is listed; returns rows touched.
func (r *Repo) PromoteAdminsByEmail(ctx context.Context, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	lower := make([]string, 0, len(emails))
	for _, e := range emails {
		lower = append(lower, strings.ToLower(e))
	}
	res := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("LOWER(email) IN ? AND is_admin = ?", lower, false).
		Update("is_admin", true)
	return res.RowsAffected, res.Error
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("is_admin = ?", true).
		Count(&n).Error
	return n, err
}
