package db

import (
	"context"
	"time"

	"Gin_postgres_redis_lendshare/models"

	"gorm.io/gorm"
)

// Notification list filters
const (
	FilterAll    = "all"
	FilterRead   = "read"
	FilterUnread = "unread"
)

func (r *Repo) CreateNotification(ctx context.Context, n *models.Notification) error {
	return mapErr(r.DB.WithContext(ctx).Create(n).Error)
}

func (r *Repo) FindNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.DB.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &n, nil
}

type PagedNotifications struct {
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Size  int                   `json:"size"`
	Items []models.Notification `json:"items"`
}

func (r *Repo) ListNotifications(ctx context.Context, userID, filter string, page, size int) (*PagedNotifications, error) {
	page, size = normalizePage(page, size)
	tx := r.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	switch filter {
	case FilterRead:
		tx = tx.Where("read = ?", true)
	case FilterUnread:
		tx = tx.Where("read = ?", false)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var rows []models.Notification
	if err := tx.
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return &PagedNotifications{Total: total, Page: page, Size: size, Items: rows}, nil
}

// CountUnread 与分页无关，统计该用户全部未读
func (r *Repo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkNotificationRead 只做 false -> true；已读时 RowsAffected = 0
func (r *Repo) MarkNotificationRead(ctx context.Context, id string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND read = ?", id, false).
		Updates(map[string]any{"read": true, "read_at": at}).Error
}

func (r *Repo) MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]any{"read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

// HasNotification 用于 sweep 去重（同一借用同类通知只发一次）
func (r *Repo) HasNotification(ctx context.Context, userID, typ, requestID string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND request_id = ?", userID, typ, requestID).
		Count(&n).Error
	return n > 0, err
}
