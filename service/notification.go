package service

import (
	"context"
	"log/slog"
	"time"

	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/models"
	"Gin_postgres_redis_lendshare/notify"

	"github.com/google/uuid"
)

type Notifications struct {
	repo     *db.Repo
	dispatch notify.Dispatcher
	log      *slog.Logger
	now      func() time.Time
}

// Emit 写入通知并交给投递通道。失败只记日志：触发它的状态变更已经提交
func (n *Notifications) Emit(ctx context.Context, note *models.Notification) {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = n.now()
	}
	if err := n.repo.CreateNotification(ctx, note); err != nil {
		n.log.WarnContext(ctx, "create notification failed",
			"type", note.Type, "user_id", note.UserID, "err", err)
		return
	}
	if err := n.dispatch.Dispatch(ctx, note); err != nil {
		n.log.WarnContext(ctx, "dispatch notification failed",
			"id", note.ID, "type", note.Type, "err", err)
	}
}

type NotificationPage struct {
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
	UnreadCount int64                 `json:"unread_count"`
	Items       []models.Notification `json:"items"`
}

func (n *Notifications) List(ctx context.Context, userID, filter string, page, size int) (*NotificationPage, error) {
	switch filter {
	case "":
		filter = db.FilterAll
	case db.FilterAll, db.FilterRead, db.FilterUnread:
	default:
		return nil, validationf("filter must be one of all, read, unread")
	}
	p, err := n.repo.ListNotifications(ctx, userID, filter, page, size)
	if err != nil {
		return nil, err
	}
	unread, err := n.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Total:       p.Total,
		Page:        p.Page,
		Size:        p.Size,
		UnreadCount: unread,
		Items:       p.Items,
	}, nil
}

func (n *Notifications) MarkRead(ctx context.Context, actorID, id string) (*models.Notification, error) {
	note, err := n.repo.FindNotification(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "notification")
	}
	if note.UserID != actorID {
		return nil, permissionf("notification belongs to another user")
	}
	if note.Read {
		return note, nil
	}
	if err := n.repo.MarkNotificationRead(ctx, id, n.now()); err != nil {
		return nil, err
	}
	return n.repo.FindNotification(ctx, id)
}

func (n *Notifications) MarkAllRead(ctx context.Context, actorID string) (int64, error) {
	return n.repo.MarkAllNotificationsRead(ctx, actorID, n.now())
}

func (n *Notifications) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return n.repo.CountUnread(ctx, userID)
}
