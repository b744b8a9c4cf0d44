package service

import (
	"errors"
	"testing"

	"Gin_postgres_redis_lendshare/models"
)

func seedNotifications(t *testing.T, env *testEnv, userID string, n int) []*models.Notification {
	t.Helper()
	out := make([]*models.Notification, 0, n)
	for i := 0; i < n; i++ {
		note := models.NewRatingNotification(userID, "New rating received", "", models.RatingPayload{Stars: 3})
		env.core.Notifications.Emit(env.ctx, note)
		out = append(out, note)
	}
	return out
}

func TestNotificationListUnreadCount(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "olivia")
	other := env.user(t, "ben")
	notes := seedNotifications(t, env, u.ID, 5)
	seedNotifications(t, env, other.ID, 2)

	if _, err := env.core.Notifications.MarkRead(env.ctx, u.ID, notes[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	page, err := env.core.Notifications.List(env.ctx, u.ID, "all", 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 || page.Total != 5 {
		t.Fatalf("page = %d items / total %d, want 2 / 5", len(page.Items), page.Total)
	}
	if page.UnreadCount != 4 {
		t.Fatalf("unread_count = %d, want 4 regardless of page size", page.UnreadCount)
	}
	if page.Items[0].ID != notes[4].ID {
		t.Fatalf("first item = %s, want newest %s", page.Items[0].ID, notes[4].ID)
	}

	tests := []struct {
		filter string
		total  int64
	}{
		{"", 5},
		{"all", 5},
		{"read", 1},
		{"unread", 4},
	}
	for _, tt := range tests {
		p, err := env.core.Notifications.List(env.ctx, u.ID, tt.filter, 1, 20)
		if err != nil {
			t.Fatalf("list %q: %v", tt.filter, err)
		}
		if p.Total != tt.total {
			t.Fatalf("filter %q total = %d, want %d", tt.filter, p.Total, tt.total)
		}
		for _, n := range p.Items {
			if n.UserID != u.ID {
				t.Fatalf("filter %q leaked notification of %s", tt.filter, n.UserID)
			}
		}
	}

	_, err = env.core.Notifications.List(env.ctx, u.ID, "archived", 1, 20)
	wantErr(t, err, ErrValidation)
}

func TestNotificationMarkRead(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "olivia")
	other := env.user(t, "ben")
	note := seedNotifications(t, env, u.ID, 1)[0]

	_, err := env.core.Notifications.MarkRead(env.ctx, other.ID, note.ID)
	wantErr(t, err, ErrPermissionDenied)

	_, err = env.core.Notifications.MarkRead(env.ctx, u.ID, "00000000-0000-0000-0000-000000000000")
	wantErr(t, err, ErrNotFound)

	first, err := env.core.Notifications.MarkRead(env.ctx, u.ID, note.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !first.Read || first.ReadAt == nil {
		t.Fatalf("notification = %+v, want read", first)
	}
	second, err := env.core.Notifications.MarkRead(env.ctx, u.ID, note.ID)
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if !second.Read || !second.ReadAt.Equal(*first.ReadAt) {
		t.Fatalf("second mark read changed read_at: %v -> %v", first.ReadAt, second.ReadAt)
	}
}

func TestNotificationMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "olivia")
	other := env.user(t, "ben")
	notes := seedNotifications(t, env, u.ID, 3)
	seedNotifications(t, env, other.ID, 2)

	if _, err := env.core.Notifications.MarkRead(env.ctx, u.ID, notes[1].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	n, err := env.core.Notifications.MarkAllRead(env.ctx, u.ID)
	if err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated_count = %d, want 2", n)
	}
	if n, _ := env.core.Notifications.MarkAllRead(env.ctx, u.ID); n != 0 {
		t.Fatalf("second mark all = %d, want 0", n)
	}
	if c, _ := env.core.Notifications.UnreadCount(env.ctx, other.ID); c != 2 {
		t.Fatalf("other user's unread = %d, want 2", c)
	}
}

func TestEmitSurvivesDispatchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.out.err = errors.New("broker down")
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Drill")

	req := env.request(t, borrower, it)
	if req.Status != models.RequestPending {
		t.Fatalf("status = %s", req.Status)
	}
	if n := len(env.notifications(t, owner.ID, models.NotifyRequest)); n != 1 {
		t.Fatalf("stored notifications = %d, want 1 even when delivery fails", n)
	}
}
