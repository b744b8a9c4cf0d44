package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"Gin_postgres_redis_lendshare/auth"
	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
)

// fakeClock 每次读取前进一秒，保证 created_at 有先后
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *fakeClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []*models.Notification
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n *models.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return d.err
}

type testEnv struct {
	ctx   context.Context
	repo  *db.Repo
	core  *Core
	clock *fakeClock
	out   *recordingDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "lend.db")))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	out := &recordingDispatcher{}
	repo := db.NewRepo(gdb)
	core := New(repo, Options{
		Dispatcher:   out,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:          clock.Now,
		Signer:       auth.NewSigner("test-secret", time.Hour),
		IsAdminEmail: func(e string) bool { return e == "root@example.com" },
	})
	return &testEnv{ctx: context.Background(), repo: repo, core: core, clock: clock, out: out}
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:          uuid.NewString(),
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
		IsActive:    true,
	}
	if err := e.repo.CreateUser(e.ctx, u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func (e *testEnv) item(t *testing.T, owner *models.User, title string) *models.Item {
	t.Helper()
	it, err := e.core.Catalog.CreateItem(e.ctx, owner.ID, ItemInput{Title: title})
	if err != nil {
		t.Fatalf("create item %s: %v", title, err)
	}
	return it
}

func (e *testEnv) request(t *testing.T, borrower *models.User, it *models.Item) *models.BorrowRequest {
	t.Helper()
	req, err := e.core.Borrow.CreateRequest(e.ctx, borrower.ID, CreateRequestInput{ItemID: it.ID})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

// loan 走完 request -> approve，返回生成的借用记录
func (e *testEnv) loan(t *testing.T, owner, borrower *models.User, it *models.Item) *models.BorrowRecord {
	t.Helper()
	req := e.request(t, borrower, it)
	out, err := e.core.Borrow.UpdateRequestStatus(e.ctx, owner.ID, req.ID, models.RequestApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if out.Record == nil {
		t.Fatal("approved request has no borrow record")
	}
	return out.Record
}

func (e *testEnv) notifications(t *testing.T, userID, typ string) []models.Notification {
	t.Helper()
	page, err := e.core.Notifications.List(e.ctx, userID, "all", 1, 100)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	var out []models.Notification
	for _, n := range page.Items {
		if typ == "" || n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func (e *testEnv) itemStatus(t *testing.T, id string) string {
	t.Helper()
	it, err := e.repo.FindItemByID(e.ctx, id)
	if err != nil {
		t.Fatalf("find item: %v", err)
	}
	return it.Status
}

func wantErr(t *testing.T, err, sentinel error) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want %v", err, sentinel)
	}
}
