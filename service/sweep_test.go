package service

import (
	"testing"
	"time"

	"Gin_postgres_redis_lendshare/models"
)

func TestSweepOverdueAndDueSoon(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	b1 := env.user(t, "ben")
	b2 := env.user(t, "cara")

	early := env.loan(t, owner, b1, env.item(t, owner, "Drill"))

	start := env.clock.Peek().Add(30 * time.Hour)
	end := start.Add(72 * time.Hour)
	req, err := env.core.Borrow.CreateRequest(env.ctx, b2.ID, CreateRequestInput{
		ItemID: env.item(t, owner, "Ladder").ID, StartDate: &start, EndDate: &end,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	approved, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, req.ID, models.RequestApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	late := approved.Record

	// early 还剩不到 24h，late 还远
	now := early.DueDate.Add(-2 * time.Hour)
	res, err := env.core.Sweeper.Sweep(env.ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Overdue != 0 || res.DueSoon != 1 {
		t.Fatalf("result = %+v, want 0 overdue / 1 due soon", res)
	}
	if n := len(env.notifications(t, b1.ID, models.NotifyDueSoon)); n != 1 {
		t.Fatalf("due_soon for b1 = %d, want 1", n)
	}

	// 再跑一次不重复提醒
	res, err = env.core.Sweeper.Sweep(env.ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("sweep again: %v", err)
	}
	if res.DueSoon != 0 {
		t.Fatalf("repeat sweep sent %d due_soon, want 0", res.DueSoon)
	}

	res, err = env.core.Sweeper.Sweep(env.ctx, early.DueDate.Add(time.Minute))
	if err != nil {
		t.Fatalf("sweep past due: %v", err)
	}
	if res.Overdue != 1 {
		t.Fatalf("overdue = %d, want 1", res.Overdue)
	}
	rec, err := env.core.Borrow.GetRecord(env.ctx, b1.ID, early.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.Status != models.RecordOverdue {
		t.Fatalf("status = %s, want overdue", rec.Status)
	}
	if n := len(env.notifications(t, b1.ID, models.NotifyOverdue)); n != 1 {
		t.Fatalf("overdue notifications = %d, want 1", n)
	}

	other, err := env.core.Borrow.GetRecord(env.ctx, b2.ID, late.ID)
	if err != nil {
		t.Fatalf("get other: %v", err)
	}
	if other.Status != models.RecordBorrowed {
		t.Fatalf("untouched record status = %s, want borrowed", other.Status)
	}

	res, err = env.core.Sweeper.Sweep(env.ctx, early.DueDate.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("sweep idempotent: %v", err)
	}
	if res.Overdue != 0 {
		t.Fatalf("second overdue sweep moved %d records", res.Overdue)
	}
}

func TestSweepSkipsReturned(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	rec := env.loan(t, owner, borrower, env.item(t, owner, "Drill"))

	if _, err := env.core.Borrow.UpdateRecordStatus(env.ctx, borrower.ID, rec.ID, models.RecordReturned); err != nil {
		t.Fatalf("return: %v", err)
	}
	res, err := env.core.Sweeper.Sweep(env.ctx, rec.DueDate.Add(time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Overdue != 0 || res.DueSoon != 0 {
		t.Fatalf("result = %+v for a returned loan", res)
	}
}
