package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/models"
)

// Sweeper 是按时间推进借用状态的唯一入口，由 lendctl sweep 定时调用
type Sweeper struct {
	repo   *db.Repo
	notes  *Notifications
	log    *slog.Logger
	window time.Duration
}

type SweepResult struct {
	Overdue int `json:"overdue"`
	DueSoon int `json:"due_soon"`
}

// Sweep marks borrowed loans past their due date overdue and sends one
// due_soon reminder per loan that comes due within the window.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (res SweepResult, err error) {
	ctx, span := startSpan(ctx, "sweep.Sweep")
	defer func() { endSpan(span, err) }()
	now = now.UTC()

	late, err := s.repo.ListRecordsDueBetween(ctx, models.RecordBorrowed, time.Time{}, now)
	if err != nil {
		return res, fmt.Errorf("list overdue: %w", err)
	}
	for i := range late {
		moved, err := s.markOverdue(ctx, late[i].ID)
		if err != nil {
			s.log.WarnContext(ctx, "sweep overdue", "record_id", late[i].ID, "err", err)
			continue
		}
		if !moved {
			continue
		}
		res.Overdue++
		late[i].Status = models.RecordOverdue
		s.notes.Emit(ctx, overdueNotification(&late[i]))
	}

	soon, err := s.repo.ListRecordsDueBetween(ctx, models.RecordBorrowed, now, now.Add(s.window))
	if err != nil {
		return res, fmt.Errorf("list due soon: %w", err)
	}
	for i := range soon {
		rec := &soon[i]
		sent, err := s.repo.HasNotification(ctx, rec.BorrowerID, models.NotifyDueSoon, rec.RequestID)
		if err != nil {
			s.log.WarnContext(ctx, "sweep due soon", "record_id", rec.ID, "err", err)
			continue
		}
		if sent {
			continue
		}
		s.notes.Emit(ctx, models.NewLoanNotification(rec.BorrowerID, models.NotifyDueSoon,
			"Loan due soon",
			fmt.Sprintf("%q is due %s", recordItemTitle(rec), rec.DueDate.Format("2006-01-02 15:04")),
			loanPayload(rec)))
		res.DueSoon++
	}

	s.log.InfoContext(ctx, "sweep done", "overdue", res.Overdue, "due_soon", res.DueSoon)
	return res, nil
}

// markOverdue 在行锁下复查旧状态，只有仍是 borrowed 才改
func (s *Sweeper) markOverdue(ctx context.Context, id string) (bool, error) {
	moved := false
	err := s.repo.Tx(ctx, func(tx *db.Repo) error {
		rec, err := tx.LockBorrowRecord(ctx, id)
		if err != nil {
			return err
		}
		if rec.Status != models.RecordBorrowed {
			return nil
		}
		if err := tx.UpdateBorrowRecord(ctx, id, map[string]any{"status": models.RecordOverdue}); err != nil {
			return err
		}
		moved = true
		return nil
	})
	return moved, err
}
