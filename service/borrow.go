package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/models"

	"github.com/google/uuid"
)

// Lifecycle drives BorrowRequest and BorrowRecord through their states.
// Each transition reads the persisted status under a row lock, applies the
// change in one transaction, and emits notifications only after commit.
type Lifecycle struct {
	repo         *db.Repo
	notes        *Notifications
	now          func() time.Time
	loanDuration time.Duration
}

// Me 在 borrower/owner 过滤里代表当前用户
const Me = "me"

type CreateRequestInput struct {
	ItemID    string
	StartDate *time.Time
	EndDate   *time.Time
	Message   string
}

func (l *Lifecycle) CreateRequest(ctx context.Context, borrowerID string, in CreateRequestInput) (req *models.BorrowRequest, err error) {
	ctx, span := startSpan(ctx, "borrow.CreateRequest")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(in.ItemID) == "" {
		return nil, validationf("item is required")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, validationf("end_date must not be before start_date")
	}

	var item *models.Item
	var borrower *models.User
	err = l.repo.Tx(ctx, func(tx *db.Repo) error {
		it, err := tx.LockItem(ctx, in.ItemID)
		if err != nil {
			if db.IsNotFound(err) {
				return validationf("item does not exist")
			}
			return err
		}
		if it.OwnerID == borrowerID {
			return validationf("you cannot borrow your own item")
		}
		if it.Status == models.ItemUnderReview {
			return validationf("item is under review and cannot be requested")
		}
		u, err := tx.FindUserByID(ctx, borrowerID)
		if err != nil {
			return notFoundOr(err, "user")
		}

		req = &models.BorrowRequest{
			ID:         uuid.NewString(),
			ItemID:     it.ID,
			BorrowerID: borrowerID,
			OwnerID:    it.OwnerID,
			Status:     models.RequestPending,
			Message:    strings.TrimSpace(in.Message),
			StartDate:  utcPtr(in.StartDate),
			EndDate:    utcPtr(in.EndDate),
		}
		if err := tx.CreateBorrowRequest(ctx, req); err != nil {
			return err
		}
		if it.Status == models.ItemAvailable {
			if err := tx.SetItemStatus(ctx, it.ID, models.ItemRequested); err != nil {
				return err
			}
			it.Status = models.ItemRequested
		}
		item, borrower = it, u
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.notes.Emit(ctx, models.NewRequestNotification(item.OwnerID, models.NotifyRequest,
		"New borrow request",
		fmt.Sprintf("%s wants to borrow %q", nameOf(borrower), item.Title),
		requestPayload(req, item, borrower)))

	req.Item = item
	return req, nil
}

// UpdateRequestStatus 只有物主能处理请求。新旧状态相同直接返回，不再发通知
func (l *Lifecycle) UpdateRequestStatus(ctx context.Context, actorID, requestID, status string) (out *models.BorrowRequest, err error) {
	ctx, span := startSpan(ctx, "borrow.UpdateRequestStatus")
	defer func() { endSpan(span, err) }()

	var (
		changed bool
		req     *models.BorrowRequest
		rec     *models.BorrowRecord
	)
	err = l.repo.Tx(ctx, func(tx *db.Repo) error {
		r, err := tx.LockBorrowRequest(ctx, requestID)
		if err != nil {
			return notFoundOr(err, "borrow request")
		}
		if !visibleTo(actorID, r.BorrowerID, r.OwnerID) {
			return notFoundf("borrow request not found")
		}
		if actorID != r.OwnerID {
			return permissionf("only the item owner can change this request")
		}
		if !models.ValidRequestStatus(status) {
			return validationf("invalid status %q", status)
		}
		req = r
		if r.Status == status {
			return nil
		}
		if r.Status != models.RequestPending {
			return validationf("request is already %s", r.Status)
		}

		switch status {
		case models.RequestApproved:
			rec, err = l.approve(ctx, tx, r)
			if err != nil {
				return err
			}
		case models.RequestRejected:
			if err := l.releaseItem(ctx, tx, r); err != nil {
				return err
			}
		default:
			return validationf("owner can only approve or reject a pending request")
		}
		if err := tx.SetBorrowRequestStatus(ctx, r.ID, status); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	out, err = l.repo.FindBorrowRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if changed {
		l.notifyDecision(ctx, out, rec)
	}
	return out, nil
}

func (l *Lifecycle) approve(ctx context.Context, tx *db.Repo, r *models.BorrowRequest) (*models.BorrowRecord, error) {
	it, err := tx.LockItem(ctx, r.ItemID)
	if err != nil {
		return nil, err
	}
	if it.Status == models.ItemUnderReview {
		return nil, validationf("item is under review and cannot be lent")
	}
	open, err := tx.HasOpenRecordForItem(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, validationf("item is currently on loan")
	}

	start := l.now()
	if r.StartDate != nil {
		start = r.StartDate.UTC()
	}
	due := start.Add(l.loanDuration)
	if r.EndDate != nil {
		due = r.EndDate.UTC()
	}
	if due.Before(start) {
		return nil, validationf("due date must not be before start date")
	}

	rec := &models.BorrowRecord{
		ID:         uuid.NewString(),
		RequestID:  r.ID,
		ItemID:     r.ItemID,
		BorrowerID: r.BorrowerID,
		OwnerID:    r.OwnerID,
		StartDate:  start,
		DueDate:    due,
		Status:     models.RecordBorrowed,
	}
	if err := tx.CreateBorrowRecord(ctx, rec); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, validationf("item is currently on loan")
		}
		return nil, err
	}
	if err := tx.SetItemStatus(ctx, it.ID, models.ItemBorrowed); err != nil {
		return nil, err
	}
	return rec, nil
}

// releaseItem: requested 状态的物品在没有别的待处理请求时回到 available
func (l *Lifecycle) releaseItem(ctx context.Context, tx *db.Repo, r *models.BorrowRequest) error {
	it, err := tx.LockItem(ctx, r.ItemID)
	if err != nil {
		return err
	}
	if it.Status != models.ItemRequested {
		return nil
	}
	n, err := tx.CountPendingRequests(ctx, it.ID, r.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return tx.SetItemStatus(ctx, it.ID, models.ItemAvailable)
}

// restockItem 归还后物品回到可借；还有待处理请求时回到 requested
func (l *Lifecycle) restockItem(ctx context.Context, tx *db.Repo, rec *models.BorrowRecord) error {
	it, err := tx.LockItem(ctx, rec.ItemID)
	if err != nil {
		return err
	}
	if it.Status != models.ItemBorrowed {
		return nil
	}
	n, err := tx.CountPendingRequests(ctx, it.ID, rec.RequestID)
	if err != nil {
		return err
	}
	next := models.ItemAvailable
	if n > 0 {
		next = models.ItemRequested
	}
	return tx.SetItemStatus(ctx, it.ID, next)
}

func (l *Lifecycle) notifyDecision(ctx context.Context, req *models.BorrowRequest, rec *models.BorrowRecord) {
	owner, _ := l.repo.FindUserByID(ctx, req.OwnerID)
	p := requestPayload(req, req.Item, owner)
	title := itemTitle(req.Item)

	switch req.Status {
	case models.RequestApproved:
		msg := fmt.Sprintf("Your request to borrow %q was approved", title)
		if rec != nil {
			msg += fmt.Sprintf("; due %s", rec.DueDate.Format("2006-01-02 15:04"))
		}
		l.notes.Emit(ctx, models.NewRequestNotification(req.BorrowerID, models.NotifyApproved,
			"Borrow request approved", msg, p))
	case models.RequestRejected:
		l.notes.Emit(ctx, models.NewRequestNotification(req.BorrowerID, models.NotifyRejected,
			"Borrow request rejected",
			fmt.Sprintf("Your request to borrow %q was rejected", title), p))
	}
}

// CancelRequest 由借用方撤回自己的待处理请求；重复撤回无副作用
func (l *Lifecycle) CancelRequest(ctx context.Context, actorID, requestID string) (out *models.BorrowRequest, err error) {
	ctx, span := startSpan(ctx, "borrow.CancelRequest")
	defer func() { endSpan(span, err) }()

	err = l.repo.Tx(ctx, func(tx *db.Repo) error {
		r, err := tx.LockBorrowRequest(ctx, requestID)
		if err != nil {
			return notFoundOr(err, "borrow request")
		}
		if !visibleTo(actorID, r.BorrowerID, r.OwnerID) {
			return notFoundf("borrow request not found")
		}
		if actorID != r.BorrowerID {
			return permissionf("only the borrower can cancel this request")
		}
		switch r.Status {
		case models.RequestCancelled:
			return nil
		case models.RequestPending:
		default:
			return validationf("request is already %s", r.Status)
		}
		if err := l.releaseItem(ctx, tx, r); err != nil {
			return err
		}
		return tx.SetBorrowRequestStatus(ctx, r.ID, models.RequestCancelled)
	})
	if err != nil {
		return nil, err
	}
	return l.repo.FindBorrowRequest(ctx, requestID)
}

func (l *Lifecycle) GetRequest(ctx context.Context, actorID, id string) (*models.BorrowRequest, error) {
	r, err := l.repo.FindBorrowRequest(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "borrow request")
	}
	if !visibleTo(actorID, r.BorrowerID, r.OwnerID) {
		return nil, notFoundf("borrow request not found")
	}
	return r, nil
}

// BorrowFilter narrows a listing. Borrower and Owner accept "me" or a user id;
// the result always stays inside the caller's own visibility set.
type BorrowFilter struct {
	Borrower string
	Owner    string
	ItemID   string
	Status   string
	Page     int
	Size     int
}

func (f BorrowFilter) query(actorID string) db.BorrowQuery {
	return db.BorrowQuery{
		ViewerID:   actorID,
		BorrowerID: resolveMe(f.Borrower, actorID),
		OwnerID:    resolveMe(f.Owner, actorID),
		ItemID:     f.ItemID,
		Status:     f.Status,
		Page:       f.Page,
		Size:       f.Size,
	}
}

func (l *Lifecycle) ListRequests(ctx context.Context, actorID string, f BorrowFilter) (*db.PagedBorrowRequests, error) {
	if f.Status != "" && !models.ValidRequestStatus(f.Status) {
		return nil, validationf("invalid status %q", f.Status)
	}
	return l.repo.ListBorrowRequests(ctx, f.query(actorID))
}

// UpdateRecordStatus: 双方都能标记 returned，late/overdue 只有物主能设。
// returned 是终态；同状态重复提交不产生通知
func (l *Lifecycle) UpdateRecordStatus(ctx context.Context, actorID, recordID, status string) (out *models.BorrowRecord, err error) {
	ctx, span := startSpan(ctx, "borrow.UpdateRecordStatus")
	defer func() { endSpan(span, err) }()

	var changed bool
	err = l.repo.Tx(ctx, func(tx *db.Repo) error {
		rec, err := tx.LockBorrowRecord(ctx, recordID)
		if err != nil {
			return notFoundOr(err, "borrow record")
		}
		if !visibleTo(actorID, rec.BorrowerID, rec.OwnerID) {
			return notFoundf("borrow record not found")
		}
		if !models.ValidRecordStatus(status) {
			return validationf("invalid status %q", status)
		}
		if rec.Status == status {
			return nil
		}
		if !rec.Open() {
			return validationf("record is already returned")
		}

		fields := map[string]any{"status": status}
		switch status {
		case models.RecordBorrowed:
			return validationf("record cannot go back to borrowed")
		case models.RecordLate, models.RecordOverdue:
			if actorID != rec.OwnerID {
				return permissionf("only the item owner can mark a loan %s", status)
			}
		case models.RecordReturned:
			if rec.ReturnDate == nil {
				fields["return_date"] = l.now()
			}
			if err := l.restockItem(ctx, tx, rec); err != nil {
				return err
			}
		}
		if err := tx.UpdateBorrowRecord(ctx, rec.ID, fields); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	out, err = l.repo.FindBorrowRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if changed {
		switch out.Status {
		case models.RecordReturned:
			l.notifyReturned(ctx, out)
		case models.RecordOverdue:
			l.notes.Emit(ctx, overdueNotification(out))
		}
	}
	return out, nil
}

func (l *Lifecycle) notifyReturned(ctx context.Context, rec *models.BorrowRecord) {
	title := recordItemTitle(rec)
	who := ""
	if rec.Request != nil {
		who = nameOf(rec.Request.Borrower)
	}
	msg := fmt.Sprintf("%q has been returned", title)
	if who != "" {
		msg = fmt.Sprintf("%s returned %q", who, title)
	}
	l.notes.Emit(ctx, models.NewLoanNotification(rec.OwnerID, models.NotifyReturned,
		"Item returned", msg, loanPayload(rec)))
}

func (l *Lifecycle) GetRecord(ctx context.Context, actorID, id string) (*models.BorrowRecord, error) {
	rec, err := l.repo.FindBorrowRecord(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "borrow record")
	}
	if !visibleTo(actorID, rec.BorrowerID, rec.OwnerID) {
		return nil, notFoundf("borrow record not found")
	}
	return rec, nil
}

func (l *Lifecycle) ListRecords(ctx context.Context, actorID string, f BorrowFilter) (*db.PagedBorrowRecords, error) {
	if f.Status != "" && !models.ValidRecordStatus(f.Status) {
		return nil, validationf("invalid status %q", f.Status)
	}
	return l.repo.ListBorrowRecords(ctx, f.query(actorID))
}

// Damage reports

func (l *Lifecycle) ReportDamage(ctx context.Context, actorID, recordID, description string) (*models.DamageReport, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, validationf("description is required")
	}
	if _, err := l.GetRecord(ctx, actorID, recordID); err != nil {
		return nil, err
	}
	d := &models.DamageReport{
		ID:             uuid.NewString(),
		BorrowRecordID: recordID,
		ReporterID:     actorID,
		Description:    description,
		Status:         models.DamageOpen,
		CreatedAt:      l.now(),
	}
	if err := l.repo.CreateDamageReport(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (l *Lifecycle) ListDamageReports(ctx context.Context, actorID, recordID string) ([]models.DamageReport, error) {
	if _, err := l.GetRecord(ctx, actorID, recordID); err != nil {
		return nil, err
	}
	return l.repo.ListDamageReports(ctx, recordID)
}

func (l *Lifecycle) ResolveDamageReport(ctx context.Context, actorID, reportID string) (*models.DamageReport, error) {
	d, err := l.repo.FindDamageReport(ctx, reportID)
	if err != nil {
		return nil, notFoundOr(err, "damage report")
	}
	rec, err := l.repo.FindBorrowRecord(ctx, d.BorrowRecordID)
	if err != nil {
		return nil, notFoundOr(err, "borrow record")
	}
	if !visibleTo(actorID, rec.BorrowerID, rec.OwnerID) {
		return nil, notFoundf("damage report not found")
	}
	if actorID != rec.OwnerID {
		return nil, permissionf("only the item owner can resolve a damage report")
	}
	if d.Status == models.DamageResolved {
		return d, nil
	}
	if err := l.repo.ResolveDamageReport(ctx, reportID, l.now()); err != nil {
		return nil, err
	}
	return l.repo.FindDamageReport(ctx, reportID)
}

// helpers

func visibleTo(actorID, borrowerID, ownerID string) bool {
	return actorID != "" && (actorID == borrowerID || actorID == ownerID)
}

func resolveMe(v, actorID string) string {
	if strings.EqualFold(v, Me) {
		return actorID
	}
	return v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func itemTitle(it *models.Item) string {
	if it == nil {
		return ""
	}
	return it.Title
}

func recordItemTitle(rec *models.BorrowRecord) string {
	if rec.Request == nil {
		return ""
	}
	return itemTitle(rec.Request.Item)
}

func requestPayload(req *models.BorrowRequest, it *models.Item, counterparty *models.User) models.RequestPayload {
	p := models.RequestPayload{
		RequestID: req.ID,
		ItemID:    req.ItemID,
		ItemTitle: itemTitle(it),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if counterparty != nil {
		p.CounterpartyID = counterparty.ID
		p.CounterpartyName = nameOf(counterparty)
	}
	return p
}

func loanPayload(rec *models.BorrowRecord) models.LoanPayload {
	return models.LoanPayload{
		RecordID:   rec.ID,
		RequestID:  rec.RequestID,
		ItemID:     rec.ItemID,
		ItemTitle:  recordItemTitle(rec),
		DueDate:    rec.DueDate,
		ReturnDate: rec.ReturnDate,
	}
}

func overdueNotification(rec *models.BorrowRecord) *models.Notification {
	return models.NewLoanNotification(rec.BorrowerID, models.NotifyOverdue,
		"Loan overdue",
		fmt.Sprintf("%q was due %s", recordItemTitle(rec), rec.DueDate.Format("2006-01-02 15:04")),
		loanPayload(rec))
}
