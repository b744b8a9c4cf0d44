package db

import (
	"context"
	"time"

	"Gin_postgres_redis_lendshare/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Borrow requests

func (r *Repo) CreateBorrowRequest(ctx context.Context, req *models.BorrowRequest) error {
	return mapErr(r.DB.WithContext(ctx).Omit(clause.Associations).Create(req).Error)
}

func (r *Repo) FindBorrowRequest(ctx context.Context, id string) (*models.BorrowRequest, error) {
	var req models.BorrowRequest
	if err := r.DB.WithContext(ctx).
		Preload("Item").
		Preload("Borrower").
		Preload("Record").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &req, nil
}

// LockBorrowRequest 读取并锁住请求行（事务内使用），旧状态以此为准
func (r *Repo) LockBorrowRequest(ctx context.Context, id string) (*models.BorrowRequest, error) {
	var req models.BorrowRequest
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &req, nil
}

func (r *Repo) SetBorrowRequestStatus(ctx context.Context, id, status string) error {
	return r.DB.WithContext(ctx).Model(&models.BorrowRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *Repo) CountPendingRequests(ctx context.Context, itemID, excludeID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.BorrowRequest{}).
		Where("item_id = ? AND status = ? AND id <> ?", itemID, models.RequestPending, excludeID).
		Count(&n).Error
	return n, err
}

// BorrowQuery 的 ViewerID 必填：结果永远是 viewer 可见集合的子集
type BorrowQuery struct {
	ViewerID   string
	BorrowerID string
	OwnerID    string
	ItemID     string
	Status     string
	Page       int
	Size       int
}

func (q BorrowQuery) apply(tx *gorm.DB) *gorm.DB {
	tx = tx.Where("(borrower_id = ? OR owner_id = ?)", q.ViewerID, q.ViewerID)
	if q.BorrowerID != "" {
		tx = tx.Where("borrower_id = ?", q.BorrowerID)
	}
	if q.OwnerID != "" {
		tx = tx.Where("owner_id = ?", q.OwnerID)
	}
	if q.ItemID != "" {
		tx = tx.Where("item_id = ?", q.ItemID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	return tx
}

type PagedBorrowRequests struct {
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
	Items []models.BorrowRequest `json:"items"`
}

func (r *Repo) ListBorrowRequests(ctx context.Context, q BorrowQuery) (*PagedBorrowRequests, error) {
	q.Page, q.Size = normalizePage(q.Page, q.Size)
	tx := q.apply(r.DB.WithContext(ctx).Model(&models.BorrowRequest{}))

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var rows []models.BorrowRequest
	if err := tx.
		Preload("Item").
		Preload("Borrower").
		Order("request_date DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return &PagedBorrowRequests{Total: total, Page: q.Page, Size: q.Size, Items: rows}, nil
}

// Borrow records

func (r *Repo) CreateBorrowRecord(ctx context.Context, rec *models.BorrowRecord) error {
	return mapErr(r.DB.WithContext(ctx).Omit(clause.Associations).Create(rec).Error)
}

func (r *Repo) FindBorrowRecord(ctx context.Context, id string) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	if err := r.DB.WithContext(ctx).
		Preload("Request").
		Preload("Request.Item").
		Preload("Request.Borrower").
		First(&rec, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &rec, nil
}

func (r *Repo) LockBorrowRecord(ctx context.Context, id string) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &rec, nil
}

func (r *Repo) UpdateBorrowRecord(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	return mapErr(r.DB.WithContext(ctx).Model(&models.BorrowRecord{}).
		Where("id = ?", id).
		Updates(fields).Error)
}

func (r *Repo) HasOpenRecordForItem(ctx context.Context, itemID string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.BorrowRecord{}).
		Where("item_id = ? AND status <> ?", itemID, models.RecordReturned).
		Count(&n).Error
	return n > 0, err
}

type PagedBorrowRecords struct {
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Size  int                   `json:"size"`
	Items []models.BorrowRecord `json:"items"`
}

func (r *Repo) ListBorrowRecords(ctx context.Context, q BorrowQuery) (*PagedBorrowRecords, error) {
	q.Page, q.Size = normalizePage(q.Page, q.Size)
	tx := q.apply(r.DB.WithContext(ctx).Model(&models.BorrowRecord{}))

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var rows []models.BorrowRecord
	if err := tx.
		Preload("Request").
		Preload("Request.Item").
		Order("start_date DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return &PagedBorrowRecords{Total: total, Page: q.Page, Size: q.Size, Items: rows}, nil
}

// ListRecordsDueBetween 给 sweep 用：status 且 due_date 落在 [from, to)
func (r *Repo) ListRecordsDueBetween(ctx context.Context, status string, from, to time.Time) ([]models.BorrowRecord, error) {
	var rows []models.BorrowRecord
	tx := r.DB.WithContext(ctx).Where("status = ? AND due_date < ?", status, to)
	if !from.IsZero() {
		tx = tx.Where("due_date >= ?", from)
	}
	err := tx.Preload("Request").Preload("Request.Item").Order("due_date ASC").Find(&rows).Error
	return rows, err
}

// Damage reports

func (r *Repo) CreateDamageReport(ctx context.Context, d *models.DamageReport) error {
	return mapErr(r.DB.WithContext(ctx).Create(d).Error)
}

func (r *Repo) ListDamageReports(ctx context.Context, recordID string) ([]models.DamageReport, error) {
	var ds []models.DamageReport
	err := r.DB.WithContext(ctx).
		Where("borrow_record_id = ?", recordID).
		Order("created_at DESC").
		Find(&ds).Error
	return ds, err
}

func (r *Repo) FindDamageReport(ctx context.Context, id string) (*models.DamageReport, error) {
	var d models.DamageReport
	if err := r.DB.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

// ResolveDamageReport 幂等：已 resolved 时不改 resolved_at
func (r *Repo) ResolveDamageReport(ctx context.Context, id string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.DamageReport{}).
		Where("id = ? AND status = ?", id, models.DamageOpen).
		Updates(map[string]any{"status": models.DamageResolved, "resolved_at": at}).Error
}
