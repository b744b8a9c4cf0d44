package db

import (
	"context"

	"Gin_postgres_redis_lendshare/models"

	"gorm.io/gorm"
)

type LoanCounts struct {
	ItemsLent     int64
	ItemsBorrowed int64
	ActiveLoans   int64
}

// UserLoanCounts counts borrow records from both sides of the loan.
func (r *Repo) UserLoanCounts(ctx context.Context, userID string) (LoanCounts, error) {
	var out LoanCounts
	base := r.DB.WithContext(ctx).Model(&models.BorrowRecord{})

	if err := base.Session(&gorm.Session{}).Where("owner_id = ?", userID).Count(&out.ItemsLent).Error; err != nil {
		return out, err
	}
	if err := base.Session(&gorm.Session{}).Where("borrower_id = ?", userID).Count(&out.ItemsBorrowed).Error; err != nil {
		return out, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("(owner_id = ? OR borrower_id = ?) AND status <> ?", userID, userID, models.RecordReturned).
		Count(&out.ActiveLoans).Error; err != nil {
		return out, err
	}
	return out, nil
}
