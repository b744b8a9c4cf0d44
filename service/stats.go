package service

import (
	"context"

	"Gin_postgres_redis_lendshare/db"
)

type Stats struct {
	repo *db.Repo
}

type UserStats struct {
	ItemsLent             int64  `json:"items_lent"`
	ItemsBorrowed         int64  `json:"items_borrowed"`
	ActiveLoans           int64  `json:"active_loans"`
	AverageLenderRating   string `json:"average_lender_rating"`
	AverageBorrowerRating string `json:"average_borrower_rating"`
}

// For 汇总借出/借入次数和进行中的借用；评分直接读账本
func (s *Stats) For(ctx context.Context, userID string) (*UserStats, error) {
	counts, err := s.repo.UserLoanCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	lender, _, err := s.repo.LenderRatingAvg(ctx, userID)
	if err != nil {
		return nil, err
	}
	borrower, _, err := s.repo.BorrowerRatingAvg(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		ItemsLent:             counts.ItemsLent,
		ItemsBorrowed:         counts.ItemsBorrowed,
		ActiveLoans:           counts.ActiveLoans,
		AverageLenderRating:   formatRating(lender),
		AverageBorrowerRating: formatRating(borrower),
	}, nil
}
