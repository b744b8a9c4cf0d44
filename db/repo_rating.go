package db

import (
	"context"

	"Gin_postgres_redis_lendshare/models"

	"gorm.io/gorm/clause"
)

// CreateRating 依赖 ux_rating_from_to_item 唯一索引挡重复，不做先查后插
func (r *Repo) CreateRating(ctx context.Context, rt *models.Rating) error {
	return mapErr(r.DB.WithContext(ctx).Omit(clause.Associations).Create(rt).Error)
}

func (r *Repo) ListRatingsForItem(ctx context.Context, itemID string) ([]models.Rating, error) {
	var rs []models.Rating
	err := r.DB.WithContext(ctx).
		Preload("FromUser").
		Preload("ToUser").
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Find(&rs).Error
	return rs, err
}

// ListRatingsInvolving returns ratings the user gave or received, newest first.
func (r *Repo) ListRatingsInvolving(ctx context.Context, userID string) ([]models.Rating, error) {
	var rs []models.Rating
	err := r.DB.WithContext(ctx).
		Preload("FromUser").
		Preload("ToUser").
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&rs).Error
	return rs, err
}

type ratingAgg struct {
	Avg   float64
	Count int64
}

// LenderRatingAvg: 作为物主被评的平均星级
func (r *Repo) LenderRatingAvg(ctx context.Context, userID string) (float64, int64, error) {
	return r.ratingAvg(ctx, userID, "i.owner_id = ?")
}

// BorrowerRatingAvg: 作为借用方被评的平均星级
func (r *Repo) BorrowerRatingAvg(ctx context.Context, userID string) (float64, int64, error) {
	return r.ratingAvg(ctx, userID, "i.owner_id <> ?")
}

func (r *Repo) ratingAvg(ctx context.Context, userID, ownerCond string) (float64, int64, error) {
	var agg ratingAgg
	err := r.DB.WithContext(ctx).
		Table(models.RatingTable+" rt").
		Select("COALESCE(AVG(rt.stars), 0) AS avg, COUNT(rt.id) AS count").
		Joins("JOIN "+models.ItemTable+" i ON i.id = rt.item_id").
		Where("rt.to_user_id = ?", userID).
		Where(ownerCond, userID).
		Scan(&agg).Error
	return agg.Avg, agg.Count, err
}
