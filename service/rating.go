package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/models"

	"github.com/google/uuid"
)

// Ratings is the append-only rating ledger. The ledger is the source of
// truth; users.lender_rating / borrower_rating are rewritten from it in the
// same transaction as every insert.
type Ratings struct {
	repo  *db.Repo
	notes *Notifications
}

type SubmitRatingInput struct {
	ToUserID string
	ItemID   string
	Stars    int
	Message  string
}

func (r *Ratings) Submit(ctx context.Context, fromUserID string, in SubmitRatingInput) (rt *models.Rating, err error) {
	ctx, span := startSpan(ctx, "rating.Submit")
	defer func() { endSpan(span, err) }()

	if in.Stars < models.MinStars || in.Stars > models.MaxStars {
		return nil, validationf("stars must be between %d and %d", models.MinStars, models.MaxStars)
	}
	if strings.TrimSpace(in.ToUserID) == "" || strings.TrimSpace(in.ItemID) == "" {
		return nil, validationf("to_user and item are required")
	}

	var (
		item *models.Item
		from *models.User
	)
	err = r.repo.Tx(ctx, func(tx *db.Repo) error {
		it, err := tx.FindItemByID(ctx, in.ItemID)
		if err != nil {
			if db.IsNotFound(err) {
				return validationf("item does not exist")
			}
			return err
		}
		if _, err := tx.FindUserByID(ctx, in.ToUserID); err != nil {
			if db.IsNotFound(err) {
				return validationf("user does not exist")
			}
			return err
		}
		u, err := tx.FindUserByID(ctx, fromUserID)
		if err != nil {
			return notFoundOr(err, "user")
		}

		rt = &models.Rating{
			ID:         uuid.NewString(),
			FromUserID: fromUserID,
			ToUserID:   in.ToUserID,
			ItemID:     in.ItemID,
			Stars:      in.Stars,
			Message:    strings.TrimSpace(in.Message),
		}
		if err := tx.CreateRating(ctx, rt); err != nil {
			if db.IsDuplicateKey(err) {
				return validationf("you have already rated this user for this item")
			}
			return err
		}
		if err := refreshUserRatings(ctx, tx, in.ToUserID); err != nil {
			return err
		}
		item, from = it, u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.ToUserID != fromUserID {
		asLender := item.OwnerID == in.ToUserID
		role := "borrower"
		if asLender {
			role = "lender"
		}
		r.notes.Emit(ctx, models.NewRatingNotification(in.ToUserID, "New rating received",
			fmt.Sprintf("%s rated you %d/5 as %s of %q", nameOf(from), rt.Stars, role, item.Title),
			models.RatingPayload{
				RatingID:     rt.ID,
				ItemID:       item.ID,
				ItemTitle:    item.Title,
				FromUserID:   fromUserID,
				FromUserName: nameOf(from),
				Stars:        rt.Stars,
				AsLender:     asLender,
			}))
	}
	return rt, nil
}

// refreshUserRatings 从账本重算并写回用户表的缓存列
func refreshUserRatings(ctx context.Context, tx *db.Repo, userID string) error {
	lender, _, err := tx.LenderRatingAvg(ctx, userID)
	if err != nil {
		return err
	}
	borrower, _, err := tx.BorrowerRatingAvg(ctx, userID)
	if err != nil {
		return err
	}
	return tx.SetUserRatings(ctx, userID, round2(lender), round2(borrower))
}

// LenderRatingOf is the average of stars the user received as owner of the
// rated item, "0.00" when there are none.
func (r *Ratings) LenderRatingOf(ctx context.Context, userID string) (string, error) {
	avg, _, err := r.repo.LenderRatingAvg(ctx, userID)
	if err != nil {
		return "", err
	}
	return formatRating(avg), nil
}

func (r *Ratings) BorrowerRatingOf(ctx context.Context, userID string) (string, error) {
	avg, _, err := r.repo.BorrowerRatingAvg(ctx, userID)
	if err != nil {
		return "", err
	}
	return formatRating(avg), nil
}

func (r *Ratings) ListForItem(ctx context.Context, itemID string) ([]models.Rating, error) {
	if _, err := r.repo.FindItemByID(ctx, itemID); err != nil {
		return nil, notFoundOr(err, "item")
	}
	return r.repo.ListRatingsForItem(ctx, itemID)
}

// ListMine returns ratings the user gave or received.
func (r *Ratings) ListMine(ctx context.Context, userID string) ([]models.Rating, error) {
	return r.repo.ListRatingsInvolving(ctx, userID)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func formatRating(v float64) string {
	v = math.Max(0, math.Min(float64(models.MaxStars), v))
	return fmt.Sprintf("%.2f", v)
}
