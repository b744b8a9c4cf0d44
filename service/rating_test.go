package service

import (
	"testing"

	"Gin_postgres_redis_lendshare/models"
)

func TestSubmitRatingUniquePerTriple(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Drill")

	in := SubmitRatingInput{ToUserID: owner.ID, ItemID: it.ID, Stars: 4, Message: "smooth"}
	if _, err := env.core.Ratings.Submit(env.ctx, borrower.ID, in); err != nil {
		t.Fatalf("first rating: %v", err)
	}
	in.Stars = 1
	_, err := env.core.Ratings.Submit(env.ctx, borrower.ID, in)
	wantErr(t, err, ErrValidation)

	// 反方向是另一个三元组
	if _, err := env.core.Ratings.Submit(env.ctx, owner.ID, SubmitRatingInput{ToUserID: borrower.ID, ItemID: it.ID, Stars: 5}); err != nil {
		t.Fatalf("reverse rating: %v", err)
	}

	list, err := env.core.Ratings.ListForItem(env.ctx, it.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ratings = %d, want 2", len(list))
	}
	if !list[0].CreatedAt.After(list[1].CreatedAt) && !list[0].CreatedAt.Equal(list[1].CreatedAt) {
		t.Fatalf("ratings not newest first: %v then %v", list[0].CreatedAt, list[1].CreatedAt)
	}
}

func TestSubmitRatingValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Drill")

	tests := []struct {
		name string
		in   SubmitRatingInput
	}{
		{"zero stars", SubmitRatingInput{ToUserID: owner.ID, ItemID: it.ID, Stars: 0}},
		{"six stars", SubmitRatingInput{ToUserID: owner.ID, ItemID: it.ID, Stars: 6}},
		{"no target", SubmitRatingInput{ItemID: it.ID, Stars: 3}},
		{"unknown item", SubmitRatingInput{ToUserID: owner.ID, ItemID: "00000000-0000-0000-0000-000000000000", Stars: 3}},
		{"unknown user", SubmitRatingInput{ToUserID: "00000000-0000-0000-0000-000000000000", ItemID: it.ID, Stars: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.core.Ratings.Submit(env.ctx, borrower.ID, tt.in)
			wantErr(t, err, ErrValidation)
		})
	}
}

func TestRatingAggregatesByRole(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Drill")

	for _, u := range []*models.User{owner, borrower} {
		l, err := env.core.Ratings.LenderRatingOf(env.ctx, u.ID)
		if err != nil {
			t.Fatalf("lender rating: %v", err)
		}
		b, err := env.core.Ratings.BorrowerRatingOf(env.ctx, u.ID)
		if err != nil {
			t.Fatalf("borrower rating: %v", err)
		}
		if l != "0.00" || b != "0.00" {
			t.Fatalf("%s defaults = %s/%s, want 0.00/0.00", u.Username, l, b)
		}
	}

	if _, err := env.core.Ratings.Submit(env.ctx, borrower.ID, SubmitRatingInput{ToUserID: owner.ID, ItemID: it.ID, Stars: 5}); err != nil {
		t.Fatalf("rate owner: %v", err)
	}
	if got, _ := env.core.Ratings.LenderRatingOf(env.ctx, owner.ID); got != "5.00" {
		t.Fatalf("lender rating = %s, want 5.00", got)
	}
	if got, _ := env.core.Ratings.BorrowerRatingOf(env.ctx, owner.ID); got != "0.00" {
		t.Fatalf("borrower rating = %s, want 0.00", got)
	}

	// owner 借别人的东西时被评为借用方
	other := env.user(t, "cara")
	otherItem := env.item(t, other, "Canoe")
	if _, err := env.core.Ratings.Submit(env.ctx, other.ID, SubmitRatingInput{ToUserID: owner.ID, ItemID: otherItem.ID, Stars: 2}); err != nil {
		t.Fatalf("rate owner as borrower: %v", err)
	}
	if _, err := env.core.Ratings.Submit(env.ctx, borrower.ID, SubmitRatingInput{ToUserID: owner.ID, ItemID: otherItem.ID, Stars: 3}); err != nil {
		t.Fatalf("second borrower rating: %v", err)
	}
	if got, _ := env.core.Ratings.BorrowerRatingOf(env.ctx, owner.ID); got != "2.50" {
		t.Fatalf("borrower rating = %s, want 2.50", got)
	}
	if got, _ := env.core.Ratings.LenderRatingOf(env.ctx, owner.ID); got != "5.00" {
		t.Fatalf("lender rating = %s, want 5.00", got)
	}

	// 用户表上的缓存列与账本一致
	u, err := env.repo.FindUserByID(env.ctx, owner.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if u.LenderRating != 5 || u.BorrowerRating != 2.5 {
		t.Fatalf("cached ratings = %v/%v, want 5/2.5", u.LenderRating, u.BorrowerRating)
	}
}

func TestRatingNotification(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Drill")

	if _, err := env.core.Ratings.Submit(env.ctx, borrower.ID, SubmitRatingInput{ToUserID: owner.ID, ItemID: it.ID, Stars: 4}); err != nil {
		t.Fatalf("rate: %v", err)
	}
	notes := env.notifications(t, owner.ID, models.NotifyRating)
	if len(notes) != 1 {
		t.Fatalf("rating notifications = %d, want 1", len(notes))
	}
	p := notes[0].Payload().Rating
	if p == nil || !p.AsLender || p.Stars != 4 || p.FromUserID != borrower.ID {
		t.Fatalf("unexpected payload %+v", p)
	}

	// 给自己打分不发通知
	if _, err := env.core.Ratings.Submit(env.ctx, owner.ID, SubmitRatingInput{ToUserID: owner.ID, ItemID: it.ID, Stars: 5}); err != nil {
		t.Fatalf("self rating: %v", err)
	}
	if n := len(env.notifications(t, owner.ID, models.NotifyRating)); n != 1 {
		t.Fatalf("rating notifications after self rating = %d, want 1", n)
	}
}

func TestListRatingsForMissingItem(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.core.Ratings.ListForItem(env.ctx, "00000000-0000-0000-0000-000000000000")
	wantErr(t, err, ErrNotFound)
}
