package service

import (
	"context"
	"strings"
	"time"

	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/models"

	"github.com/google/uuid"
)

type Catalog struct {
	repo *db.Repo
	now  func() time.Time
}

// Categories

func (c *Catalog) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name is required")
	}
	cat := &models.Category{ID: uuid.NewString(), Name: name, Description: strings.TrimSpace(description)}
	if err := c.repo.CreateCategory(ctx, cat); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, validationf("category %q already exists", name)
		}
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	return c.repo.ListCategories(ctx)
}

func (c *Catalog) DeleteCategory(ctx context.Context, id string) error {
	return notFoundOr(c.repo.DeleteCategory(ctx, id), "category")
}

// Items

type ItemInput struct {
	Title       string
	Description string
	CategoryID  string
	Condition   string
}

func (c *Catalog) CreateItem(ctx context.Context, ownerID string, in ItemInput) (*models.Item, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, validationf("title is required")
	}
	if in.Condition == "" {
		in.Condition = models.ConditionGood
	}
	if !models.ValidCondition(in.Condition) {
		return nil, validationf("invalid condition %q", in.Condition)
	}
	it := &models.Item{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Condition:   in.Condition,
		Status:      models.ItemAvailable,
	}
	if in.CategoryID != "" {
		if err := c.checkCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
		it.CategoryID = &in.CategoryID
	}
	if err := c.repo.CreateItem(ctx, it); err != nil {
		return nil, err
	}
	return c.repo.FindItemByID(ctx, it.ID)
}

func (c *Catalog) checkCategory(ctx context.Context, id string) error {
	if _, err := c.repo.FindCategoryByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return validationf("category does not exist")
		}
		return err
	}
	return nil
}

func (c *Catalog) GetItem(ctx context.Context, id string) (*models.Item, error) {
	it, err := c.repo.FindItemByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "item")
	}
	return it, nil
}

func (c *Catalog) ListItems(ctx context.Context, q db.ItemsQuery) (*db.PagedItems, error) {
	if q.Status != "" && !models.ValidItemStatus(q.Status) {
		return nil, validationf("invalid status %q", q.Status)
	}
	if q.Condition != "" && !models.ValidCondition(q.Condition) {
		return nil, validationf("invalid condition %q", q.Condition)
	}
	return c.repo.ListItems(ctx, q)
}

// AdminOverview 管理员视角：每件物品连同它当前未归还的借用
func (c *Catalog) AdminOverview(ctx context.Context, q db.AdminItemsQuery) (*db.PagedAdminItems, error) {
	switch q.Status {
	case "", "out", "in", "overdue", "under_review":
	default:
		return nil, validationf("invalid status %q", q.Status)
	}
	q.Now = c.now()
	return c.repo.ListItemsWithOpenLoan(ctx, q)
}

// ItemPatch 中 nil 表示不改；CategoryID 指向空串表示清空分类
type ItemPatch struct {
	Title       *string
	Description *string
	CategoryID  *string
	Condition   *string
	Status      *string
}

// UpdateItem lets the owner edit an item. requested/borrowed are set by the
// borrow lifecycle only; the owner may toggle available and under_review.
func (c *Catalog) UpdateItem(ctx context.Context, actorID, id string, p ItemPatch) (*models.Item, error) {
	fields := map[string]any{}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return nil, validationf("title must not be empty")
		}
		fields["title"] = t
	}
	if p.Description != nil {
		fields["description"] = strings.TrimSpace(*p.Description)
	}
	if p.Condition != nil {
		if !models.ValidCondition(*p.Condition) {
			return nil, validationf("invalid condition %q", *p.Condition)
		}
		fields["condition"] = *p.Condition
	}

	err := c.repo.Tx(ctx, func(tx *db.Repo) error {
		it, err := tx.LockItem(ctx, id)
		if err != nil {
			return notFoundOr(err, "item")
		}
		if it.OwnerID != actorID {
			return permissionf("only the owner can edit this item")
		}
		if p.CategoryID != nil {
			if *p.CategoryID == "" {
				fields["category_id"] = nil
			} else {
				if _, err := tx.FindCategoryByID(ctx, *p.CategoryID); err != nil {
					if db.IsNotFound(err) {
						return validationf("category does not exist")
					}
					return err
				}
				fields["category_id"] = *p.CategoryID
			}
		}
		if p.Status != nil && *p.Status != it.Status {
			switch *p.Status {
			case models.ItemUnderReview:
			case models.ItemAvailable:
				if it.Status != models.ItemUnderReview {
					return validationf("item status %s is managed by its borrow requests", it.Status)
				}
				open, err := tx.HasOpenRecordForItem(ctx, id)
				if err != nil {
					return err
				}
				if open {
					return validationf("item is currently on loan")
				}
			default:
				return validationf("status can only be set to available or under_review")
			}
			fields["status"] = *p.Status
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.UpdateItem(ctx, id, fields)
	})
	if err != nil {
		return nil, err
	}
	return c.repo.FindItemByID(ctx, id)
}

// DeleteItem 只允许删除没有借用和评分历史的物品；有历史的改成 under_review
func (c *Catalog) DeleteItem(ctx context.Context, actorID, id string) error {
	return c.repo.Tx(ctx, func(tx *db.Repo) error {
		it, err := tx.LockItem(ctx, id)
		if err != nil {
			return notFoundOr(err, "item")
		}
		if it.OwnerID != actorID {
			return permissionf("only the owner can delete this item")
		}
		n, err := tx.CountItemReferences(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return validationf("item has borrow history; set it under_review instead")
		}
		return tx.DeleteItem(ctx, id)
	})
}
