package db

import (
	"context"
	"strings"

	"Gin_postgres_redis_lendshare/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Categories

func (r *Repo) CreateCategory(ctx context.Context, c *models.Category) error {
	return mapErr(r.DB.WithContext(ctx).Create(c).Error)
}

func (r *Repo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cs []models.Category
	err := r.DB.WithContext(ctx).Order("name ASC").Find(&cs).Error
	return cs, err
}

func (r *Repo) FindCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	if err := r.DB.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// DeleteCategory 先把引用它的物品置空再删
func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	return r.Tx(ctx, func(tx *Repo) error {
		if err := tx.DB.Model(&models.Item{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		res := tx.DB.Delete(&models.Category{ID: id})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &Error{Sentinel: ErrNotFound, Cause: gorm.ErrRecordNotFound}
		}
		return nil
	})
}

// Items

func (r *Repo) CreateItem(ctx context.Context, it *models.Item) error {
	return mapErr(r.DB.WithContext(ctx).Create(it).Error)
}

func (r *Repo) FindItemByID(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).
		Preload("Owner").
		Preload("Category").
		First(&it, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

// LockItem 在事务内锁住物品行
func (r *Repo) LockItem(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&it, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

func (r *Repo) SetItemStatus(ctx context.Context, id, status string) error {
	return r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *Repo) UpdateItem(ctx context.Context, id string, fields map[string]any) error {
	return mapErr(r.DB.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Updates(fields).Error)
}

func (r *Repo) DeleteItem(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Delete(&models.Item{ID: id}).Error
}

// CountItemReferences counts borrow requests and ratings pointing at the item.
func (r *Repo) CountItemReferences(ctx context.Context, itemID string) (int64, error) {
	var reqs, ratings int64
	if err := r.DB.WithContext(ctx).Model(&models.BorrowRequest{}).Where("item_id = ?", itemID).Count(&reqs).Error; err != nil {
		return 0, err
	}
	if err := r.DB.WithContext(ctx).Model(&models.Rating{}).Where("item_id = ?", itemID).Count(&ratings).Error; err != nil {
		return 0, err
	}
	return reqs + ratings, nil
}

type ItemsQuery struct {
	Q          string // 模糊搜索：title/description
	CategoryID string
	Status     string
	Condition  string
	OwnerID    string
	Page       int
	Size       int
}

type PagedItems struct {
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
	Items []models.Item `json:"items"`
}

func (r *Repo) ListItems(ctx context.Context, q ItemsQuery) (*PagedItems, error) {
	q.Page, q.Size = normalizePage(q.Page, q.Size)

	tx := r.DB.WithContext(ctx).Model(&models.Item{})
	if s := strings.TrimSpace(q.Q); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pat, pat)
	}
	if q.CategoryID != "" {
		tx = tx.Where("category_id = ?", q.CategoryID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Condition != "" {
		tx = tx.Where("condition = ?", q.Condition)
	}
	if q.OwnerID != "" {
		tx = tx.Where("owner_id = ?", q.OwnerID)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.Item
	if err := tx.
		Preload("Owner").
		Preload("Category").
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &PagedItems{Total: total, Page: q.Page, Size: q.Size, Items: items}, nil
}
