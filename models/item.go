// models/item.go
package models

import "time"

const (
	CategoryTable = "lend_categories"
	ItemTable     = "lend_items"
)

// Item.Status
const (
	ItemAvailable   = "available"
	ItemRequested   = "requested"
	ItemBorrowed    = "borrowed"
	ItemUnderReview = "under_review"
)

// Item.Condition
const (
	ConditionNew     = "new"
	ConditionGood    = "good"
	ConditionUsed    = "used"
	ConditionDamaged = "damaged"
)

func ValidItemStatus(s string) bool {
	switch s {
	case ItemAvailable, ItemRequested, ItemBorrowed, ItemUnderReview:
		return true
	}
	return false
}

func ValidCondition(s string) bool {
	switch s {
	case ConditionNew, ConditionGood, ConditionUsed, ConditionDamaged:
		return true
	}
	return false
}

type Category struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Item struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     string    `gorm:"type:uuid;index;not null" json:"owner_id"` // 创建后不可变
	Owner       *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CategoryID  *string   `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Condition   string    `gorm:"size:20;not null;default:'good'" json:"condition"`
	Status      string    `gorm:"size:20;index;not null;default:'available'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string { return CategoryTable }
func (Item) TableName() string     { return ItemTable }
