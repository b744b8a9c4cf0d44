package models

import "time"

const RatingTable = "lend_ratings"

const (
	MinStars = 1
	MaxStars = 5
)

// Rating 一经写入不可修改；(from_user, to_user, item) 唯一
type Rating struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	FromUserID string    `gorm:"type:uuid;not null;uniqueIndex:ux_rating_from_to_item,priority:1" json:"from_user_id"`
	FromUser   *User     `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUserID   string    `gorm:"type:uuid;not null;index;uniqueIndex:ux_rating_from_to_item,priority:2" json:"to_user_id"`
	ToUser     *User     `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
	ItemID     string    `gorm:"type:uuid;not null;index;uniqueIndex:ux_rating_from_to_item,priority:3" json:"item_id"`
	Stars      int       `gorm:"not null;check:chk_rating_stars,stars BETWEEN 1 AND 5" json:"stars"`
	Message    string    `gorm:"type:text" json:"message"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (Rating) TableName() string { return RatingTable }
