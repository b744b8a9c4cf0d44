package models

import (
	"time"
)

const UserTable = "lend_users"

// User 使用 UUID 字符串作主键；WebAuthn userHandle 用时转 []byte
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	DisplayName  string `gorm:"size:255;not null" json:"display_name"`
	FirstName    string `gorm:"size:150" json:"first_name"`
	LastName     string `gorm:"size:150" json:"last_name"`
	Location     string `gorm:"size:255" json:"location"`
	Bio          string `gorm:"size:500" json:"bio"`

	// 评分缓存：由 Rating 账本在同一事务内重算写入
	LenderRating   float64 `gorm:"type:decimal(3,2);not null;default:0" json:"lender_rating"`
	BorrowerRating float64 `gorm:"type:decimal(3,2);not null;default:0" json:"borrower_rating"`

	IsActive bool `gorm:"not null;default:true" json:"is_active"`
	IsAdmin  bool `gorm:"not null;default:false" json:"is_admin"`

	LastLoginAt *time.Time `gorm:"index" json:"last_login_at,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"last_seen_at,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"login_count"`
	LastLoginIP string     `gorm:"size:45" json:"-"`
	LastLoginUA string     `gorm:"size:255" json:"-"`

	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Credentials []Credential `json:"-"`
}

func (User) TableName() string { return UserTable }

// PublicUser is what other users get to see.
type PublicUser struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	DisplayName    string  `json:"display_name"`
	Location       string  `json:"location"`
	Bio            string  `json:"bio"`
	LenderRating   float64 `json:"lender_rating"`
	BorrowerRating float64 `json:"borrower_rating"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Location:       u.Location,
		Bio:            u.Bio,
		LenderRating:   u.LenderRating,
		BorrowerRating: u.BorrowerRating,
	}
}

// Credential 为每个注册的 Passkey 存档
type Credential struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"type:uuid;index" json:"user_id"`
	CredentialID    []byte    `gorm:"uniqueIndex" json:"credential_id"`
	PublicKey       []byte    `json:"-"`
	AttestationType string    `gorm:"size:64" json:"attestation_type"`
	AAGUID          []byte    `json:"aaguid"`
	SignCount       uint32    `json:"sign_count"`
	CloneWarning    bool      `json:"clone_warning"`
	BackupEligible  bool      `json:"backup_eligible"`
	BackupState     bool      `json:"backup_state"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	LastUsedAt *time.Time `gorm:"index" json:"last_used_at,omitempty"`
}

func (Credential) TableName() string { return "lend_credentials" }
