// models/borrow.go
package models

import "time"

const (
	BorrowRequestTable = "lend_borrow_requests"
	BorrowRecordTable  = "lend_borrow_records"
	DamageReportTable  = "lend_damage_reports"
)

// BorrowRequest.Status
const (
	RequestPending   = "pending"
	RequestApproved  = "approved"
	RequestRejected  = "rejected"
	RequestCancelled = "cancelled"
)

// BorrowRecord.Status
const (
	RecordBorrowed = "borrowed"
	RecordReturned = "returned"
	RecordLate     = "late"
	RecordOverdue  = "overdue"
)

// DamageReport.Status
const (
	DamageOpen     = "open"
	DamageResolved = "resolved"
)

func ValidRequestStatus(s string) bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestCancelled:
		return true
	}
	return false
}

func ValidRecordStatus(s string) bool {
	switch s {
	case RecordBorrowed, RecordReturned, RecordLate, RecordOverdue:
		return true
	}
	return false
}

type BorrowRequest struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID     string `gorm:"type:uuid;index;not null" json:"item_id"`
	Item       *Item  `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	BorrowerID string `gorm:"type:uuid;index;not null" json:"borrower_id"`
	Borrower   *User  `gorm:"foreignKey:BorrowerID" json:"borrower,omitempty"`
	// 物主快照：Item 的 owner 创建后不变，冗余一列方便可见性过滤
	OwnerID string `gorm:"type:uuid;index;not null" json:"owner_id"`

	Status      string     `gorm:"size:20;index;not null;default:'pending'" json:"status"`
	Message     string     `gorm:"type:text" json:"message"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	RequestDate time.Time  `gorm:"autoCreateTime" json:"request_date"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Record *BorrowRecord `gorm:"foreignKey:RequestID" json:"borrow_record,omitempty"`
}

type BorrowRecord struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID string         `gorm:"type:uuid;uniqueIndex;not null" json:"request_id"` // 一对一
	Request   *BorrowRequest `gorm:"foreignKey:RequestID" json:"request,omitempty"`

	ItemID     string `gorm:"type:uuid;index;not null" json:"item_id"`
	BorrowerID string `gorm:"type:uuid;index;not null" json:"borrower_id"`
	OwnerID    string `gorm:"type:uuid;index;not null" json:"owner_id"`

	StartDate  time.Time  `gorm:"not null" json:"start_date"`
	DueDate    time.Time  `gorm:"index;not null" json:"due_date"`
	ReturnDate *time.Time `gorm:"index" json:"return_date,omitempty"`
	Status     string     `gorm:"size:20;index;not null;default:'borrowed'" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Open reports whether the loan still counts as out of the owner's hands.
func (r BorrowRecord) Open() bool { return r.Status != RecordReturned }

type DamageReport struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	BorrowRecordID string     `gorm:"type:uuid;index;not null" json:"borrow_record_id"`
	ReporterID     string     `gorm:"type:uuid;not null" json:"reporter_id"`
	Description    string     `gorm:"type:text;not null" json:"description"`
	Status         string     `gorm:"size:20;not null;default:'open'" json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func (BorrowRequest) TableName() string { return BorrowRequestTable }
func (BorrowRecord) TableName() string  { return BorrowRecordTable }
func (DamageReport) TableName() string  { return DamageReportTable }
