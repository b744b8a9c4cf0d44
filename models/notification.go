package models

import (
	"time"

	"gorm.io/datatypes"
)

const NotificationTable = "lend_notifications"

// Notification.Type
const (
	NotifyRequest  = "request"
	NotifyApproved = "approved"
	NotifyRejected = "rejected"
	NotifyDueSoon  = "due_soon"
	NotifyOverdue  = "overdue"
	NotifyReturned = "returned"
	NotifyRating   = "rating"
)

// NotificationPayload 按 Type 只填一个分支。
// request/approved/rejected -> Request；due_soon/overdue/returned -> Loan；rating -> Rating
type NotificationPayload struct {
	Request *RequestPayload `json:"request,omitempty"`
	Loan    *LoanPayload    `json:"loan,omitempty"`
	Rating  *RatingPayload  `json:"rating,omitempty"`
}

type RequestPayload struct {
	RequestID        string     `json:"request_id"`
	ItemID           string     `json:"item_id"`
	ItemTitle        string     `json:"item_title"`
	CounterpartyID   string     `json:"counterparty_id"`
	CounterpartyName string     `json:"counterparty_name"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
}

type LoanPayload struct {
	RecordID   string     `json:"record_id"`
	RequestID  string     `json:"request_id"`
	ItemID     string     `json:"item_id"`
	ItemTitle  string     `json:"item_title"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

type RatingPayload struct {
	RatingID     string `json:"rating_id"`
	ItemID       string `json:"item_id"`
	ItemTitle    string `json:"item_title"`
	FromUserID   string `json:"from_user_id"`
	FromUserName string `json:"from_user_name"`
	Stars        int    `json:"stars"`
	AsLender     bool   `json:"as_lender"`
}

type Notification struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	Type      string     `gorm:"size:20;index;not null" json:"type"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Message   string     `gorm:"type:text" json:"message"`
	Read      bool       `gorm:"index;not null;default:false" json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	ItemID    *string    `gorm:"type:uuid;index" json:"related_item,omitempty"`
	RequestID *string    `gorm:"type:uuid;index" json:"related_request,omitempty"`

	Metadata  datatypes.JSONType[NotificationPayload] `json:"metadata"`
	CreatedAt time.Time                               `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return NotificationTable }

func (n Notification) Payload() NotificationPayload { return n.Metadata.Data() }

func NewRequestNotification(userID, typ, title, message string, p RequestPayload) *Notification {
	return &Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		ItemID:    strPtr(p.ItemID),
		RequestID: strPtr(p.RequestID),
		Metadata:  datatypes.NewJSONType(NotificationPayload{Request: &p}),
	}
}

func NewLoanNotification(userID, typ, title, message string, p LoanPayload) *Notification {
	return &Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		ItemID:    strPtr(p.ItemID),
		RequestID: strPtr(p.RequestID),
		Metadata:  datatypes.NewJSONType(NotificationPayload{Loan: &p}),
	}
}

func NewRatingNotification(userID, title, message string, p RatingPayload) *Notification {
	return &Notification{
		UserID:   userID,
		Type:     NotifyRating,
		Title:    title,
		Message:  message,
		ItemID:   strPtr(p.ItemID),
		Metadata: datatypes.NewJSONType(NotificationPayload{Rating: &p}),
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
