// internal/model/recipient_log.go
package model

import "time"

type RecipientStatus string

const (
	RecipientPending   RecipientStatus = "pending"
	RecipientDelivered RecipientStatus = "delivered"
	RecipientBounced   RecipientStatus = "bounced"
	RecipientFailed    RecipientStatus = "failed"
)

type ReplyCategory string

const (
	ReplyYes   ReplyCategory = "Yes"
	ReplyNo    ReplyCategory = "No"
	ReplyOther ReplyCategory = "Other"
)

func (c ReplyCategory) Valid() bool {
	return c == ReplyYes || c == ReplyNo || c == ReplyOther
}

// RecipientLog tracks one address of a campaign. Reply fields are only set
// while Status is delivered.
type RecipientLog struct {
	ID              string          `db:"id" json:"id"`
	CampaignID      string          `db:"campaign_id" json:"campaign_id"`
	RecipientEmail  string          `db:"recipient_email" json:"recipient_email"`
	Position        int             `db:"position" json:"position"`
	Status          RecipientStatus `db:"status" json:"status"`
	MessageID       string          `db:"message_id" json:"message_id,omitempty"`
	SentAt          *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	ErrorMessage    string          `db:"error_message" json:"error_message,omitempty"`
	ReplyReceivedAt *time.Time      `db:"reply_received_at" json:"reply_received_at,omitempty"`
	ReplyCategory   ReplyCategory   `db:"reply_category" json:"reply_category,omitempty"`
	ReplySummary    string          `db:"reply_summary" json:"reply_summary,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
