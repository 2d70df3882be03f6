// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "draft"
	CampaignSending CampaignStatus = "sending"
	CampaignSent    CampaignStatus = "sent"
	CampaignFailed  CampaignStatus = "failed"
)

// Campaign references its candidate, list and template by id. References
// become empty when the referenced record is deleted after the campaign finished.
type Campaign struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	CandidateID    string         `db:"candidate_id" json:"candidate_id"`
	EmailListID    string         `db:"email_list_id" json:"email_list_id"`
	TemplateID     string         `db:"template_id" json:"template_id"`
	JobDescription string         `db:"job_description" json:"job_description"`
	Status         CampaignStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// DashboardStats mirrors the counters shown on the admin landing page.
type DashboardStats struct {
	TotalCampaigns  int     `json:"total_campaigns"`
	TotalCandidates int     `json:"total_candidates"`
	EmailsDelivered int     `json:"emails_delivered"`
	RepliesReceived int     `json:"replies_received"`
	PositiveReplies int     `json:"positive_replies"`
	ResponseRate    float64 `json:"response_rate"`
}
