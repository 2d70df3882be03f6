package repository

import (
	"context"
	"time"

	"github.com/unclebandit/emailace-backend/internal/model"
)

// Reference names a campaign foreign key column.
type Reference string

const (
	RefCandidate Reference = "candidate_id"
	RefEmailList Reference = "email_list_id"
	RefTemplate  Reference = "template_id"
)

// CandidateRepositoryInterface defines methods used by service
type CandidateRepositoryInterface interface {
	Create(ctx context.Context, c *model.Candidate) error
	Update(ctx context.Context, c *model.Candidate) error
	GetByID(ctx context.Context, id string) (*model.Candidate, error)
	List(ctx context.Context) ([]model.Candidate, error)
	Delete(ctx context.Context, id string) error
}

type EmailListRepositoryInterface interface {
	Create(ctx context.Context, l *model.EmailList) error
	Update(ctx context.Context, l *model.EmailList) error
	GetByID(ctx context.Context, id string) (*model.EmailList, error)
	List(ctx context.Context) ([]model.EmailList, error)
	Delete(ctx context.Context, id string) error
}

type TemplateRepositoryInterface interface {
	Create(ctx context.Context, t *model.EmailTemplate) error
	Update(ctx context.Context, t *model.EmailTemplate) error
	GetByID(ctx context.Context, id string) (*model.EmailTemplate, error)
	List(ctx context.Context) ([]model.EmailTemplate, error)
	Delete(ctx context.Context, id string) error
}

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	Create(ctx context.Context, c *model.Campaign) error
	Update(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, offset, limit int, status, candidateID string) ([]*model.Campaign, int, error)
	// TransitionStatus moves a campaign from one status to another and reports
	// false when the campaign was not in the from status.
	TransitionStatus(ctx context.Context, id string, from, to model.CampaignStatus) (bool, error)
	CountActiveByReference(ctx context.Context, ref Reference, id string) (int, error)
	Delete(ctx context.Context, id string) error
	Dashboard(ctx context.Context) (*model.DashboardStats, error)

	// Recipient logs
	CreateRecipientLogs(ctx context.Context, campaignID string, addresses []string) ([]*model.RecipientLog, error)
	ListRecipientLogs(ctx context.Context, campaignID string) ([]*model.RecipientLog, error)
	GetRecipientLog(ctx context.Context, campaignID, address string) (*model.RecipientLog, error)
	MarkDelivered(ctx context.Context, logID, messageID string, at time.Time) error
	MarkFailed(ctx context.Context, logID, errorMessage string) error
	SaveReply(ctx context.Context, logID string, category model.ReplyCategory, summary string, at time.Time) error
	GetCampaignStats(ctx context.Context, campaignID string) (map[string]int, error)
}

// NewStats returns a zeroed per-status counter map.
func NewStats() map[string]int {
	stats := map[string]int{"total": 0, "replied": 0}
	for _, st := range []model.RecipientStatus{model.RecipientPending, model.RecipientDelivered, model.RecipientFailed, model.RecipientBounced} {
		stats[string(st)] = 0
	}
	return stats
}
