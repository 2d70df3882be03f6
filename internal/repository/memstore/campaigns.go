package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/model"
	"github.com/unclebandit/emailace-backend/internal/repository"
)

type CampaignRepo struct{ s *Store }

func (r *CampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkReferences(c); err != nil {
		return err
	}
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.stamp()
	cp := *c
	r.s.campaigns[c.ID] = &cp
	return nil
}

func (r *CampaignRepo) Update(_ context.Context, c *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.campaigns[c.ID]
	if !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	if err := r.s.checkReferences(c); err != nil {
		return err
	}
	existing.Name = c.Name
	existing.CandidateID = c.CandidateID
	existing.EmailListID = c.EmailListID
	existing.TemplateID = c.TemplateID
	existing.JobDescription = c.JobDescription
	existing.UpdatedAt = now()
	c.UpdatedAt = existing.UpdatedAt
	c.Status = existing.Status
	c.CreatedAt = existing.CreatedAt
	return nil
}

// checkReferences stands in for the foreign key constraints.
func (s *Store) checkReferences(c *model.Campaign) error {
	if _, ok := s.candidates[c.CandidateID]; c.CandidateID != "" && !ok {
		return appErrors.NewValidation("campaign", "referenced record does not exist")
	}
	if _, ok := s.lists[c.EmailListID]; c.EmailListID != "" && !ok {
		return appErrors.NewValidation("campaign", "referenced record does not exist")
	}
	if _, ok := s.templates[c.TemplateID]; c.TemplateID != "" && !ok {
		return appErrors.NewValidation("campaign", "referenced record does not exist")
	}
	return nil
}

func (r *CampaignRepo) GetByID(_ context.Context, id string) (*model.Campaign, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *CampaignRepo) ListCampaigns(_ context.Context, offset, limit int, status, candidateID string) ([]*model.Campaign, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []*model.Campaign{}
	for _, c := range r.s.campaigns {
		if status != "" && string(c.Status) != status {
			continue
		}
		if candidateID != "" && c.CandidateID != candidateID {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset >= total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *CampaignRepo) TransitionStatus(_ context.Context, id string, from, to model.CampaignStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = now()
	return true, nil
}

func (r *CampaignRepo) CountActiveByReference(_ context.Context, ref repository.Reference, id string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, c := range r.s.campaigns {
		if c.Status != model.CampaignDraft && c.Status != model.CampaignSending {
			continue
		}
		var v string
		switch ref {
		case repository.RefCandidate:
			v = c.CandidateID
		case repository.RefEmailList:
			v = c.EmailListID
		case repository.RefTemplate:
			v = c.TemplateID
		default:
			return 0, fmt.Errorf("unknown campaign reference %q", ref)
		}
		if v == id {
			n++
		}
	}
	return n, nil
}

func (r *CampaignRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaigns[id]; !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	delete(r.s.campaigns, id)
	for logID, l := range r.s.logs {
		if l.CampaignID == id {
			delete(r.s.logs, logID)
		}
	}
	return nil
}

func (r *CampaignRepo) Dashboard(_ context.Context) (*model.DashboardStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := &model.DashboardStats{
		TotalCampaigns:  len(r.s.campaigns),
		TotalCandidates: len(r.s.candidates),
	}
	for _, l := range r.s.logs {
		if l.Status == model.RecipientDelivered {
			stats.EmailsDelivered++
		}
		if l.ReplyReceivedAt != nil {
			stats.RepliesReceived++
		}
		if l.ReplyCategory == model.ReplyYes {
			stats.PositiveReplies++
		}
	}
	stats.ResponseRate = repository.ResponseRate(stats.RepliesReceived, stats.EmailsDelivered)
	return stats, nil
}

// ---------------- recipient logs ----------------

func (r *CampaignRepo) CreateRecipientLogs(_ context.Context, campaignID string, addresses []string) ([]*model.RecipientLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaigns[campaignID]; !ok {
		return nil, appErrors.NewCampaignNotFound(campaignID)
	}
	for _, l := range r.s.logs {
		if l.CampaignID != campaignID {
			continue
		}
		for _, addr := range addresses {
			if sameAddress(l.RecipientEmail, addr) {
				return nil, appErrors.NewValidation("recipient log", "duplicate recipient log")
			}
		}
	}

	ts := time.Now().UTC()
	out := make([]*model.RecipientLog, 0, len(addresses))
	for i, addr := range addresses {
		l := &model.RecipientLog{
			ID:             uuid.NewString(),
			CampaignID:     campaignID,
			RecipientEmail: addr,
			Position:       i,
			Status:         model.RecipientPending,
			CreatedAt:      ts,
			UpdatedAt:      ts,
		}
		r.s.logs[l.ID] = l
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *CampaignRepo) ListRecipientLogs(_ context.Context, campaignID string) ([]*model.RecipientLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.RecipientLog{}
	for _, l := range r.s.logs {
		if l.CampaignID == campaignID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *CampaignRepo) GetRecipientLog(_ context.Context, campaignID, address string) (*model.RecipientLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, l := range r.s.logs {
		if l.CampaignID == campaignID && sameAddress(l.RecipientEmail, address) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, appErrors.NewNotFound("recipient log", address)
}

func (r *CampaignRepo) MarkDelivered(_ context.Context, logID, messageID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, err := r.s.awaitingDispatch(logID)
	if err != nil {
		return err
	}
	l.Status = model.RecipientDelivered
	l.MessageID = messageID
	l.SentAt = &at
	l.ErrorMessage = ""
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *CampaignRepo) MarkFailed(_ context.Context, logID, errorMessage string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, err := r.s.awaitingDispatch(logID)
	if err != nil {
		return err
	}
	l.Status = model.RecipientFailed
	l.ErrorMessage = errorMessage
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) awaitingDispatch(logID string) (*model.RecipientLog, error) {
	l, ok := s.logs[logID]
	if !ok {
		return nil, appErrors.NewNotFound("recipient log", logID)
	}
	if l.Status != model.RecipientPending && l.Status != model.RecipientFailed {
		return nil, appErrors.NewValidation("recipient log", "recipient log %s is not awaiting dispatch", logID)
	}
	return l, nil
}

func (r *CampaignRepo) SaveReply(_ context.Context, logID string, category model.ReplyCategory, summary string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.logs[logID]
	if !ok || l.Status != model.RecipientDelivered {
		return appErrors.NewValidation("recipient log", "reply can only be recorded for a delivered recipient")
	}
	l.ReplyCategory = category
	l.ReplySummary = summary
	l.ReplyReceivedAt = &at
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *CampaignRepo) GetCampaignStats(_ context.Context, campaignID string) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := repository.NewStats()
	for _, l := range r.s.logs {
		if l.CampaignID != campaignID {
			continue
		}
		stats[string(l.Status)]++
		stats["total"]++
		if l.ReplyReceivedAt != nil {
			stats["replied"]++
		}
	}
	return stats, nil
}

var _ repository.CampaignRepositoryInterface = (*CampaignRepo)(nil)
