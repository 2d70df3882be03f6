package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/model"
	"github.com/unclebandit/emailace-backend/internal/repository"
)

func seed(t *testing.T, s *Store) *model.Campaign {
	t.Helper()
	ctx := context.Background()
	cand := &model.Candidate{Name: "Alice", DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), LanguageLevel: model.LanguageNative}
	require.NoError(t, s.Candidates.Create(ctx, cand))
	list := &model.EmailList{Name: "L", Emails: []string{"a@x.com"}}
	require.NoError(t, s.EmailLists.Create(ctx, list))
	tmpl := &model.EmailTemplate{Name: "T", SubjectTemplate: "s", BodyTemplate: "b"}
	require.NoError(t, s.Templates.Create(ctx, tmpl))

	c := &model.Campaign{Name: "C", CandidateID: cand.ID, EmailListID: list.ID, TemplateID: tmpl.ID}
	require.NoError(t, s.Campaigns.Create(ctx, c))
	return c
}

func TestTransitionStatusIsCompareAndSet(t *testing.T) {
	s := New()
	c := seed(t, s)
	ctx := context.Background()

	ok, err := s.Campaigns.TransitionStatus(ctx, c.ID, model.CampaignDraft, model.CampaignSending)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Campaigns.TransitionStatus(ctx, c.ID, model.CampaignDraft, model.CampaignSending)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecipientLogGuards(t *testing.T) {
	s := New()
	c := seed(t, s)
	ctx := context.Background()
	at := time.Now()

	logs, err := s.Campaigns.CreateRecipientLogs(ctx, c.ID, []string{"a@x.com", "b@x.com"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.RecipientPending, logs[0].Status)

	_, err = s.Campaigns.CreateRecipientLogs(ctx, c.ID, []string{"A@X.com"})
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))

	// replies need a delivered log
	err = s.Campaigns.SaveReply(ctx, logs[0].ID, model.ReplyYes, "s", at)
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))

	require.NoError(t, s.Campaigns.MarkDelivered(ctx, logs[0].ID, "<id>", at))
	require.NoError(t, s.Campaigns.SaveReply(ctx, logs[0].ID, model.ReplyYes, "s", at))

	// a delivered log cannot be failed afterwards
	err = s.Campaigns.MarkFailed(ctx, logs[0].ID, "late")
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))

	require.NoError(t, s.Campaigns.MarkFailed(ctx, logs[1].ID, "boom"))
	failed, err := s.Campaigns.GetRecipientLog(ctx, c.ID, logs[1].RecipientEmail)
	require.NoError(t, err)
	assert.Nil(t, failed.SentAt)
	assert.Equal(t, "boom", failed.ErrorMessage)
	stats, err := s.Campaigns.GetCampaignStats(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"total": 2, "replied": 1, "pending": 0, "delivered": 1, "failed": 1, "bounced": 0}, stats)
}

func TestCountActiveByReference(t *testing.T) {
	s := New()
	c := seed(t, s)
	ctx := context.Background()

	n, err := s.Campaigns.CountActiveByReference(ctx, repository.RefTemplate, c.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Campaigns.TransitionStatus(ctx, c.ID, model.CampaignDraft, model.CampaignSent)
	require.NoError(t, err)
	n, err = s.Campaigns.CountActiveByReference(ctx, repository.RefTemplate, c.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeleteClearsReferences(t *testing.T) {
	s := New()
	c := seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.EmailLists.Delete(ctx, c.EmailListID))
	got, err := s.Campaigns.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.EmailListID)
	assert.Equal(t, c.CandidateID, got.CandidateID)
}

func TestCreateCampaignChecksReferences(t *testing.T) {
	s := New()
	err := s.Campaigns.Create(context.Background(), &model.Campaign{Name: "x", TemplateID: "missing"})
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	list := &model.EmailList{Name: "L", Emails: []string{"a@x.com"}}
	require.NoError(t, s.EmailLists.Create(ctx, list))

	got, err := s.EmailLists.GetByID(ctx, list.ID)
	require.NoError(t, err)
	got.Emails[0] = "changed@x.com"

	again, err := s.EmailLists.GetByID(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", again.Emails[0])
}
