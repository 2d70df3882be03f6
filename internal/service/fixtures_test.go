package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/emailace-backend/internal/ai"
	"github.com/unclebandit/emailace-backend/internal/email"
	"github.com/unclebandit/emailace-backend/internal/model"
	"github.com/unclebandit/emailace-backend/internal/repository/memstore"
	"github.com/unclebandit/emailace-backend/internal/service"
)

// MockMailer records every message and fails the addresses listed in failures.
type MockMailer struct {
	mu       sync.Mutex
	failures map[string]error
	sent     []email.Message
	attempts int
}

func (m *MockMailer) Send(_ context.Context, msg email.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if err, ok := m.failures[strings.ToLower(msg.To)]; ok {
		return "", err
	}
	m.sent = append(m.sent, msg)
	return fmt.Sprintf("<msg-%d@test>", len(m.sent)), nil
}

func (m *MockMailer) Sent() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

// MockDrafts returns a fixed draft per candidate and fails the configured recipients' templates.
type MockDrafts struct {
	mu    sync.Mutex
	calls int
	fail  string // fail when the template contains this text
}

func (m *MockDrafts) GenerateDraft(_ context.Context, req service.DraftRequest) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fail != "" && strings.Contains(req.EmailTemplate, m.fail) {
		return "", fmt.Errorf("draft generation failed: model overloaded")
	}
	return "Personal note for " + req.CandidateName, nil
}

// MockClassifier returns whatever it was primed with.
type MockClassifier struct {
	result *service.ReplyClassification
	err    error
	calls  int
}

func (m *MockClassifier) ClassifyReply(_ context.Context, _ string) (*service.ReplyClassification, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// MockModel is a canned ai.Model.
type MockModel struct {
	text    string
	err     error
	delay   time.Duration
	request ai.Request
}

func (m *MockModel) GenerateJSON(ctx context.Context, req ai.Request) (string, error) {
	m.request = req
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.text, m.err
}

type fixture struct {
	store     *memstore.Store
	svc       *service.CampaignService
	catalog   *service.CatalogService
	mailer    *MockMailer
	candidate *model.Candidate
	list      *model.EmailList
	tmpl      *model.EmailTemplate
}

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, addresses ...string) *fixture {
	t.Helper()
	if len(addresses) == 0 {
		addresses = []string{"anna.schmidt@klinik.de", "jobs@charite.de", "hr@vivantes.de"}
	}
	ctx := context.Background()
	store := memstore.New()

	catalog := &service.CatalogService{
		CandidateRepo: store.Candidates,
		ListRepo:      store.EmailLists,
		TemplateRepo:  store.Templates,
		CampaignRepo:  store.Campaigns,
		Now:           func() time.Time { return fixedNow },
	}
	candidate, err := catalog.SaveCandidate(ctx, "", service.CandidateInput{
		Name:          "Alice Martin",
		DateOfBirth:   "1996-04-12",
		LanguageLevel: "Advanced",
		Information:   "ICU nurse, five years",
	})
	require.NoError(t, err)
	list, err := catalog.SaveEmailList(ctx, "", service.EmailListInput{Name: "Hospitals", Emails: addresses})
	require.NoError(t, err)
	tmpl, err := catalog.SaveTemplate(ctx, "", service.TemplateInput{
		Name:            "Nurse",
		SubjectTemplate: "Application: {{position}}",
		BodyTemplate:    "Dear {{recipientName}}, I am {{candidateName}} ({{age}}).",
	})
	require.NoError(t, err)

	mailer := &MockMailer{failures: map[string]error{}}
	svc := &service.CampaignService{
		CampaignRepo:  store.Campaigns,
		CandidateRepo: store.Candidates,
		ListRepo:      store.EmailLists,
		TemplateRepo:  store.Templates,
		Mailer:        mailer,
		MailTimeout:   time.Second,
		Concurrency:   2,
		Now:           func() time.Time { return fixedNow },
	}
	return &fixture{store: store, svc: svc, catalog: catalog, mailer: mailer, candidate: candidate, list: list, tmpl: tmpl}
}

func (f *fixture) createCampaign(t *testing.T) *model.Campaign {
	t.Helper()
	c, err := f.svc.CreateCampaign(context.Background(), service.CreateCampaignInput{
		Name:           "Berlin hospitals",
		CandidateID:    f.candidate.ID,
		EmailListID:    f.list.ID,
		TemplateID:     f.tmpl.ID,
		JobDescription: "Registered Nurse\nFull time, night shifts",
	})
	require.NoError(t, err)
	return c
}

func logsByAddress(logs []*model.RecipientLog) map[string]*model.RecipientLog {
	out := make(map[string]*model.RecipientLog, len(logs))
	for _, l := range logs {
		out[l.RecipientEmail] = l
	}
	return out
}
