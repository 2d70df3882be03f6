package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/emailace-backend/internal/controller"
	"github.com/unclebandit/emailace-backend/internal/email"
	"github.com/unclebandit/emailace-backend/internal/handler"
	"github.com/unclebandit/emailace-backend/internal/middleware"
	"github.com/unclebandit/emailace-backend/internal/repository/memstore"
	"github.com/unclebandit/emailace-backend/internal/router"
	"github.com/unclebandit/emailace-backend/internal/service"
)

type countingMailer struct {
	mu sync.Mutex
	n  int
}

func (m *countingMailer) Send(context.Context, email.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return fmt.Sprintf("<msg-%d@test>", m.n), nil
}

func newServer(t *testing.T) (http.Handler, *countingMailer) {
	t.Helper()
	store := memstore.New()
	mailer := &countingMailer{}
	catalog := &service.CatalogService{CandidateRepo: store.Candidates, ListRepo: store.EmailLists, TemplateRepo: store.Templates, CampaignRepo: store.Campaigns}
	campaigns := &service.CampaignService{
		CampaignRepo:  store.Campaigns,
		CandidateRepo: store.Candidates,
		ListRepo:      store.EmailLists,
		TemplateRepo:  store.Templates,
		Mailer:        mailer,
		Concurrency:   2,
	}
	r := router.New(router.Deps{
		Middleware:         middleware.New(nil, nil),
		AllowedOrigins:     []string{"*"},
		RateLimit:          100,
		Health:             &handler.HealthHandler{Store: "memory"},
		Catalog:            handler.NewCatalogHandler(catalog),
		Campaigns:          handler.NewCampaignHandler(campaigns),
		CampaignController: &controller.CampaignController{CampaignService: campaigns},
		AIController:       &controller.AIController{},
	})
	return r, mailer
}

func call(t *testing.T, h http.Handler, method, path string, body any, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type idBody struct {
	ID string `json:"id"`
}

func TestHealth(t *testing.T) {
	h, _ := newServer(t)
	var res map[string]any
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/health", nil, &res))
	assert.Equal(t, "ok", res["status"])
}

func TestCampaignLifecycle(t *testing.T) {
	h, mailer := newServer(t)

	var cand, list, tmpl, camp idBody
	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/candidates", map[string]string{
		"name": "Alice Martin", "date_of_birth": "1996-04-12", "language_level": "Advanced",
	}, &cand))
	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/email-lists", map[string]any{
		"name": "Berlin clinics", "emails": []string{"hr@vivantes.de", "jobs@charite.de", "HR@vivantes.de"},
	}, &list))
	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/templates", map[string]string{
		"name": "Default", "subject_template": "Application: {{position}}", "body_template": "Dear {{recipientName}}",
	}, &tmpl))
	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/campaigns", map[string]string{
		"name": "Nurse roles", "candidate_id": cand.ID, "email_list_id": list.ID, "template_id": tmpl.ID,
		"job_description": "Registered Nurse",
	}, &camp))

	// referenced while the campaign is a draft
	assert.Equal(t, http.StatusBadRequest, call(t, h, http.MethodDelete, "/templates/"+tmpl.ID, nil, nil))

	var listed struct {
		Data       []idBody       `json:"data"`
		Pagination map[string]int `json:"pagination"`
	}
	require.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/campaigns?status=draft&page_size=5", nil, &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, 5, listed.Pagination["page_size"])
	assert.Equal(t, 1, listed.Pagination["total_count"])

	var result service.SendResult
	require.Equal(t, http.StatusOK, call(t, h, http.MethodPost, "/campaigns/"+camp.ID+"/send", nil, &result))
	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, 2, mailer.n)

	var details service.CampaignDetails
	require.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/campaigns/"+camp.ID, nil, &details))
	assert.Equal(t, "sent", string(details.Status))
	assert.Equal(t, 2, details.Stats["delivered"])
	assert.Len(t, details.Logs, 2)

	var dash map[string]any
	require.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/dashboard", nil, &dash))
	assert.EqualValues(t, 1, dash["total_campaigns"])
	assert.EqualValues(t, 2, dash["emails_delivered"])

	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodGet, "/campaigns/missing", nil, nil))
}

func TestAIRoutesWithoutModel(t *testing.T) {
	h, _ := newServer(t)
	var res map[string]any
	assert.Equal(t, http.StatusInternalServerError, call(t, h, http.MethodPost, "/api/ai/summarize-reply", map[string]string{"emailReply": "hi"}, &res))
	assert.Equal(t, "configuration", res["kind"])
}
