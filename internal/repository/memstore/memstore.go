// Package memstore is an in-process implementation of the repository
// interfaces. It backs STORE=memory and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/model"
	"github.com/unclebandit/emailace-backend/internal/repository"
)

// Store holds every collection behind one lock so cross-collection reads
// (dashboard, reference counts) are consistent.
type Store struct {
	mu         sync.RWMutex
	candidates map[string]*model.Candidate
	lists      map[string]*model.EmailList
	templates  map[string]*model.EmailTemplate
	campaigns  map[string]*model.Campaign
	logs       map[string]*model.RecipientLog
	seq        int64

	Candidates *CandidateRepo
	EmailLists *EmailListRepo
	Templates  *TemplateRepo
	Campaigns  *CampaignRepo
}

func New() *Store {
	s := &Store{
		candidates: map[string]*model.Candidate{},
		lists:      map[string]*model.EmailList{},
		templates:  map[string]*model.EmailTemplate{},
		campaigns:  map[string]*model.Campaign{},
		logs:       map[string]*model.RecipientLog{},
	}
	s.Candidates = &CandidateRepo{s}
	s.EmailLists = &EmailListRepo{s}
	s.Templates = &TemplateRepo{s}
	s.Campaigns = &CampaignRepo{s}
	return s
}

// stamp returns a strictly increasing creation time so newest-first ordering is stable.
func (s *Store) stamp() time.Time {
	s.seq++
	return time.Now().UTC().Add(time.Duration(s.seq) * time.Microsecond)
}

func now() *time.Time {
	t := time.Now().UTC()
	return &t
}

// ---------------- candidates ----------------

type CandidateRepo struct{ s *Store }

func (r *CandidateRepo) Create(_ context.Context, c *model.Candidate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.stamp()
	cp := *c
	r.s.candidates[c.ID] = &cp
	return nil
}

func (r *CandidateRepo) Update(_ context.Context, c *model.Candidate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.candidates[c.ID]
	if !ok {
		return appErrors.NewNotFound("candidate", c.ID)
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = now()
	cp := *c
	r.s.candidates[c.ID] = &cp
	return nil
}

func (r *CandidateRepo) GetByID(_ context.Context, id string) (*model.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.candidates[id]
	if !ok {
		return nil, appErrors.NewNotFound("candidate", id)
	}
	cp := *c
	return &cp, nil
}

func (r *CandidateRepo) List(_ context.Context) ([]model.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Candidate, 0, len(r.s.candidates))
	for _, c := range r.s.candidates {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *CandidateRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.candidates[id]; !ok {
		return appErrors.NewNotFound("candidate", id)
	}
	delete(r.s.candidates, id)
	r.s.clearReference(repository.RefCandidate, id)
	return nil
}

// ---------------- email lists ----------------

type EmailListRepo struct{ s *Store }

func (r *EmailListRepo) Create(_ context.Context, l *model.EmailList) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = uuid.NewString()
	l.CreatedAt = r.s.stamp()
	r.s.lists[l.ID] = copyList(l)
	return nil
}

func (r *EmailListRepo) Update(_ context.Context, l *model.EmailList) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.lists[l.ID]
	if !ok {
		return appErrors.NewNotFound("email list", l.ID)
	}
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = now()
	r.s.lists[l.ID] = copyList(l)
	return nil
}

func (r *EmailListRepo) GetByID(_ context.Context, id string) (*model.EmailList, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.lists[id]
	if !ok {
		return nil, appErrors.NewNotFound("email list", id)
	}
	return copyList(l), nil
}

func (r *EmailListRepo) List(_ context.Context) ([]model.EmailList, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.EmailList, 0, len(r.s.lists))
	for _, l := range r.s.lists {
		out = append(out, *copyList(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *EmailListRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lists[id]; !ok {
		return appErrors.NewNotFound("email list", id)
	}
	delete(r.s.lists, id)
	r.s.clearReference(repository.RefEmailList, id)
	return nil
}

func copyList(l *model.EmailList) *model.EmailList {
	cp := *l
	cp.Emails = append([]string{}, l.Emails...)
	return &cp
}

// ---------------- templates ----------------

type TemplateRepo struct{ s *Store }

func (r *TemplateRepo) Create(_ context.Context, t *model.EmailTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = r.s.stamp()
	cp := *t
	r.s.templates[t.ID] = &cp
	return nil
}

func (r *TemplateRepo) Update(_ context.Context, t *model.EmailTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.templates[t.ID]
	if !ok {
		return appErrors.NewNotFound("template", t.ID)
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = now()
	cp := *t
	r.s.templates[t.ID] = &cp
	return nil
}

func (r *TemplateRepo) GetByID(_ context.Context, id string) (*model.EmailTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.templates[id]
	if !ok {
		return nil, appErrors.NewNotFound("template", id)
	}
	cp := *t
	return &cp, nil
}

func (r *TemplateRepo) List(_ context.Context) ([]model.EmailTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.EmailTemplate, 0, len(r.s.templates))
	for _, t := range r.s.templates {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *TemplateRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[id]; !ok {
		return appErrors.NewNotFound("template", id)
	}
	delete(r.s.templates, id)
	r.s.clearReference(repository.RefTemplate, id)
	return nil
}

// clearReference mirrors ON DELETE SET NULL. Caller holds the write lock.
func (s *Store) clearReference(ref repository.Reference, id string) {
	for _, c := range s.campaigns {
		switch {
		case ref == repository.RefCandidate && c.CandidateID == id:
			c.CandidateID = ""
		case ref == repository.RefEmailList && c.EmailListID == id:
			c.EmailListID = ""
		case ref == repository.RefTemplate && c.TemplateID == id:
			c.TemplateID = ""
		}
	}
}

var (
	_ repository.CandidateRepositoryInterface = (*CandidateRepo)(nil)
	_ repository.EmailListRepositoryInterface = (*EmailListRepo)(nil)
	_ repository.TemplateRepositoryInterface  = (*TemplateRepo)(nil)
)

func sameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
