package service

import (
	"context"
	"strings"
	"time"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/model"
	"github.com/unclebandit/emailace-backend/internal/repository"
)

// CatalogService manages the records campaigns are assembled from:
// candidates, email lists and templates.
type CatalogService struct {
	CandidateRepo repository.CandidateRepositoryInterface
	ListRepo      repository.EmailListRepositoryInterface
	TemplateRepo  repository.TemplateRepositoryInterface
	CampaignRepo  repository.CampaignRepositoryInterface
	Now           func() time.Time
}

type CandidateInput struct {
	Name          string `json:"name"`
	DateOfBirth   string `json:"date_of_birth"`
	LanguageLevel string `json:"language_level"`
	Information   string `json:"information"`
	CVURL         string `json:"cv_url"`
	PassportURL   string `json:"passport_url"`
}

func (s *CatalogService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SaveCandidate creates a candidate when id is empty and replaces it otherwise.
func (s *CatalogService) SaveCandidate(ctx context.Context, id string, in CandidateInput) (*model.Candidate, error) {
	const op = "candidate"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, appErrors.NewValidation(op, "name is required")
	}
	if strings.TrimSpace(in.DateOfBirth) == "" {
		return nil, appErrors.NewValidation(op, "date_of_birth is required")
	}
	dob, err := time.Parse("2006-01-02", strings.TrimSpace(in.DateOfBirth))
	if err != nil {
		return nil, appErrors.NewValidation(op, "date_of_birth must be YYYY-MM-DD")
	}
	if dob.After(s.now()) {
		return nil, appErrors.NewValidation(op, "date_of_birth is in the future")
	}
	level := model.LanguageLevel(strings.TrimSpace(in.LanguageLevel))
	if !level.Valid() {
		return nil, appErrors.NewValidation(op, "language_level must be one of Beginner, Intermediate, Advanced, Native")
	}

	c := &model.Candidate{
		ID:            id,
		Name:          name,
		DateOfBirth:   dob,
		LanguageLevel: level,
		Information:   strings.TrimSpace(in.Information),
		CVURL:         strings.TrimSpace(in.CVURL),
		PassportURL:   strings.TrimSpace(in.PassportURL),
	}
	if id == "" {
		err = s.CandidateRepo.Create(ctx, c)
	} else {
		err = s.CandidateRepo.Update(ctx, c)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) GetCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	return s.CandidateRepo.GetByID(ctx, id)
}

func (s *CatalogService) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	return s.CandidateRepo.List(ctx)
}

func (s *CatalogService) DeleteCandidate(ctx context.Context, id string) error {
	if err := s.ensureUnreferenced(ctx, repository.RefCandidate, "candidate", id); err != nil {
		return err
	}
	return s.CandidateRepo.Delete(ctx, id)
}

type TemplateInput struct {
	Name            string `json:"name"`
	SubjectTemplate string `json:"subject_template"`
	BodyTemplate    string `json:"body_template"`
}

func (s *CatalogService) SaveTemplate(ctx context.Context, id string, in TemplateInput) (*model.EmailTemplate, error) {
	const op = "template"
	t := &model.EmailTemplate{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		SubjectTemplate: strings.TrimSpace(in.SubjectTemplate),
		BodyTemplate:    in.BodyTemplate,
	}
	switch {
	case t.Name == "":
		return nil, appErrors.NewValidation(op, "name is required")
	case t.SubjectTemplate == "":
		return nil, appErrors.NewValidation(op, "subject_template is required")
	case strings.TrimSpace(t.BodyTemplate) == "":
		return nil, appErrors.NewValidation(op, "body_template is required")
	}

	var err error
	if id == "" {
		err = s.TemplateRepo.Create(ctx, t)
	} else {
		err = s.TemplateRepo.Update(ctx, t)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *CatalogService) GetTemplate(ctx context.Context, id string) (*model.EmailTemplate, error) {
	return s.TemplateRepo.GetByID(ctx, id)
}

func (s *CatalogService) ListTemplates(ctx context.Context) ([]model.EmailTemplate, error) {
	return s.TemplateRepo.List(ctx)
}

func (s *CatalogService) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.ensureUnreferenced(ctx, repository.RefTemplate, "template", id); err != nil {
		return err
	}
	return s.TemplateRepo.Delete(ctx, id)
}

// ensureUnreferenced refuses deletion while a draft or sending campaign uses the record.
func (s *CatalogService) ensureUnreferenced(ctx context.Context, ref repository.Reference, entity, id string) error {
	n, err := s.CampaignRepo.CountActiveByReference(ctx, ref, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return appErrors.NewValidation(entity, "%s is used by %d active campaign(s)", entity, n)
	}
	return nil
}
