package service

import (
	"context"
	"strings"

	"github.com/unclebandit/emailace-backend/internal/email"
	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/model"
	"github.com/unclebandit/emailace-backend/internal/repository"
)

type EmailListInput struct {
	Name   string   `json:"name"`
	Emails []string `json:"emails"`
}

// ParseAddresses splits entries on commas, semicolons and newlines, trims them
// and drops case-insensitive duplicates while keeping the first spelling and order.
func ParseAddresses(entries []string) (valid []string, invalid []string) {
	seen := map[string]bool{}
	valid = []string{}
	for _, entry := range entries {
		for _, addr := range strings.FieldsFunc(entry, func(r rune) bool {
			return r == ',' || r == ';' || r == '\n' || r == '\r'
		}) {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			if !email.ValidAddress(addr) {
				invalid = append(invalid, addr)
				continue
			}
			key := strings.ToLower(addr)
			if seen[key] {
				continue
			}
			seen[key] = true
			valid = append(valid, addr)
		}
	}
	return valid, invalid
}

// SaveEmailList replaces the whole address set of a list.
func (s *CatalogService) SaveEmailList(ctx context.Context, id string, in EmailListInput) (*model.EmailList, error) {
	const op = "email list"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, appErrors.NewValidation(op, "name is required")
	}
	valid, invalid := ParseAddresses(in.Emails)
	if len(invalid) > 0 {
		return nil, appErrors.NewValidation(op, "invalid email address(es): %s", strings.Join(invalid, ", "))
	}
	if len(valid) == 0 {
		return nil, appErrors.NewValidation(op, "at least one email address is required")
	}

	l := &model.EmailList{ID: id, Name: name, Emails: valid}
	var err error
	if id == "" {
		err = s.ListRepo.Create(ctx, l)
	} else {
		err = s.ListRepo.Update(ctx, l)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *CatalogService) GetEmailList(ctx context.Context, id string) (*model.EmailList, error) {
	return s.ListRepo.GetByID(ctx, id)
}

func (s *CatalogService) ListEmailLists(ctx context.Context) ([]model.EmailList, error) {
	return s.ListRepo.List(ctx)
}

func (s *CatalogService) DeleteEmailList(ctx context.Context, id string) error {
	if err := s.ensureUnreferenced(ctx, repository.RefEmailList, "email list", id); err != nil {
		return err
	}
	return s.ListRepo.Delete(ctx, id)
}
