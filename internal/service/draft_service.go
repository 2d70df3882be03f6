package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/emailace-backend/internal/ai"
	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
)

// DraftRequest is the input of the draft generator, also used as the HTTP body.
type DraftRequest struct {
	CandidateName        string `json:"candidateName"`
	CandidateInformation string `json:"candidateInformation"`
	JobDescription       string `json:"jobDescription"`
	EmailTemplate        string `json:"emailTemplate"`
}

type DraftGenerator interface {
	GenerateDraft(ctx context.Context, req DraftRequest) (string, error)
}

// DraftService produces a personalized email body with a generative model.
type DraftService struct {
	Model       ai.Model
	Prompts     *ai.PromptBuilder
	Timeout     time.Duration
	Temperature float32
}

func (s *DraftService) GenerateDraft(ctx context.Context, req DraftRequest) (string, error) {
	const op = "draft"
	if s == nil || s.Model == nil {
		return "", appErrors.NewConfiguration(op, "generative model is not configured (GEMINI_API_KEY)", nil)
	}
	if strings.TrimSpace(req.CandidateName) == "" || strings.TrimSpace(req.EmailTemplate) == "" {
		return "", appErrors.NewValidation(op, "candidateName and emailTemplate are required")
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	prompts := s.Prompts
	if prompts == nil {
		prompts = ai.NewPromptBuilder()
	}
	text, err := s.Model.GenerateJSON(ctx, ai.Request{
		Prompt:      prompts.BuildDraftPrompt(req.CandidateName, req.CandidateInformation, req.JobDescription, req.EmailTemplate),
		Schema:      ai.DraftSchema(),
		Temperature: s.Temperature,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("draft generation timed out after %s: %w", s.Timeout, err)
		}
		return "", fmt.Errorf("draft generation failed: %w", err)
	}

	var out struct {
		EmailDraft string `json:"emailDraft"`
	}
	if err := ai.Decode(text, &out); err != nil {
		return "", fmt.Errorf("draft generation failed: %w", err)
	}
	draft := strings.TrimSpace(out.EmailDraft)
	if draft == "" {
		return "", fmt.Errorf("draft generation returned an empty draft")
	}
	return draft, nil
}
