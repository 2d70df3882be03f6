package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/emailace-backend/internal/ai"
	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/model"
)

type ReplyClassification struct {
	Summary  string              `json:"summary"`
	Category model.ReplyCategory `json:"category"`
}

type ReplyClassifier interface {
	ClassifyReply(ctx context.Context, reply string) (*ReplyClassification, error)
}

// ReplyService sorts a free-text reply into Yes, No or Other.
type ReplyService struct {
	Model   ai.Model
	Prompts *ai.PromptBuilder
	Timeout time.Duration
}

func (s *ReplyService) ClassifyReply(ctx context.Context, reply string) (*ReplyClassification, error) {
	const op = "classify"
	if strings.TrimSpace(reply) == "" {
		return nil, appErrors.NewValidation(op, "emailReply is required")
	}
	if s == nil || s.Model == nil {
		return nil, appErrors.NewConfiguration(op, "generative model is not configured (GEMINI_API_KEY)", nil)
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
		Prompt:      prompts.BuildReplyPrompt(reply),
		Schema:      ai.ReplySchema(),
		Temperature: 0,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.NewClassification(op, "model call timed out", err)
		}
		return nil, appErrors.NewClassification(op, "model call failed", err)
	}

	var out struct {
		Summary  string `json:"summary"`
		Category string `json:"category"`
	}
	if err := ai.Decode(text, &out); err != nil {
		return nil, appErrors.NewClassification(op, "unreadable model response", err)
	}

	category := model.ReplyCategory(strings.TrimSpace(out.Category))
	if !category.Valid() {
		return nil, appErrors.NewClassification(op, fmt.Sprintf("model returned category %q, want Yes, No or Other", out.Category), nil)
	}
	summary := strings.TrimSpace(out.Summary)
	if summary == "" {
		return nil, appErrors.NewClassification(op, "model returned an empty summary", nil)
	}
	return &ReplyClassification{Summary: summary, Category: category}, nil
}
