package controller

import (
	"net/http"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/handler"
	"github.com/unclebandit/emailace-backend/internal/service"
)

// AIController exposes draft generation and reply classification directly.
// Either collaborator may be nil when no model is configured.
type AIController struct {
	Drafts  service.DraftGenerator
	Replies service.ReplyClassifier
}

func (c *AIController) GenerateEmail(w http.ResponseWriter, r *http.Request) {
	var body service.DraftRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}
	if c.Drafts == nil {
		writeAIError(w, "Failed to generate email draft",
			appErrors.NewConfiguration("generate-email", "no generative model is configured (GEMINI_API_KEY)", nil))
		return
	}

	draft, err := c.Drafts.GenerateDraft(r.Context(), body)
	if err != nil {
		writeAIError(w, "Failed to generate email draft", err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]string{"emailDraft": draft})
}

func (c *AIController) SummarizeReply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EmailReply string `json:"emailReply"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}
	if c.Replies == nil {
		writeAIError(w, "Failed to summarize email reply",
			appErrors.NewConfiguration("summarize-reply", "no generative model is configured (GEMINI_API_KEY)", nil))
		return
	}

	cls, err := c.Replies.ClassifyReply(r.Context(), body.EmailReply)
	if err != nil {
		writeAIError(w, "Failed to summarize email reply", err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, cls)
}

// writeAIError reports bad input as 400 and everything else under a fixed 500 message.
func writeAIError(w http.ResponseWriter, message string, err error) {
	if appErrors.IsKind(err, appErrors.KindValidation) {
		handler.WriteError(w, err)
		return
	}
	handler.WriteJSON(w, http.StatusInternalServerError, map[string]any{
		"error":   message,
		"kind":    appErrors.KindOf(err),
		"details": appErrors.Message(err),
	})
}
