// internal/controller/campaign_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/handler"
	"github.com/unclebandit/emailace-backend/internal/service"
)

// CampaignController handles the write side of campaigns: lifecycle, dispatch and replies.
type CampaignController struct {
	CampaignService *service.CampaignService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), body)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}

	campaign, err := c.CampaignService.UpdateCampaign(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := c.CampaignService.DeleteCampaign(r.Context(), chi.URLParam(r, "id")); err != nil {
		handler.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PersonalizedPreview renders the campaign template for one recipient.
func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RecipientEmail string `json:"recipient_email"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}

	rendered, err := c.CampaignService.RenderPreview(r.Context(), chi.URLParam(r, "id"), body.RecipientEmail)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"subject":         rendered.Subject,
		"body":            rendered.Body,
		"recipient_email": body.RecipientEmail,
	})
}

// SendCampaign dispatches the campaign inline, or hands it to the queue when async is set.
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Personalize bool `json:"personalize"`
		Async       bool `json:"async"`
	}
	// the body is optional
	if r.ContentLength != 0 {
		if err := handler.DecodeJSON(r, &body); err != nil {
			handler.WriteError(w, err)
			return
		}
	}
	opts := service.SendOptions{Personalize: body.Personalize}

	if body.Async {
		if err := c.CampaignService.EnqueueSend(r.Context(), id, opts); err != nil {
			handler.WriteError(w, err)
			return
		}
		handler.WriteJSON(w, http.StatusAccepted, map[string]any{
			"campaign_id": id,
			"status":      "queued",
		})
		return
	}

	result, err := c.CampaignService.Send(r.Context(), id, opts)
	if err != nil {
		if result == nil {
			handler.WriteError(w, err)
			return
		}
		// aborted mid-batch: the recipient logs are still useful to the caller
		handler.WriteJSON(w, handler.StatusFor(err), map[string]any{
			"error":   appErrors.Message(err),
			"kind":    appErrors.KindOf(err),
			"details": err.Error(),
			"result":  result,
		})
		return
	}

	handler.WriteJSON(w, http.StatusOK, result)
}

// RecordReply classifies a recipient's reply and stores it on the recipient log.
func (c *CampaignController) RecordReply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RecipientEmail string `json:"recipient_email"`
		Reply          string `json:"reply"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}

	rl, err := c.CampaignService.RecordReply(r.Context(), chi.URLParam(r, "id"), body.RecipientEmail, body.Reply)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, rl)
}

// DispatchEmail sends prepared content to one recipient of a campaign.
func (c *CampaignController) DispatchEmail(w http.ResponseWriter, r *http.Request) {
	var body service.DispatchRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}

	messageID, err := c.CampaignService.DispatchOne(r.Context(), body)
	if err != nil {
		switch appErrors.KindOf(err) {
		case appErrors.KindValidation, appErrors.KindNotFound:
			handler.WriteError(w, err)
		default:
			handler.WriteJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "Failed to send email",
				"kind":    appErrors.KindOf(err),
				"details": appErrors.Message(err),
			})
		}
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"messageId": messageID,
	})
}
