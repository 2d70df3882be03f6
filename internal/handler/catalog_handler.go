// internal/handler/catalog_handler.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/emailace-backend/internal/service"
)

// CatalogHandler serves CRUD for candidates, email lists and templates.
type CatalogHandler struct {
	Service *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{Service: svc}
}

// ---------- candidates ----------

func (h *CatalogHandler) ListCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.Service.ListCandidates(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": candidates})
}

func (h *CatalogHandler) GetCandidateHandler(w http.ResponseWriter, r *http.Request) {
	candidate, err := h.Service.GetCandidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, candidate)
}

func (h *CatalogHandler) CreateCandidateHandler(w http.ResponseWriter, r *http.Request) {
	h.saveCandidate(w, r, "", http.StatusCreated)
}

func (h *CatalogHandler) UpdateCandidateHandler(w http.ResponseWriter, r *http.Request) {
	h.saveCandidate(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *CatalogHandler) saveCandidate(w http.ResponseWriter, r *http.Request, id string, status int) {
	var payload service.CandidateInput
	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, err)
		return
	}
	candidate, err := h.Service.SaveCandidate(r.Context(), id, payload)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, status, candidate)
}

func (h *CatalogHandler) DeleteCandidateHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCandidate(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- email lists ----------

func (h *CatalogHandler) ListEmailListsHandler(w http.ResponseWriter, r *http.Request) {
	lists, err := h.Service.ListEmailLists(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": lists})
}

func (h *CatalogHandler) GetEmailListHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.GetEmailList(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) CreateEmailListHandler(w http.ResponseWriter, r *http.Request) {
	h.saveEmailList(w, r, "", http.StatusCreated)
}

func (h *CatalogHandler) UpdateEmailListHandler(w http.ResponseWriter, r *http.Request) {
	h.saveEmailList(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *CatalogHandler) saveEmailList(w http.ResponseWriter, r *http.Request, id string, status int) {
	var payload service.EmailListInput
	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, err)
		return
	}
	list, err := h.Service.SaveEmailList(r.Context(), id, payload)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, status, list)
}

func (h *CatalogHandler) DeleteEmailListHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteEmailList(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- templates ----------

func (h *CatalogHandler) ListTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Service.ListTemplates(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": templates})
}

func (h *CatalogHandler) GetTemplateHandler(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.Service.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tmpl)
}

func (h *CatalogHandler) CreateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	h.saveTemplate(w, r, "", http.StatusCreated)
}

func (h *CatalogHandler) UpdateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	h.saveTemplate(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *CatalogHandler) saveTemplate(w http.ResponseWriter, r *http.Request, id string, status int) {
	var payload service.TemplateInput
	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, err)
		return
	}
	tmpl, err := h.Service.SaveTemplate(r.Context(), id, payload)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, status, tmpl)
}

func (h *CatalogHandler) DeleteTemplateHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
