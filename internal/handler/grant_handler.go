package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/auth"
	"docvault/internal/domain"
	"docvault/internal/service"
)

type GrantHandler struct {
	grantService *service.GrantService
}

func NewGrantHandler(grantService *service.GrantService) *GrantHandler {
	return &GrantHandler{grantService: grantService}
}

type createDocumentGrantRequest struct {
	DocumentID    string               `json:"document_id"`
	PrincipalType domain.PrincipalType `json:"principal_type"`
	PrincipalID   string               `json:"principal_id"`
	AccessLevel   domain.AccessLevel   `json:"access_level"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
}

func (h *GrantHandler) CreateDocumentGrant(w http.ResponseWriter, r *http.Request) {
	var req createDocumentGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	grant, err := h.grantService.GrantDocument(
		r.Context(),
		auth.SubjectID(r.Context()),
		documentID,
		req.PrincipalType,
		req.PrincipalID,
		req.AccessLevel,
		req.ExpiresAt,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(grant)
}

func (h *GrantHandler) RevokeDocumentGrant(w http.ResponseWriter, r *http.Request) {
	grantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid grant ID", http.StatusBadRequest)
		return
	}

	if err := h.grantService.RevokeDocumentGrant(r.Context(), auth.SubjectID(r.Context()), grantID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createFolderGrantRequest struct {
	FolderID          int64                `json:"folder_id"`
	PrincipalType     domain.PrincipalType `json:"principal_type"`
	PrincipalID       string               `json:"principal_id"`
	AccessLevel       domain.AccessLevel   `json:"access_level"`
	InheritToChildren *bool                `json:"inherit_to_children,omitempty"`
	ExpiresAt         *time.Time           `json:"expires_at,omitempty"`
}

func (h *GrantHandler) CreateFolderGrant(w http.ResponseWriter, r *http.Request) {
	var req createFolderGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// inherit_to_children по умолчанию true
	inherit := true
	if req.InheritToChildren != nil {
		inherit = *req.InheritToChildren
	}

	grant, err := h.grantService.GrantFolder(
		r.Context(),
		auth.SubjectID(r.Context()),
		req.FolderID,
		req.PrincipalType,
		req.PrincipalID,
		req.AccessLevel,
		inherit,
		req.ExpiresAt,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(grant)
}

func (h *GrantHandler) DeleteFolderGrant(w http.ResponseWriter, r *http.Request) {
	grantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid grant ID", http.StatusBadRequest)
		return
	}

	if err := h.grantService.DeleteFolderGrant(r.Context(), auth.SubjectID(r.Context()), grantID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
