package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/auth"
	"docvault/internal/domain"
	"docvault/internal/service"
)

type ShareLinkHandler struct {
	shareService    *service.ShareLinkService
	documentService *service.DocumentService
}

func NewShareLinkHandler(shareService *service.ShareLinkService, documentService *service.DocumentService) *ShareLinkHandler {
	return &ShareLinkHandler{
		shareService:    shareService,
		documentService: documentService,
	}
}

type issueShareLinkRequest struct {
	DocumentID    string             `json:"document_id"`
	AccessLevel   domain.AccessLevel `json:"access_level"`
	Password      *string            `json:"password,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	MaxUses       *int               `json:"max_uses,omitempty"`
	AllowDownload bool               `json:"allow_download"`
}

func (h *ShareLinkHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueShareLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	link, err := h.shareService.Issue(
		r.Context(),
		auth.SubjectID(r.Context()),
		documentID,
		req.AccessLevel,
		req.Password,
		req.ExpiresAt,
		req.MaxUses,
		req.AllowDownload,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(link)
}

type redeemRequest struct {
	Password *string `json:"password,omitempty"`
}

// Redeem обменивает токен на метаданные документа. Анонимная операция:
// auth middleware на этом маршруте не стоит.
func (h *ShareLinkHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req redeemRequest
	if r.Body != nil {
		// Пустое тело допустимо
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	doc, allowDownload, err := h.shareService.Redeem(r.Context(), token, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	response := struct {
		Document      *domain.Document `json:"document"`
		AllowDownload bool             `json:"allow_download"`
	}{
		Document:      doc,
		AllowDownload: allowDownload,
	}

	json.NewEncoder(w).Encode(response)
}

// RedeemContent отдает содержимое документа по ссылке, если выдача
// разрешает скачивание.
func (h *ShareLinkHandler) RedeemContent(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req redeemRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	doc, allowDownload, err := h.shareService.Redeem(r.Context(), token, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if !allowDownload {
		http.Error(w, "download not allowed for this link", http.StatusForbidden)
		return
	}

	download, err := h.documentService.DownloadShared(r.Context(), doc.UUID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", download.Document.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Document.Name))
	w.Write(download.Data)
}

func (h *ShareLinkHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.shareService.Deactivate(r.Context(), auth.SubjectID(r.Context()), token); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
