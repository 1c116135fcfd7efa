package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/auth"
	"docvault/internal/domain"
	"docvault/internal/service"
)

const maxUploadSize = 512 << 20 // 512MB

type DocumentHandler struct {
	documentService   *service.DocumentService
	permissionService *service.PermissionService
}

func NewDocumentHandler(documentService *service.DocumentService, permissionService *service.PermissionService) *DocumentHandler {
	return &DocumentHandler{
		documentService:   documentService,
		permissionService: permissionService,
	}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	var folderID *int64
	if v := r.FormValue("folder_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}
		folderID = &id
	}

	doc, err := h.documentService.Upload(r.Context(), &domain.DocumentUpload{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		FolderID: folderID,
		OwnerID:  auth.SubjectID(r.Context()),
		Data:     data,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	download, err := h.documentService.Download(r.Context(), auth.SubjectID(r.Context()), documentID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", download.Document.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Document.Name))
	w.Write(download.Data)
}

func (h *DocumentHandler) UploadVersion(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	doc, err := h.documentService.UploadVersion(r.Context(), auth.SubjectID(r.Context()), documentID, data)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	if err := h.documentService.Delete(r.Context(), auth.SubjectID(r.Context()), documentID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List возвращает документы, доступные субъекту хотя бы на viewer.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	minLevel := domain.AccessLevelViewer
	if v := r.URL.Query().Get("min_level"); v != "" {
		minLevel = domain.AccessLevel(v)
		if !minLevel.Valid() {
			http.Error(w, "Invalid access level", http.StatusBadRequest)
			return
		}
	}

	docs, err := h.permissionService.ListAccessibleDocuments(r.Context(), auth.SubjectID(r.Context()), minLevel)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(docs)
}
