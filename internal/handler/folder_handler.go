package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docvault/internal/auth"
	"docvault/internal/domain"
	"docvault/internal/service"
)

type FolderHandler struct {
	folderService     *service.FolderService
	permissionService *service.PermissionService
}

func NewFolderHandler(folderService *service.FolderService, permissionService *service.PermissionService) *FolderHandler {
	return &FolderHandler{
		folderService:     folderService,
		permissionService: permissionService,
	}
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Folder name is required", http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.Create(r.Context(), auth.SubjectID(r.Context()), req.Name, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(folder)
}

type moveFolderRequest struct {
	NewParentID *int64 `json:"new_parent_id,omitempty"`
}

func (h *FolderHandler) Move(w http.ResponseWriter, r *http.Request) {
	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req moveFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.folderService.Move(r.Context(), auth.SubjectID(r.Context()), folderID, req.NewParentID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	if err := h.folderService.Delete(r.Context(), auth.SubjectID(r.Context()), folderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List возвращает папки, доступные субъекту хотя бы на viewer.
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	minLevel := domain.AccessLevelViewer
	if v := r.URL.Query().Get("min_level"); v != "" {
		minLevel = domain.AccessLevel(v)
		if !minLevel.Valid() {
			http.Error(w, "Invalid access level", http.StatusBadRequest)
			return
		}
	}

	folders, err := h.permissionService.ListAccessibleFolders(r.Context(), auth.SubjectID(r.Context()), minLevel)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(folders)
}
