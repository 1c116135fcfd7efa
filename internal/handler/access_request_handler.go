package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/auth"
	"docvault/internal/domain"
	"docvault/internal/service"
)

type AccessRequestHandler struct {
	requestService *service.AccessRequestService
}

func NewAccessRequestHandler(requestService *service.AccessRequestService) *AccessRequestHandler {
	return &AccessRequestHandler{requestService: requestService}
}

type submitRequestBody struct {
	DocumentID     string             `json:"document_id"`
	RequestedLevel domain.AccessLevel `json:"requested_level"`
	Message        *string            `json:"message,omitempty"`
}

func (h *AccessRequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	documentID, err := uuid.Parse(body.DocumentID)
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	req, err := h.requestService.Submit(
		r.Context(),
		auth.SubjectID(r.Context()),
		documentID,
		body.RequestedLevel,
		body.Message,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(req)
}

type reviewRequestBody struct {
	GrantedLevel domain.AccessLevel `json:"granted_level,omitempty"`
	Response     *string            `json:"response,omitempty"`
}

func (h *AccessRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid request ID", http.StatusBadRequest)
		return
	}

	var body reviewRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req, err := h.requestService.Approve(
		r.Context(),
		auth.SubjectID(r.Context()),
		requestID,
		body.GrantedLevel,
		body.Response,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(req)
}

func (h *AccessRequestHandler) Deny(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid request ID", http.StatusBadRequest)
		return
	}

	var body reviewRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req, err := h.requestService.Deny(
		r.Context(),
		auth.SubjectID(r.Context()),
		requestID,
		body.Response,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(req)
}

func (h *AccessRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requestService.ListPendingFor(r.Context(), auth.SubjectID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(reqs)
}

func (h *AccessRequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requestService.ListMine(r.Context(), auth.SubjectID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(reqs)
}
