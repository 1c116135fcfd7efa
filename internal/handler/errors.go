package handler

import (
	"errors"
	"log"
	"net/http"

	"docvault/internal/domain"
)

// writeError переводит ошибки доменного слоя в HTTP-статусы.
// Криптографические ошибки не маскируются под generic 500: клиент
// должен отличать поврежденный документ от недоступного сервиса ключей.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrExpired):
		http.Error(w, "share link expired", http.StatusGone)
	case errors.Is(err, domain.ErrExhaustedUses):
		http.Error(w, "share link uses exhausted", http.StatusGone)
	case errors.Is(err, domain.ErrPasswordRequired):
		http.Error(w, "password required", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrInvalidPassword):
		http.Error(w, "invalid password", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrMetadataMissing):
		http.Error(w, "encryption metadata missing", http.StatusConflict)
	case errors.Is(err, domain.ErrAuthenticationFailed):
		http.Error(w, "ciphertext authentication failed", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrIntegrityViolation):
		http.Error(w, "checksum integrity violation", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrKeyServiceUnavailable):
		// ретраябельно: клиент может повторить с бэкоффом
		http.Error(w, "key service unavailable", http.StatusServiceUnavailable)
	default:
		log.Printf("internal error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
