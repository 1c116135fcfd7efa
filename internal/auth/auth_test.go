package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"docvault/internal/domain"
)

type stubDirectory struct {
	subjects map[string]*domain.Subject
}

func (s *stubDirectory) GetSubject(_ context.Context, id string) (*domain.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, fmt.Errorf("subject %s: %w", id, domain.ErrNotFound)
	}
	return subject, nil
}

func TestMiddleware(t *testing.T) {
	dir := &stubDirectory{subjects: map[string]*domain.Subject{
		"alice": {ID: "alice", Role: domain.RoleUser, Active: true},
		"bob":   {ID: "bob", Role: domain.RoleUser, Active: false},
	}}

	var gotSubject string
	handler := Middleware(dir)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = SubjectID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantID     string
	}{
		{"active subject", "Bearer alice", http.StatusOK, "alice"},
		{"inactive subject", "Bearer bob", http.StatusUnauthorized, ""},
		{"unknown subject", "Bearer ghost", http.StatusUnauthorized, ""},
		{"no header", "", http.StatusUnauthorized, ""},
		{"malformed header", "alice", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantID, gotSubject)
		})
	}
}
