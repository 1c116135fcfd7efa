package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"docvault/internal/domain"
	"docvault/internal/repository"
)

type contextKey string

const subjectKey contextKey = "subject"

// SubjectID возвращает ID аутентифицированного субъекта из контекста
// запроса. Пустая строка — middleware не отработал.
func SubjectID(ctx context.Context) string {
	id, _ := ctx.Value(subjectKey).(string)
	return id
}

// FromRequest извлекает ID субъекта из заголовка Authorization.
// Верификация токена делается апстримом; сюда приходит уже проверенный
// bearer с ID субъекта.
func FromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("no authorization header: %w", domain.ErrUnauthorized)
	}

	subjectID := strings.TrimPrefix(header, "Bearer ")
	if subjectID == "" || subjectID == header {
		return "", fmt.Errorf("malformed authorization header: %w", domain.ErrUnauthorized)
	}

	return subjectID, nil
}

// Middleware проверяет, что субъект существует и активен, и кладет его
// ID в контекст запроса.
func Middleware(subjects repository.SubjectDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subjectID, err := FromRequest(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			subject, err := subjects.GetSubject(r.Context(), subjectID)
			if err != nil || !subject.Active {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
