package domain

import (
	"time"

	"github.com/google/uuid"
)

// ShareLink — анонимная ссылка на документ с ограниченным уровнем
// доступа. Валидна пока active, не истек срок и не исчерпан лимит
// использований.
type ShareLink struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	DocumentID    uuid.UUID   `json:"document_id" db:"document_id"`
	Token         string      `json:"token" db:"token"`
	PasswordHash  *string     `json:"-" db:"password_hash"`
	AccessLevel   AccessLevel `json:"access_level" db:"access_level"`
	MaxUses       *int        `json:"max_uses,omitempty" db:"max_uses"`
	CurrentUses   int         `json:"current_uses" db:"current_uses"`
	AllowDownload bool        `json:"allow_download" db:"allow_download"`
	ExpiresAt     time.Time   `json:"expires_at" db:"expires_at"`
	Active        bool        `json:"active" db:"active"`
	CreatedBy     string      `json:"created_by" db:"created_by"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}
