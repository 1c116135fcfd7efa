package domain

import (
	"time"

	"github.com/google/uuid"
)

// PrincipalType определяет тип принципала, которому выдан грант.
type PrincipalType string

const (
	PrincipalTypeUser  PrincipalType = "user"
	PrincipalTypeGroup PrincipalType = "group"
	PrincipalTypeRole  PrincipalType = "role"
)

func (p PrincipalType) Valid() bool {
	switch p {
	case PrincipalTypeUser, PrincipalTypeGroup, PrincipalTypeRole:
		return true
	default:
		return false
	}
}

// DocumentGrant — грант доступа к документу. Отзывается мягко:
// строка помечается revoked и остается в таблице.
type DocumentGrant struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	DocumentID    uuid.UUID     `json:"document_id" db:"document_id"`
	PrincipalType PrincipalType `json:"principal_type" db:"principal_type"`
	PrincipalID   string        `json:"principal_id" db:"principal_id"`
	AccessLevel   AccessLevel   `json:"access_level" db:"access_level"`
	GrantedBy     string        `json:"granted_by" db:"granted_by"`
	GrantedAt     time.Time     `json:"granted_at" db:"granted_at"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	Revoked       bool          `json:"revoked" db:"revoked"`
	RevokedAt     *time.Time    `json:"revoked_at,omitempty" db:"revoked_at"`
	RevokedBy     *string       `json:"revoked_by,omitempty" db:"revoked_by"`
}

// Active сообщает, действует ли грант в момент now.
func (g *DocumentGrant) Active(now time.Time) bool {
	if g.Revoked {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// FolderGrant — грант доступа к папке. У папочных грантов нет отзыва:
// единственный способ убрать грант — удалить строку.
type FolderGrant struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	FolderID          int64         `json:"folder_id" db:"folder_id"`
	PrincipalType     PrincipalType `json:"principal_type" db:"principal_type"`
	PrincipalID       string        `json:"principal_id" db:"principal_id"`
	AccessLevel       AccessLevel   `json:"access_level" db:"access_level"`
	InheritToChildren bool          `json:"inherit_to_children" db:"inherit_to_children"`
	GrantedBy         string        `json:"granted_by" db:"granted_by"`
	GrantedAt         time.Time     `json:"granted_at" db:"granted_at"`
	ExpiresAt         *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
}

func (g *FolderGrant) Active(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}
