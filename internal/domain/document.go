package domain

import (
	"time"

	"github.com/google/uuid"
)

type ResourceType string

const (
	ResourceTypeDocument ResourceType = "document"
	ResourceTypeFolder   ResourceType = "folder"
)

type Document struct {
	UUID           uuid.UUID  `json:"uuid" db:"uuid"`
	Name           string     `json:"name" db:"name"`
	MIMEType       string     `json:"mime_type" db:"mime_type"`
	SizeBytes      int64      `json:"size_bytes" db:"size_bytes"`
	FolderID       *int64     `json:"folder_id,omitempty" db:"folder_id"`
	OwnerID        string     `json:"owner_id" db:"owner_id"`
	StorageKey     string     `json:"storage_key" db:"storage_key"`
	CurrentVersion int        `json:"current_version" db:"current_version"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

type DocumentUpload struct {
	Name     string
	MIMEType string
	FolderID *int64
	OwnerID  string
	Data     []byte
}

type DocumentDownload struct {
	Document *Document
	Data     []byte
}
