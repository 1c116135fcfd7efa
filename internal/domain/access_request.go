package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus — состояние запроса на доступ. Approved и denied
// терминальны: повторный переход невозможен.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDenied   RequestStatus = "denied"
)

type AccessRequest struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	DocumentID      uuid.UUID     `json:"document_id" db:"document_id"`
	RequesterID     string        `json:"requester_id" db:"requester_id"`
	RequestedLevel  AccessLevel   `json:"requested_level" db:"requested_level"`
	Message         *string       `json:"message,omitempty" db:"message"`
	Status          RequestStatus `json:"status" db:"status"`
	ReviewedBy      *string       `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt      *time.Time    `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ResponseMessage *string       `json:"response_message,omitempty" db:"response_message"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}
