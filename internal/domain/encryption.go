package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EncryptionAlgorithmAESGCM = "AES-256-GCM"
	ChecksumAlgorithmSHA256   = "SHA-256"
)

// VerificationStatus — статус проверки контрольной суммы документа.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusFailed   VerificationStatus = "failed"
)

// EncryptionMetadata хранит обернутый ключ данных и параметры
// AES-GCM для одного документа. Создается один раз при первом
// шифровании. KeyVersion зарезервирован под ротацию ключей.
type EncryptionMetadata struct {
	DocumentID     uuid.UUID `json:"document_id" db:"document_id"`
	KMSKeyID       string    `json:"kms_key_id" db:"kms_key_id"`
	WrappedDataKey []byte    `json:"-" db:"wrapped_data_key"`
	IV             []byte    `json:"-" db:"iv"`
	AuthTag        []byte    `json:"-" db:"auth_tag"`
	Algorithm      string    `json:"algorithm" db:"algorithm"`
	KeyVersion     int       `json:"key_version" db:"key_version"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Checksum хранит SHA-256 открытого текста документа и статус
// последней проверки целостности.
type Checksum struct {
	DocumentID uuid.UUID          `json:"document_id" db:"document_id"`
	Hash       string             `json:"hash" db:"hash"`
	Algorithm  string             `json:"algorithm" db:"algorithm"`
	Status     VerificationStatus `json:"verification_status" db:"verification_status"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
}
