package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

// EncryptionStore — хранилище метаданных шифрования и контрольных сумм.
// Метаданные и сумма пишутся одной транзакцией: частичных строк после
// неудачного шифрования быть не должно.
type EncryptionStore interface {
	Save(ctx context.Context, meta *domain.EncryptionMetadata, checksum *domain.Checksum) error
	GetMetadata(ctx context.Context, documentID uuid.UUID) (*domain.EncryptionMetadata, error)
	GetChecksum(ctx context.Context, documentID uuid.UUID) (*domain.Checksum, error)
	SetVerificationStatus(ctx context.Context, documentID uuid.UUID, status domain.VerificationStatus) error
	Delete(ctx context.Context, documentID uuid.UUID) error
}

type EncryptionRepository struct {
	db *sqlx.DB
}

func NewEncryptionRepository(db *sqlx.DB) *EncryptionRepository {
	return &EncryptionRepository{db: db}
}

// Save записывает метаданные и контрольную сумму в одной транзакции.
// Повторное шифрование документа (новая версия) перезаписывает обе
// строки, сохраняя отношение один-к-одному с документом.
func (r *EncryptionRepository) Save(ctx context.Context, meta *domain.EncryptionMetadata, checksum *domain.Checksum) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO encryption_metadata (
            document_id, kms_key_id, wrapped_data_key, iv, auth_tag,
            algorithm, key_version, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
        ON CONFLICT (document_id) DO UPDATE SET
            kms_key_id = EXCLUDED.kms_key_id,
            wrapped_data_key = EXCLUDED.wrapped_data_key,
            iv = EXCLUDED.iv,
            auth_tag = EXCLUDED.auth_tag,
            algorithm = EXCLUDED.algorithm,
            key_version = EXCLUDED.key_version`,
		meta.DocumentID, meta.KMSKeyID, meta.WrappedDataKey, meta.IV,
		meta.AuthTag, meta.Algorithm, meta.KeyVersion)
	if err != nil {
		return fmt.Errorf("failed to save encryption metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO checksums (
            document_id, hash, algorithm, verification_status, created_at
        ) VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
        ON CONFLICT (document_id) DO UPDATE SET
            hash = EXCLUDED.hash,
            algorithm = EXCLUDED.algorithm,
            verification_status = EXCLUDED.verification_status`,
		checksum.DocumentID, checksum.Hash, checksum.Algorithm, checksum.Status)
	if err != nil {
		return fmt.Errorf("failed to save checksum: %w", err)
	}

	return tx.Commit()
}

func (r *EncryptionRepository) GetMetadata(ctx context.Context, documentID uuid.UUID) (*domain.EncryptionMetadata, error) {
	var meta domain.EncryptionMetadata
	err := r.db.GetContext(ctx, &meta,
		`SELECT * FROM encryption_metadata WHERE document_id = $1`, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrMetadataMissing)
		}
		return nil, err
	}
	return &meta, nil
}

func (r *EncryptionRepository) GetChecksum(ctx context.Context, documentID uuid.UUID) (*domain.Checksum, error) {
	var checksum domain.Checksum
	err := r.db.GetContext(ctx, &checksum,
		`SELECT * FROM checksums WHERE document_id = $1`, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s checksum: %w", documentID, domain.ErrMetadataMissing)
		}
		return nil, err
	}
	return &checksum, nil
}

func (r *EncryptionRepository) SetVerificationStatus(ctx context.Context, documentID uuid.UUID, status domain.VerificationStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE checksums SET verification_status = $2 WHERE document_id = $1`,
		documentID, status)
	return err
}

// Delete убирает метаданные и сумму документа. Используется только
// компенсирующей очисткой при неудачной загрузке.
func (r *EncryptionRepository) Delete(ctx context.Context, documentID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM checksums WHERE document_id = $1`, documentID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM encryption_metadata WHERE document_id = $1`, documentID); err != nil {
		return err
	}

	return tx.Commit()
}
