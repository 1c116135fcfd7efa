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

// DocumentStore — хранилище документов (Resource Store для документов).
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	ListActive(ctx context.Context) ([]domain.Document, error)
	BumpVersion(ctx context.Context, id uuid.UUID, sizeBytes int64, storageKey string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, id uuid.UUID) error
}

type DocumentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	query := `
        INSERT INTO documents (
            uuid, name, mime_type, size_bytes, folder_id, owner_id,
            storage_key, current_version, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
        ) RETURNING created_at, updated_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		doc.UUID,
		doc.Name,
		doc.MIMEType,
		doc.SizeBytes,
		doc.FolderID,
		doc.OwnerID,
		doc.StorageKey,
		doc.CurrentVersion,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

func (r *DocumentRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	query := `SELECT * FROM documents WHERE uuid = $1 AND deleted_at IS NULL`

	var doc domain.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}

	return &doc, nil
}

func (r *DocumentRepository) ListActive(ctx context.Context) ([]domain.Document, error) {
	query := `SELECT * FROM documents WHERE deleted_at IS NULL ORDER BY created_at`

	var docs []domain.Document
	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, err
	}

	return docs, nil
}

// BumpVersion увеличивает счетчик версии документа и переключает его
// на ключ хранения новой версии.
func (r *DocumentRepository) BumpVersion(ctx context.Context, id uuid.UUID, sizeBytes int64, storageKey string) error {
	query := `
        UPDATE documents
        SET current_version = current_version + 1,
            size_bytes = $2,
            storage_key = $3,
            updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, sizeBytes, storageKey)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *DocumentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
        UPDATE documents
        SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// HardDelete удаляет запись документа насовсем. Используется только
// компенсирующей очисткой при неудачном шифровании.
func (r *DocumentRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE uuid = $1`, id)
	return err
}
