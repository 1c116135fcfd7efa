package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

// GrantStore — хранилище грантов. Гранты на документы отзываются мягко,
// гранты на папки удаляются насовсем; это наблюдаемая асимметрия,
// сохраненная намеренно.
type GrantStore interface {
	UpsertDocumentGrant(ctx context.Context, grant *domain.DocumentGrant) error
	RevokeDocumentGrant(ctx context.Context, grantID uuid.UUID, revokedBy string) error
	GetDocumentGrant(ctx context.Context, grantID uuid.UUID) (*domain.DocumentGrant, error)
	ActiveDocumentGrants(ctx context.Context, documentID uuid.UUID) ([]domain.DocumentGrant, error)

	UpsertFolderGrant(ctx context.Context, grant *domain.FolderGrant) error
	DeleteFolderGrant(ctx context.Context, grantID uuid.UUID) error
	GetFolderGrant(ctx context.Context, grantID uuid.UUID) (*domain.FolderGrant, error)
	ActiveFolderGrants(ctx context.Context, folderID int64) ([]domain.FolderGrant, error)
}

type GrantRepository struct {
	db *sqlx.DB
}

func NewGrantRepository(db *sqlx.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// UpsertDocumentGrant создает грант либо обновляет существующий по ключу
// (document_id, principal_type, principal_id). Повторная выдача тому же
// принципалу перезаписывает уровень и снимает отзыв, не плодя дубликатов.
func (r *GrantRepository) UpsertDocumentGrant(ctx context.Context, grant *domain.DocumentGrant) error {
	query := `
        INSERT INTO document_grants (
            id, document_id, principal_type, principal_id, access_level,
            granted_by, granted_at, expires_at, revoked
        ) VALUES (
            $1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, $7, FALSE
        )
        ON CONFLICT (document_id, principal_type, principal_id) DO UPDATE SET
            access_level = EXCLUDED.access_level,
            granted_by = EXCLUDED.granted_by,
            granted_at = CURRENT_TIMESTAMP,
            expires_at = EXCLUDED.expires_at,
            revoked = FALSE,
            revoked_at = NULL,
            revoked_by = NULL
        RETURNING id, granted_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		grant.ID,
		grant.DocumentID,
		grant.PrincipalType,
		grant.PrincipalID,
		grant.AccessLevel,
		grant.GrantedBy,
		grant.ExpiresAt,
	).Scan(&grant.ID, &grant.GrantedAt)
}

func (r *GrantRepository) RevokeDocumentGrant(ctx context.Context, grantID uuid.UUID, revokedBy string) error {
	query := `
        UPDATE document_grants
        SET revoked = TRUE, revoked_at = CURRENT_TIMESTAMP, revoked_by = $2
        WHERE id = $1 AND revoked = FALSE`

	result, err := r.db.ExecContext(ctx, query, grantID, revokedBy)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("grant %s: %w", grantID, domain.ErrNotFound)
	}

	return nil
}

func (r *GrantRepository) GetDocumentGrant(ctx context.Context, grantID uuid.UUID) (*domain.DocumentGrant, error) {
	var grant domain.DocumentGrant
	err := r.db.GetContext(ctx, &grant,
		`SELECT * FROM document_grants WHERE id = $1`, grantID)
	if err != nil {
		return nil, fmt.Errorf("grant %s: %w", grantID, domain.ErrNotFound)
	}
	return &grant, nil
}

// ActiveDocumentGrants возвращает действующие гранты документа:
// не отозванные и не истекшие.
func (r *GrantRepository) ActiveDocumentGrants(ctx context.Context, documentID uuid.UUID) ([]domain.DocumentGrant, error) {
	query := `
        SELECT * FROM document_grants
        WHERE document_id = $1
        AND revoked = FALSE
        AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)`

	var grants []domain.DocumentGrant
	if err := r.db.SelectContext(ctx, &grants, query, documentID); err != nil {
		return nil, err
	}

	return grants, nil
}

func (r *GrantRepository) UpsertFolderGrant(ctx context.Context, grant *domain.FolderGrant) error {
	query := `
        INSERT INTO folder_grants (
            id, folder_id, principal_type, principal_id, access_level,
            inherit_to_children, granted_by, granted_at, expires_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, $8
        )
        ON CONFLICT (folder_id, principal_type, principal_id) DO UPDATE SET
            access_level = EXCLUDED.access_level,
            inherit_to_children = EXCLUDED.inherit_to_children,
            granted_by = EXCLUDED.granted_by,
            granted_at = CURRENT_TIMESTAMP,
            expires_at = EXCLUDED.expires_at
        RETURNING id, granted_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		grant.ID,
		grant.FolderID,
		grant.PrincipalType,
		grant.PrincipalID,
		grant.AccessLevel,
		grant.InheritToChildren,
		grant.GrantedBy,
		grant.ExpiresAt,
	).Scan(&grant.ID, &grant.GrantedAt)
}

// DeleteFolderGrant удаляет папочный грант насовсем: у folder_grants
// нет колонки revoked.
func (r *GrantRepository) DeleteFolderGrant(ctx context.Context, grantID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM folder_grants WHERE id = $1`, grantID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("folder grant %s: %w", grantID, domain.ErrNotFound)
	}

	return nil
}

func (r *GrantRepository) GetFolderGrant(ctx context.Context, grantID uuid.UUID) (*domain.FolderGrant, error) {
	var grant domain.FolderGrant
	err := r.db.GetContext(ctx, &grant,
		`SELECT * FROM folder_grants WHERE id = $1`, grantID)
	if err != nil {
		return nil, fmt.Errorf("folder grant %s: %w", grantID, domain.ErrNotFound)
	}
	return &grant, nil
}

func (r *GrantRepository) ActiveFolderGrants(ctx context.Context, folderID int64) ([]domain.FolderGrant, error) {
	query := `
        SELECT * FROM folder_grants
        WHERE folder_id = $1
        AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)`

	var grants []domain.FolderGrant
	if err := r.db.SelectContext(ctx, &grants, query, folderID); err != nil {
		return nil, err
	}

	return grants, nil
}
