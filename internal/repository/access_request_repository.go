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

// AccessRequestStore — хранилище запросов на доступ.
type AccessRequestStore interface {
	Create(ctx context.Context, req *domain.AccessRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AccessRequest, error)
	HasPending(ctx context.Context, documentID uuid.UUID, requesterID string) (bool, error)
	ListPending(ctx context.Context) ([]domain.AccessRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]domain.AccessRequest, error)
	Approve(ctx context.Context, req *domain.AccessRequest, grant *domain.DocumentGrant) error
	Deny(ctx context.Context, req *domain.AccessRequest) error
}

type AccessRequestRepository struct {
	db *sqlx.DB
}

func NewAccessRequestRepository(db *sqlx.DB) *AccessRequestRepository {
	return &AccessRequestRepository{db: db}
}

func (r *AccessRequestRepository) Create(ctx context.Context, req *domain.AccessRequest) error {
	query := `
        INSERT INTO access_requests (
            id, document_id, requester_id, requested_level, message, status, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP
        ) RETURNING created_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		req.ID,
		req.DocumentID,
		req.RequesterID,
		req.RequestedLevel,
		req.Message,
		req.Status,
	).Scan(&req.CreatedAt)
}

func (r *AccessRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AccessRequest, error) {
	var req domain.AccessRequest
	err := r.db.GetContext(ctx, &req,
		`SELECT * FROM access_requests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("access request %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &req, nil
}

func (r *AccessRequestRepository) HasPending(ctx context.Context, documentID uuid.UUID, requesterID string) (bool, error) {
	query := `
        SELECT EXISTS(
            SELECT 1 FROM access_requests
            WHERE document_id = $1 AND requester_id = $2 AND status = 'pending'
        )`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, documentID, requesterID); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *AccessRequestRepository) ListPending(ctx context.Context) ([]domain.AccessRequest, error) {
	query := `SELECT * FROM access_requests WHERE status = 'pending' ORDER BY created_at`

	var reqs []domain.AccessRequest
	if err := r.db.SelectContext(ctx, &reqs, query); err != nil {
		return nil, err
	}

	return reqs, nil
}

func (r *AccessRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.AccessRequest, error) {
	query := `SELECT * FROM access_requests WHERE requester_id = $1 ORDER BY created_at DESC`

	var reqs []domain.AccessRequest
	if err := r.db.SelectContext(ctx, &reqs, query, requesterID); err != nil {
		return nil, err
	}

	return reqs, nil
}

// Approve переводит запрос в approved и апсертит грант в одной
// транзакции: читатель не может увидеть approved без видимого гранта.
// Предикат status = 'pending' защищает от конкурирующего ревью.
func (r *AccessRequestRepository) Approve(ctx context.Context, req *domain.AccessRequest, grant *domain.DocumentGrant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
        UPDATE access_requests
        SET status = 'approved', reviewed_by = $2, reviewed_at = $3, response_message = $4
        WHERE id = $1 AND status = 'pending'`,
		req.ID, req.ReviewedBy, req.ReviewedAt, req.ResponseMessage)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("access request %s is not pending: %w", req.ID, domain.ErrInvalidState)
	}

	_, err = tx.ExecContext(ctx, `
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
            revoked_by = NULL`,
		grant.ID, grant.DocumentID, grant.PrincipalType, grant.PrincipalID,
		grant.AccessLevel, grant.GrantedBy, grant.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to upsert grant: %w", err)
	}

	return tx.Commit()
}

func (r *AccessRequestRepository) Deny(ctx context.Context, req *domain.AccessRequest) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE access_requests
        SET status = 'denied', reviewed_by = $2, reviewed_at = $3, response_message = $4
        WHERE id = $1 AND status = 'pending'`,
		req.ID, req.ReviewedBy, req.ReviewedAt, req.ResponseMessage)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("access request %s is not pending: %w", req.ID, domain.ErrInvalidState)
	}

	return nil
}
