package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

// ShareLinkStore — хранилище анонимных ссылок на документы.
type ShareLinkStore interface {
	Create(ctx context.Context, link *domain.ShareLink) error
	GetByToken(ctx context.Context, token string) (*domain.ShareLink, error)
	Consume(ctx context.Context, token string) (*domain.ShareLink, error)
	Deactivate(ctx context.Context, token string) error
}

type ShareLinkRepository struct {
	db *sqlx.DB
}

func NewShareLinkRepository(db *sqlx.DB) *ShareLinkRepository {
	return &ShareLinkRepository{db: db}
}

func (r *ShareLinkRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	query := `
        INSERT INTO share_links (
            id, document_id, token, password_hash, access_level, max_uses,
            current_uses, allow_download, expires_at, active, created_by, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, 0, $7, $8, TRUE, $9, CURRENT_TIMESTAMP
        ) RETURNING created_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		link.ID,
		link.DocumentID,
		link.Token,
		link.PasswordHash,
		link.AccessLevel,
		link.MaxUses,
		link.AllowDownload,
		link.ExpiresAt,
		link.CreatedBy,
	).Scan(&link.CreatedAt)
}

func (r *ShareLinkRepository) GetByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	var link domain.ShareLink
	err := r.db.GetContext(ctx, &link,
		`SELECT * FROM share_links WHERE token = $1`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("share link: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return &link, nil
}

// Consume атомарно проверяет валидность ссылки и увеличивает счетчик
// использований. Проверка и инкремент — один conditional UPDATE, поэтому
// две конкурентные выдачи не могут обе пройти при одном оставшемся
// использовании.
func (r *ShareLinkRepository) Consume(ctx context.Context, token string) (*domain.ShareLink, error) {
	query := `
        UPDATE share_links
        SET current_uses = current_uses + 1
        WHERE token = $1
        AND active = TRUE
        AND expires_at > CURRENT_TIMESTAMP
        AND (max_uses IS NULL OR current_uses < max_uses)
        RETURNING *`

	var link domain.ShareLink
	err := r.db.GetContext(ctx, &link, query, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("share link: %w", domain.ErrExhaustedUses)
		}
		return nil, err
	}

	return &link, nil
}

// Deactivate выключает ссылку. Идемпотентна: повторный вызов не ошибка.
func (r *ShareLinkRepository) Deactivate(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE share_links SET active = FALSE WHERE token = $1`, token)
	return err
}
