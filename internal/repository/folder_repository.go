package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

// FolderStore — хранилище папок (Resource Store для папок).
type FolderStore interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, id int64) (*domain.Folder, error)
	ListActive(ctx context.Context) ([]domain.Folder, error)
	Move(ctx context.Context, id int64, newParentID *int64) error
	SoftDelete(ctx context.Context, id int64) error
}

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

// Create создает папку. Родитель проверяется до вставки, поэтому дерево
// папок ацикличное по построению; path и level выводятся из родителя.
func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	path := "/"
	level := 0

	if folder.ParentID != nil {
		parent, err := r.GetByID(ctx, *folder.ParentID)
		if err != nil {
			return fmt.Errorf("parent folder: %w", err)
		}
		path = parent.Path
		level = parent.Level + 1
	}

	query := `
        INSERT INTO folders (name, created_by, parent_id, path, level, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		folder.Name,
		folder.CreatedBy,
		folder.ParentID,
		path,
		level,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return err
	}

	folder.Path = fmt.Sprintf("%s%d/", path, folder.ID)
	folder.Level = level

	// Дописываем собственный ID в path после того, как он известен
	_, err = r.db.ExecContext(ctx,
		`UPDATE folders SET path = $1 WHERE id = $2`,
		folder.Path, folder.ID)
	return err
}

func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*domain.Folder, error) {
	query := `SELECT * FROM folders WHERE id = $1 AND deleted_at IS NULL`

	var folder domain.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}

	return &folder, nil
}

func (r *FolderRepository) ListActive(ctx context.Context) ([]domain.Folder, error) {
	query := `SELECT * FROM folders WHERE deleted_at IS NULL ORDER BY path`

	var folders []domain.Folder
	if err := r.db.SelectContext(ctx, &folders, query); err != nil {
		return nil, err
	}

	return folders, nil
}

// Move переносит папку под нового родителя. Перенос под собственного
// потомка отклоняется: это единственное место, где может возникнуть цикл.
func (r *FolderRepository) Move(ctx context.Context, id int64, newParentID *int64) error {
	folder, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	newPath := "/"
	newLevel := 0

	if newParentID != nil {
		if *newParentID == id {
			return fmt.Errorf("folder cannot be its own parent: %w", domain.ErrConflict)
		}

		parent, err := r.GetByID(ctx, *newParentID)
		if err != nil {
			return fmt.Errorf("new parent folder: %w", err)
		}

		// Потомки папки имеют path с ее префиксом
		if strings.HasPrefix(parent.Path, folder.Path) {
			return fmt.Errorf("cannot move folder under its descendant: %w", domain.ErrConflict)
		}

		newPath = parent.Path
		newLevel = parent.Level + 1
	}

	query := `
        UPDATE folders
        SET parent_id = $2, path = $3, level = $4, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND deleted_at IS NULL`

	_, err = r.db.ExecContext(ctx, query, id, newParentID,
		fmt.Sprintf("%s%d/", newPath, id), newLevel)
	return err
}

func (r *FolderRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `
        UPDATE folders
        SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}

	return nil
}
