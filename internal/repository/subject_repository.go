package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

// SubjectDirectory — справочник субъектов: роль, активность и
// членство в группах.
type SubjectDirectory interface {
	GetSubject(ctx context.Context, id string) (*domain.Subject, error)
}

type SubjectRepository struct {
	db *sqlx.DB
}

func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (r *SubjectRepository) GetSubject(ctx context.Context, id string) (*domain.Subject, error) {
	query := `SELECT id, role, active FROM subjects WHERE id = $1`

	var subject domain.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subject %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}

	err := r.db.SelectContext(ctx, &subject.GroupIDs,
		`SELECT group_id FROM group_members WHERE subject_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get group memberships: %w", err)
	}

	return &subject, nil
}
