package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/repository"
)

// GrantService управляет грантами доступа. Выдавать и отзывать гранты
// может только владелец ресурса (или привилегированная роль, которая
// резолвится во владельца).
type GrantService struct {
	grants     repository.GrantStore
	permission *PermissionService
}

func NewGrantService(grants repository.GrantStore, permission *PermissionService) *GrantService {
	return &GrantService{
		grants:     grants,
		permission: permission,
	}
}

// validatePrincipal отклоняет гранты на неизвестные роли на записи,
// а не при резолюции.
func validatePrincipal(pt domain.PrincipalType, pid string) error {
	if !pt.Valid() {
		return fmt.Errorf("unknown principal type %q: %w", pt, domain.ErrConflict)
	}
	if pt == domain.PrincipalTypeRole && !domain.Role(pid).Valid() {
		return fmt.Errorf("unknown role %q: %w", pid, domain.ErrConflict)
	}
	if pid == "" {
		return fmt.Errorf("empty principal id: %w", domain.ErrConflict)
	}
	return nil
}

// GrantDocument выдает грант на документ. Повторная выдача тому же
// принципалу обновляет существующий грант.
func (s *GrantService) GrantDocument(
	ctx context.Context,
	actorID string,
	documentID uuid.UUID,
	principalType domain.PrincipalType,
	principalID string,
	level domain.AccessLevel,
	expiresAt *time.Time,
) (*domain.DocumentGrant, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("invalid access level %q: %w", level, domain.ErrConflict)
	}
	if err := validatePrincipal(principalType, principalID); err != nil {
		return nil, err
	}

	ok, err := s.permission.Check(ctx, actorID, documentID.String(), domain.ResourceTypeDocument, domain.AccessLevelOwner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("only the owner may grant access: %w", domain.ErrForbidden)
	}

	grant := &domain.DocumentGrant{
		ID:            uuid.New(),
		DocumentID:    documentID,
		PrincipalType: principalType,
		PrincipalID:   principalID,
		AccessLevel:   level,
		GrantedBy:     actorID,
		ExpiresAt:     expiresAt,
	}

	if err := s.grants.UpsertDocumentGrant(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to upsert grant: %w", err)
	}

	return grant, nil
}

// RevokeDocumentGrant мягко отзывает грант на документ.
func (s *GrantService) RevokeDocumentGrant(ctx context.Context, actorID string, grantID uuid.UUID) error {
	grant, err := s.grants.GetDocumentGrant(ctx, grantID)
	if err != nil {
		return err
	}

	ok, err := s.permission.Check(ctx, actorID, grant.DocumentID.String(), domain.ResourceTypeDocument, domain.AccessLevelOwner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("only the owner may revoke access: %w", domain.ErrForbidden)
	}

	return s.grants.RevokeDocumentGrant(ctx, grantID, actorID)
}

// GrantFolder выдает грант на папку.
func (s *GrantService) GrantFolder(
	ctx context.Context,
	actorID string,
	folderID int64,
	principalType domain.PrincipalType,
	principalID string,
	level domain.AccessLevel,
	inheritToChildren bool,
	expiresAt *time.Time,
) (*domain.FolderGrant, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("invalid access level %q: %w", level, domain.ErrConflict)
	}
	if err := validatePrincipal(principalType, principalID); err != nil {
		return nil, err
	}

	ok, err := s.permission.Check(ctx, actorID, strconv.FormatInt(folderID, 10), domain.ResourceTypeFolder, domain.AccessLevelOwner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("only the owner may grant access: %w", domain.ErrForbidden)
	}

	grant := &domain.FolderGrant{
		ID:                uuid.New(),
		FolderID:          folderID,
		PrincipalType:     principalType,
		PrincipalID:       principalID,
		AccessLevel:       level,
		InheritToChildren: inheritToChildren,
		GrantedBy:         actorID,
		ExpiresAt:         expiresAt,
	}

	if err := s.grants.UpsertFolderGrant(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to upsert folder grant: %w", err)
	}

	return grant, nil
}

// DeleteFolderGrant удаляет папочный грант. Папочные гранты не отзываются
// мягко — строка удаляется.
func (s *GrantService) DeleteFolderGrant(ctx context.Context, actorID string, grantID uuid.UUID) error {
	grant, err := s.grants.GetFolderGrant(ctx, grantID)
	if err != nil {
		return err
	}

	ok, err := s.permission.Check(ctx, actorID, strconv.FormatInt(grant.FolderID, 10), domain.ResourceTypeFolder, domain.AccessLevelOwner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("only the owner may delete a folder grant: %w", domain.ErrForbidden)
	}

	return s.grants.DeleteFolderGrant(ctx, grantID)
}
