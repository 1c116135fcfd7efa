package service

import (
	"context"
	"fmt"
	"strconv"

	"docvault/internal/domain"
	"docvault/internal/repository"
)

// FolderService — операции над деревом папок.
type FolderService struct {
	folders    repository.FolderStore
	permission *PermissionService
}

func NewFolderService(folders repository.FolderStore, permission *PermissionService) *FolderService {
	return &FolderService{
		folders:    folders,
		permission: permission,
	}
}

// Create создает папку. Родитель проверяется на существование до
// привязки, поэтому циклы не возникают; внутри чужого родителя
// требуется editor.
func (s *FolderService) Create(ctx context.Context, creatorID string, name string, parentID *int64) (*domain.Folder, error) {
	if parentID != nil {
		ok, err := s.permission.Check(ctx, creatorID,
			strconv.FormatInt(*parentID, 10), domain.ResourceTypeFolder, domain.AccessLevelEditor)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no editor access to parent folder: %w", domain.ErrForbidden)
		}
	}

	folder := &domain.Folder{
		Name:      name,
		CreatedBy: creatorID,
		ParentID:  parentID,
	}

	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return folder, nil
}

// Move переносит папку. Требует owner на переносимой папке и editor на
// новом родителе; перенос под потомка отклоняет репозиторий.
func (s *FolderService) Move(ctx context.Context, actorID string, folderID int64, newParentID *int64) error {
	ok, err := s.permission.Check(ctx, actorID,
		strconv.FormatInt(folderID, 10), domain.ResourceTypeFolder, domain.AccessLevelOwner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no owner access to folder: %w", domain.ErrForbidden)
	}

	if newParentID != nil {
		ok, err := s.permission.Check(ctx, actorID,
			strconv.FormatInt(*newParentID, 10), domain.ResourceTypeFolder, domain.AccessLevelEditor)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no editor access to new parent: %w", domain.ErrForbidden)
		}
	}

	return s.folders.Move(ctx, folderID, newParentID)
}

// Delete мягко удаляет папку. Требует owner.
func (s *FolderService) Delete(ctx context.Context, actorID string, folderID int64) error {
	ok, err := s.permission.Check(ctx, actorID,
		strconv.FormatInt(folderID, 10), domain.ResourceTypeFolder, domain.AccessLevelOwner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no owner access to folder: %w", domain.ErrForbidden)
	}

	return s.folders.SoftDelete(ctx, folderID)
}
