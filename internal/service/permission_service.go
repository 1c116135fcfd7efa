package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/repository"
)

// maxInheritanceDepth ограничивает рекурсию по цепочке родительских
// папок. Дерево ацикличное по построению, лимит страхует от порчи данных.
const maxInheritanceDepth = 32

// PermissionService вычисляет эффективный уровень доступа субъекта
// к документу или папке.
type PermissionService struct {
	subjects  repository.SubjectDirectory
	documents repository.DocumentStore
	folders   repository.FolderStore
	grants    repository.GrantStore
}

// NewPermissionService создает новый экземпляр PermissionService
func NewPermissionService(
	subjects repository.SubjectDirectory,
	documents repository.DocumentStore,
	folders repository.FolderStore,
	grants repository.GrantStore,
) *PermissionService {
	return &PermissionService{
		subjects:  subjects,
		documents: documents,
		folders:   folders,
		grants:    grants,
	}
}

// Resolve возвращает эффективный уровень доступа субъекта к ресурсу.
// AccessLevelNone означает отсутствие доступа. Для документов resourceID —
// UUID, для папок — числовой ID (как в остальном API).
func (s *PermissionService) Resolve(
	ctx context.Context,
	subjectID string,
	resourceID string,
	resourceType domain.ResourceType,
) (domain.AccessLevel, error) {
	subject, err := s.subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return domain.AccessLevelNone, fmt.Errorf("failed to get subject: %w", err)
	}

	// Неактивный субъект не имеет доступа ни к чему,
	// гранты даже не читаются
	if !subject.Active {
		return domain.AccessLevelNone, nil
	}

	switch resourceType {
	case domain.ResourceTypeDocument:
		docUUID, err := uuid.Parse(resourceID)
		if err != nil {
			return domain.AccessLevelNone, fmt.Errorf("invalid document UUID: %w", err)
		}
		return s.resolveDocument(ctx, subject, docUUID)

	case domain.ResourceTypeFolder:
		folderID, err := strconv.ParseInt(resourceID, 10, 64)
		if err != nil {
			return domain.AccessLevelNone, fmt.Errorf("invalid folder ID: %w", err)
		}
		return s.resolveFolder(ctx, subject, folderID, 0)

	default:
		return domain.AccessLevelNone, fmt.Errorf("unsupported resource type: %s", resourceType)
	}
}

// Check проверяет, что субъект имеет на ресурсе хотя бы required.
func (s *PermissionService) Check(
	ctx context.Context,
	subjectID string,
	resourceID string,
	resourceType domain.ResourceType,
	required domain.AccessLevel,
) (bool, error) {
	level, err := s.Resolve(ctx, subjectID, resourceID, resourceType)
	if err != nil {
		return false, err
	}
	return level.AtLeast(required), nil
}

func (s *PermissionService) resolveDocument(
	ctx context.Context,
	subject *domain.Subject,
	documentID uuid.UUID,
) (domain.AccessLevel, error) {
	doc, err := s.documents.GetByUUID(ctx, documentID)
	if err != nil {
		return domain.AccessLevelNone, err
	}

	// Владение абсолютно: никакой грант его не разбавляет
	if doc.OwnerID == subject.ID {
		return domain.AccessLevelOwner, nil
	}
	if subject.Role.Privileged() {
		return domain.AccessLevelOwner, nil
	}

	grants, err := s.grants.ActiveDocumentGrants(ctx, documentID)
	if err != nil {
		return domain.AccessLevelNone, fmt.Errorf("failed to get document grants: %w", err)
	}

	now := time.Now()
	levels := make([]domain.AccessLevel, 0, len(grants)+1)
	for _, g := range grants {
		if !g.Active(now) {
			continue
		}
		if s.grantApplies(subject, g.PrincipalType, g.PrincipalID) {
			levels = append(levels, g.AccessLevel)
		}
	}

	// Наследование от содержащей папки: одна рекурсивная резолюция
	// вверх по дереву папок. Удаленная папка не вносит уровня, но и не
	// гасит прямые гранты на документ
	if doc.FolderID != nil {
		inherited, err := s.resolveFolder(ctx, subject, *doc.FolderID, 0)
		switch {
		case err == nil:
			levels = append(levels, inherited)
		case errors.Is(err, domain.ErrNotFound):
		default:
			return domain.AccessLevelNone, err
		}
	}

	return domain.MaxLevel(levels...), nil
}

func (s *PermissionService) resolveFolder(
	ctx context.Context,
	subject *domain.Subject,
	folderID int64,
	depth int,
) (domain.AccessLevel, error) {
	if depth > maxInheritanceDepth {
		return domain.AccessLevelNone, fmt.Errorf("folder chain exceeds depth %d at folder %d", maxInheritanceDepth, folderID)
	}

	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return domain.AccessLevelNone, err
	}

	if folder.CreatedBy == subject.ID {
		return domain.AccessLevelOwner, nil
	}
	if subject.Role.Privileged() {
		return domain.AccessLevelOwner, nil
	}

	grants, err := s.grants.ActiveFolderGrants(ctx, folderID)
	if err != nil {
		return domain.AccessLevelNone, fmt.Errorf("failed to get folder grants: %w", err)
	}

	now := time.Now()
	levels := make([]domain.AccessLevel, 0, len(grants)+1)
	for _, g := range grants {
		if !g.Active(now) {
			continue
		}
		if s.grantApplies(subject, g.PrincipalType, g.PrincipalID) {
			levels = append(levels, g.AccessLevel)
		}
	}

	if folder.ParentID != nil {
		inherited, err := s.resolveFolder(ctx, subject, *folder.ParentID, depth+1)
		switch {
		case err == nil:
			levels = append(levels, inherited)
		case errors.Is(err, domain.ErrNotFound):
		default:
			return domain.AccessLevelNone, err
		}
	}

	return domain.MaxLevel(levels...), nil
}

// grantApplies проверяет, относится ли грант к субъекту: прямой грант,
// грант группы, в которой субъект состоит, либо грант его роли.
func (s *PermissionService) grantApplies(subject *domain.Subject, pt domain.PrincipalType, pid string) bool {
	switch pt {
	case domain.PrincipalTypeUser:
		return pid == subject.ID
	case domain.PrincipalTypeGroup:
		for _, groupID := range subject.GroupIDs {
			if groupID == pid {
				return true
			}
		}
		return false
	case domain.PrincipalTypeRole:
		return pid == string(subject.Role)
	default:
		return false
	}
}

// ListAccessibleDocuments возвращает документы, на которых у субъекта
// есть хотя бы minLevel. Полный проход по всем живым документам с
// вызовом Check на каждом: известное ограничение по стоимости.
func (s *PermissionService) ListAccessibleDocuments(
	ctx context.Context,
	subjectID string,
	minLevel domain.AccessLevel,
) ([]domain.Document, error) {
	docs, err := s.documents.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var accessible []domain.Document
	for _, doc := range docs {
		ok, err := s.Check(ctx, subjectID, doc.UUID.String(), domain.ResourceTypeDocument, minLevel)
		if err != nil {
			continue
		}
		if ok {
			accessible = append(accessible, doc)
		}
	}

	return accessible, nil
}

// ListAccessibleFolders — то же самое для папок.
func (s *PermissionService) ListAccessibleFolders(
	ctx context.Context,
	subjectID string,
	minLevel domain.AccessLevel,
) ([]domain.Folder, error) {
	folders, err := s.folders.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	var accessible []domain.Folder
	for _, folder := range folders {
		ok, err := s.Check(ctx, subjectID, strconv.FormatInt(folder.ID, 10), domain.ResourceTypeFolder, minLevel)
		if err != nil {
			continue
		}
		if ok {
			accessible = append(accessible, folder)
		}
	}

	return accessible, nil
}
