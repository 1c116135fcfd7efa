package service

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/repository"
)

// BlobStore — хранилище шифртекстов. Реализуется s3.Client.
type BlobStore interface {
	PutObject(ctx context.Context, key string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// DocumentService оркестрирует операции с содержимым документов.
// Каждая операция сначала спрашивает PermissionService; байты проходят
// через конвейер шифрования в обе стороны.
type DocumentService struct {
	documents  repository.DocumentStore
	folders    repository.FolderStore
	permission *PermissionService
	encryption *EncryptionService
	blobs      BlobStore
}

func NewDocumentService(
	documents repository.DocumentStore,
	folders repository.FolderStore,
	permission *PermissionService,
	encryption *EncryptionService,
	blobs BlobStore,
) *DocumentService {
	return &DocumentService{
		documents:  documents,
		folders:    folders,
		permission: permission,
		encryption: encryption,
		blobs:      blobs,
	}
}

// Upload создает документ: запись -> шифрование -> байты в S3.
// Двухфазная очистка: при сбое после создания записи удаляются
// сохраненные байты и метаданные, затем сама запись.
func (s *DocumentService) Upload(ctx context.Context, upload *domain.DocumentUpload) (*domain.Document, error) {
	if upload.FolderID != nil {
		ok, err := s.permission.Check(ctx, upload.OwnerID,
			strconv.FormatInt(*upload.FolderID, 10), domain.ResourceTypeFolder, domain.AccessLevelEditor)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no editor access to folder: %w", domain.ErrForbidden)
		}
	}

	doc := &domain.Document{
		UUID:           uuid.New(),
		Name:           upload.Name,
		MIMEType:       upload.MIMEType,
		SizeBytes:      int64(len(upload.Data)),
		FolderID:       upload.FolderID,
		OwnerID:        upload.OwnerID,
		CurrentVersion: 1,
	}
	doc.StorageKey = storageKey(doc.UUID, 1)

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	enc, err := s.encryption.Encrypt(ctx, upload.Data, doc.UUID)
	if err != nil {
		s.cleanup(ctx, doc)
		return nil, err
	}

	if err := s.blobs.PutObject(ctx, doc.StorageKey, enc.Ciphertext); err != nil {
		s.cleanup(ctx, doc)
		return nil, fmt.Errorf("failed to store ciphertext: %w", err)
	}

	if err := s.encryption.Commit(ctx, enc); err != nil {
		s.cleanup(ctx, doc)
		return nil, err
	}

	return doc, nil
}

// storageKey адресует шифртекст конкретной версии документа. У каждой
// версии свой объект: старые байты остаются валидной парой к старым
// метаданным до полного завершения смены версии.
func storageKey(documentID uuid.UUID, version int) string {
	return fmt.Sprintf("documents/%s/v%d", documentID, version)
}

// cleanup — компенсирующая очистка после неудачной загрузки: убираем
// байты из S3, метаданные шифрования и запись документа, в этом порядке.
func (s *DocumentService) cleanup(ctx context.Context, doc *domain.Document) {
	if err := s.blobs.DeleteObject(ctx, doc.StorageKey); err != nil {
		log.Printf("cleanup: failed to delete object %s: %v", doc.StorageKey, err)
	}
	if err := s.encryption.meta.Delete(ctx, doc.UUID); err != nil {
		log.Printf("cleanup: failed to delete encryption metadata %s: %v", doc.UUID, err)
	}
	if err := s.documents.HardDelete(ctx, doc.UUID); err != nil {
		log.Printf("cleanup: failed to delete document record %s: %v", doc.UUID, err)
	}
}

// Download отдает расшифрованные байты документа. Требует viewer.
func (s *DocumentService) Download(ctx context.Context, subjectID string, documentID uuid.UUID) (*domain.DocumentDownload, error) {
	ok, err := s.permission.Check(ctx, subjectID, documentID.String(), domain.ResourceTypeDocument, domain.AccessLevelViewer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no viewer access to document: %w", domain.ErrForbidden)
	}

	return s.fetch(ctx, documentID)
}

// DownloadShared отдает байты по уже проверенной share-ссылке.
// Проверку ссылки делает ShareLinkService.Redeem, прав здесь нет.
func (s *DocumentService) DownloadShared(ctx context.Context, documentID uuid.UUID) (*domain.DocumentDownload, error) {
	return s.fetch(ctx, documentID)
}

func (s *DocumentService) fetch(ctx context.Context, documentID uuid.UUID) (*domain.DocumentDownload, error) {
	doc, err := s.documents.GetByUUID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	ciphertext, err := s.blobs.GetObject(ctx, doc.StorageKey)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.encryption.Decrypt(ctx, ciphertext, documentID)
	if err != nil {
		return nil, err
	}

	return &domain.DocumentDownload{Document: doc, Data: plaintext}, nil
}

// UploadVersion заменяет содержимое документа новой версией. Требует
// editor. Содержимое перешифровывается свежим ключом данных и пишется
// под новым ключом хранения: текущая версия остается читаемой до тех
// пор, пока новые байты, метаданные и запись документа не сменились
// все вместе. Любой сбой по пути откатывается компенсирующими шагами.
func (s *DocumentService) UploadVersion(ctx context.Context, subjectID string, documentID uuid.UUID, data []byte) (*domain.Document, error) {
	ok, err := s.permission.Check(ctx, subjectID, documentID.String(), domain.ResourceTypeDocument, domain.AccessLevelEditor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no editor access to document: %w", domain.ErrForbidden)
	}

	doc, err := s.documents.GetByUUID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	// Прежние метаданные читаются заранее: если смена версии сорвется
	// после их перезаписи, будет что восстанавливать
	prevMeta, err := s.encryption.meta.GetMetadata(ctx, documentID)
	if err != nil {
		return nil, err
	}
	prevSum, err := s.encryption.meta.GetChecksum(ctx, documentID)
	if err != nil {
		return nil, err
	}

	enc, err := s.encryption.Encrypt(ctx, data, documentID)
	if err != nil {
		return nil, err
	}

	newKey := storageKey(documentID, doc.CurrentVersion+1)
	if err := s.blobs.PutObject(ctx, newKey, enc.Ciphertext); err != nil {
		return nil, fmt.Errorf("failed to store ciphertext: %w", err)
	}

	if err := s.encryption.Commit(ctx, enc); err != nil {
		s.discard(ctx, newKey)
		return nil, err
	}

	if err := s.documents.BumpVersion(ctx, documentID, int64(len(data)), newKey); err != nil {
		if rerr := s.encryption.meta.Save(ctx, prevMeta, prevSum); rerr != nil {
			log.Printf("version rollback: failed to restore encryption metadata %s: %v", documentID, rerr)
		}
		s.discard(ctx, newKey)
		return nil, err
	}

	// Шифртекст прежней версии больше не адресуется
	if err := s.blobs.DeleteObject(ctx, doc.StorageKey); err != nil {
		log.Printf("failed to delete previous version object %s: %v", doc.StorageKey, err)
	}

	doc.StorageKey = newKey
	doc.SizeBytes = int64(len(data))
	doc.CurrentVersion++
	return doc, nil
}

// discard убирает осиротевший шифртекст несостоявшейся версии.
func (s *DocumentService) discard(ctx context.Context, key string) {
	if err := s.blobs.DeleteObject(ctx, key); err != nil {
		log.Printf("failed to discard staged object %s: %v", key, err)
	}
}

// Delete мягко удаляет документ. Требует owner: удаление не входит
// в editor-операции.
func (s *DocumentService) Delete(ctx context.Context, subjectID string, documentID uuid.UUID) error {
	ok, err := s.permission.Check(ctx, subjectID, documentID.String(), domain.ResourceTypeDocument, domain.AccessLevelOwner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no owner access to document: %w", domain.ErrForbidden)
	}

	return s.documents.SoftDelete(ctx, documentID)
}
