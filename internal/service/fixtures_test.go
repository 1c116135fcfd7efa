package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/service/kms"
)

// Инмемори-фейки репозиториев для юнит-тестов сервисного слоя.

type fakeSubjects struct {
	subjects map[string]*domain.Subject
}

func newFakeSubjects() *fakeSubjects {
	return &fakeSubjects{subjects: make(map[string]*domain.Subject)}
}

func (f *fakeSubjects) add(s *domain.Subject) {
	f.subjects[s.ID] = s
}

func (f *fakeSubjects) GetSubject(_ context.Context, id string) (*domain.Subject, error) {
	s, ok := f.subjects[id]
	if !ok {
		return nil, fmt.Errorf("subject %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

type fakeDocuments struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]*domain.Document
	bumpErr error
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{docs: make(map[uuid.UUID]*domain.Document)}
}

func (f *fakeDocuments) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	f.docs[doc.UUID] = doc
	return nil
}

func (f *fakeDocuments) GetByUUID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.DeletedAt != nil {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	// Как и настоящий репозиторий, отдаем независимую копию строки
	copied := *doc
	return &copied, nil
}

func (f *fakeDocuments) ListActive(_ context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []domain.Document
	for _, doc := range f.docs {
		if doc.DeletedAt == nil {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (f *fakeDocuments) BumpVersion(_ context.Context, id uuid.UUID, sizeBytes int64, storageKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bumpErr != nil {
		return f.bumpErr
	}
	doc, ok := f.docs[id]
	if !ok || doc.DeletedAt != nil {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.CurrentVersion++
	doc.SizeBytes = sizeBytes
	doc.StorageKey = storageKey
	return nil
}

func (f *fakeDocuments) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.DeletedAt != nil {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	now := time.Now()
	doc.DeletedAt = &now
	return nil
}

func (f *fakeDocuments) HardDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

type fakeFolders struct {
	nextID  int64
	folders map[int64]*domain.Folder
}

func newFakeFolders() *fakeFolders {
	return &fakeFolders{folders: make(map[int64]*domain.Folder)}
}

func (f *fakeFolders) Create(_ context.Context, folder *domain.Folder) error {
	f.nextID++
	folder.ID = f.nextID
	if folder.ParentID != nil {
		parent := f.folders[*folder.ParentID]
		folder.Path = fmt.Sprintf("%s%d/", parent.Path, folder.ID)
		folder.Level = parent.Level + 1
	} else {
		folder.Path = fmt.Sprintf("/%d/", folder.ID)
	}
	f.folders[folder.ID] = folder
	return nil
}

func (f *fakeFolders) GetByID(_ context.Context, id int64) (*domain.Folder, error) {
	folder, ok := f.folders[id]
	if !ok || folder.DeletedAt != nil {
		return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	return folder, nil
}

func (f *fakeFolders) ListActive(_ context.Context) ([]domain.Folder, error) {
	var folders []domain.Folder
	for _, folder := range f.folders {
		if folder.DeletedAt == nil {
			folders = append(folders, *folder)
		}
	}
	return folders, nil
}

func (f *fakeFolders) Move(_ context.Context, id int64, newParentID *int64) error {
	folder, ok := f.folders[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	folder.ParentID = newParentID
	return nil
}

func (f *fakeFolders) SoftDelete(_ context.Context, id int64) error {
	folder, ok := f.folders[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	now := time.Now()
	folder.DeletedAt = &now
	return nil
}

type fakeGrants struct {
	mu           sync.Mutex
	docGrants    map[uuid.UUID]*domain.DocumentGrant
	folderGrants map[uuid.UUID]*domain.FolderGrant
}

func newFakeGrants() *fakeGrants {
	return &fakeGrants{
		docGrants:    make(map[uuid.UUID]*domain.DocumentGrant),
		folderGrants: make(map[uuid.UUID]*domain.FolderGrant),
	}
}

func (f *fakeGrants) UpsertDocumentGrant(_ context.Context, grant *domain.DocumentGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsertDocumentGrantLocked(grant)
}

// upsertDocumentGrantLocked повторяет ON CONFLICT-семантику по ключу
// (document_id, principal_type, principal_id).
func (f *fakeGrants) upsertDocumentGrantLocked(grant *domain.DocumentGrant) error {
	for _, existing := range f.docGrants {
		if existing.DocumentID == grant.DocumentID &&
			existing.PrincipalType == grant.PrincipalType &&
			existing.PrincipalID == grant.PrincipalID {
			existing.AccessLevel = grant.AccessLevel
			existing.GrantedBy = grant.GrantedBy
			existing.GrantedAt = time.Now()
			existing.ExpiresAt = grant.ExpiresAt
			existing.Revoked = false
			existing.RevokedAt = nil
			existing.RevokedBy = nil
			grant.ID = existing.ID
			return nil
		}
	}
	grant.GrantedAt = time.Now()
	f.docGrants[grant.ID] = grant
	return nil
}

func (f *fakeGrants) RevokeDocumentGrant(_ context.Context, grantID uuid.UUID, revokedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	grant, ok := f.docGrants[grantID]
	if !ok || grant.Revoked {
		return fmt.Errorf("grant %s: %w", grantID, domain.ErrNotFound)
	}
	now := time.Now()
	grant.Revoked = true
	grant.RevokedAt = &now
	grant.RevokedBy = &revokedBy
	return nil
}

func (f *fakeGrants) GetDocumentGrant(_ context.Context, grantID uuid.UUID) (*domain.DocumentGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grant, ok := f.docGrants[grantID]
	if !ok {
		return nil, fmt.Errorf("grant %s: %w", grantID, domain.ErrNotFound)
	}
	return grant, nil
}

func (f *fakeGrants) ActiveDocumentGrants(_ context.Context, documentID uuid.UUID) ([]domain.DocumentGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var grants []domain.DocumentGrant
	for _, grant := range f.docGrants {
		if grant.DocumentID == documentID && grant.Active(now) {
			grants = append(grants, *grant)
		}
	}
	return grants, nil
}

func (f *fakeGrants) UpsertFolderGrant(_ context.Context, grant *domain.FolderGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.folderGrants {
		if existing.FolderID == grant.FolderID &&
			existing.PrincipalType == grant.PrincipalType &&
			existing.PrincipalID == grant.PrincipalID {
			existing.AccessLevel = grant.AccessLevel
			existing.InheritToChildren = grant.InheritToChildren
			existing.GrantedBy = grant.GrantedBy
			existing.GrantedAt = time.Now()
			existing.ExpiresAt = grant.ExpiresAt
			grant.ID = existing.ID
			return nil
		}
	}
	grant.GrantedAt = time.Now()
	f.folderGrants[grant.ID] = grant
	return nil
}

func (f *fakeGrants) DeleteFolderGrant(_ context.Context, grantID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.folderGrants[grantID]; !ok {
		return fmt.Errorf("folder grant %s: %w", grantID, domain.ErrNotFound)
	}
	delete(f.folderGrants, grantID)
	return nil
}

func (f *fakeGrants) GetFolderGrant(_ context.Context, grantID uuid.UUID) (*domain.FolderGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grant, ok := f.folderGrants[grantID]
	if !ok {
		return nil, fmt.Errorf("folder grant %s: %w", grantID, domain.ErrNotFound)
	}
	return grant, nil
}

func (f *fakeGrants) ActiveFolderGrants(_ context.Context, folderID int64) ([]domain.FolderGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var grants []domain.FolderGrant
	for _, grant := range f.folderGrants {
		if grant.FolderID == folderID && grant.Active(now) {
			grants = append(grants, *grant)
		}
	}
	return grants, nil
}

type fakeRequests struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*domain.AccessRequest
	grants   *fakeGrants
}

func newFakeRequests(grants *fakeGrants) *fakeRequests {
	return &fakeRequests{
		requests: make(map[uuid.UUID]*domain.AccessRequest),
		grants:   grants,
	}
}

func (f *fakeRequests) Create(_ context.Context, req *domain.AccessRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.CreatedAt = time.Now()
	f.requests[req.ID] = req
	return nil
}

func (f *fakeRequests) GetByID(_ context.Context, id uuid.UUID) (*domain.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, fmt.Errorf("access request %s: %w", id, domain.ErrNotFound)
	}
	copied := *req
	return &copied, nil
}

func (f *fakeRequests) HasPending(_ context.Context, documentID uuid.UUID, requesterID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.DocumentID == documentID && req.RequesterID == requesterID && req.Status == domain.RequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequests) ListPending(_ context.Context) ([]domain.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reqs []domain.AccessRequest
	for _, req := range f.requests {
		if req.Status == domain.RequestStatusPending {
			reqs = append(reqs, *req)
		}
	}
	return reqs, nil
}

func (f *fakeRequests) ListByRequester(_ context.Context, requesterID string) ([]domain.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reqs []domain.AccessRequest
	for _, req := range f.requests {
		if req.RequesterID == requesterID {
			reqs = append(reqs, *req)
		}
	}
	return reqs, nil
}

// Approve атомарно по аналогии с транзакцией в Postgres: статус и грант
// меняются под одной блокировкой, предикат pending защищает от гонки.
func (f *fakeRequests) Approve(_ context.Context, req *domain.AccessRequest, grant *domain.DocumentGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.requests[req.ID]
	if !ok {
		return fmt.Errorf("access request %s: %w", req.ID, domain.ErrNotFound)
	}
	if stored.Status != domain.RequestStatusPending {
		return fmt.Errorf("access request %s is not pending: %w", req.ID, domain.ErrInvalidState)
	}
	*stored = *req

	f.grants.mu.Lock()
	defer f.grants.mu.Unlock()
	return f.grants.upsertDocumentGrantLocked(grant)
}

func (f *fakeRequests) Deny(_ context.Context, req *domain.AccessRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.requests[req.ID]
	if !ok {
		return fmt.Errorf("access request %s: %w", req.ID, domain.ErrNotFound)
	}
	if stored.Status != domain.RequestStatusPending {
		return fmt.Errorf("access request %s is not pending: %w", req.ID, domain.ErrInvalidState)
	}
	*stored = *req
	return nil
}

type fakeShareLinks struct {
	mu    sync.Mutex
	links map[string]*domain.ShareLink
}

func newFakeShareLinks() *fakeShareLinks {
	return &fakeShareLinks{links: make(map[string]*domain.ShareLink)}
}

func (f *fakeShareLinks) Create(_ context.Context, link *domain.ShareLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link.CreatedAt = time.Now()
	f.links[link.Token] = link
	return nil
}

func (f *fakeShareLinks) GetByToken(_ context.Context, token string) (*domain.ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[token]
	if !ok {
		return nil, fmt.Errorf("share link: %w", domain.ErrNotFound)
	}
	copied := *link
	return &copied, nil
}

// Consume повторяет семантику одиночного conditional UPDATE: проверка
// лимита и инкремент под одной блокировкой.
func (f *fakeShareLinks) Consume(_ context.Context, token string) (*domain.ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[token]
	if !ok {
		return nil, fmt.Errorf("share link: %w", domain.ErrNotFound)
	}
	if !link.Active || time.Now().After(link.ExpiresAt) ||
		(link.MaxUses != nil && link.CurrentUses >= *link.MaxUses) {
		return nil, fmt.Errorf("share link: %w", domain.ErrExhaustedUses)
	}
	link.CurrentUses++
	copied := *link
	return &copied, nil
}

func (f *fakeShareLinks) Deactivate(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link, ok := f.links[token]; ok {
		link.Active = false
	}
	return nil
}

type fakeEncryptionStore struct {
	mu        sync.Mutex
	metadata  map[uuid.UUID]*domain.EncryptionMetadata
	checksums map[uuid.UUID]*domain.Checksum
	saveErr   error
}

func newFakeEncryptionStore() *fakeEncryptionStore {
	return &fakeEncryptionStore{
		metadata:  make(map[uuid.UUID]*domain.EncryptionMetadata),
		checksums: make(map[uuid.UUID]*domain.Checksum),
	}
}

func (f *fakeEncryptionStore) Save(_ context.Context, meta *domain.EncryptionMetadata, checksum *domain.Checksum) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.metadata[meta.DocumentID] = meta
	f.checksums[checksum.DocumentID] = checksum
	return nil
}

func (f *fakeEncryptionStore) GetMetadata(_ context.Context, documentID uuid.UUID) (*domain.EncryptionMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.metadata[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrMetadataMissing)
	}
	return meta, nil
}

func (f *fakeEncryptionStore) GetChecksum(_ context.Context, documentID uuid.UUID) (*domain.Checksum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	checksum, ok := f.checksums[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s checksum: %w", documentID, domain.ErrMetadataMissing)
	}
	return checksum, nil
}

func (f *fakeEncryptionStore) SetVerificationStatus(_ context.Context, documentID uuid.UUID, status domain.VerificationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if checksum, ok := f.checksums[documentID]; ok {
		checksum.Status = status
	}
	return nil
}

func (f *fakeEncryptionStore) Delete(_ context.Context, documentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.metadata, documentID)
	delete(f.checksums, documentID)
	return nil
}

// fakeKeyWrapper оборачивает ключ XOR-ом с фиксированным байтом:
// достаточно, чтобы развертка возвращала исходный ключ.
type fakeKeyWrapper struct {
	unavailable bool
}

func xorWrap(key []byte) []byte {
	wrapped := make([]byte, len(key))
	for i, b := range key {
		wrapped[i] = b ^ 0x5a
	}
	return wrapped
}

func (f *fakeKeyWrapper) GenerateDataKey(_ context.Context) (*kms.DataKey, error) {
	if f.unavailable {
		return nil, fmt.Errorf("%w: generate data key: connection refused", domain.ErrKeyServiceUnavailable)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &kms.DataKey{
		Plaintext: key,
		Wrapped:   xorWrap(key),
		KeyID:     "test-key",
	}, nil
}

func (f *fakeKeyWrapper) UnwrapDataKey(_ context.Context, wrapped []byte, _ string) ([]byte, error) {
	if f.unavailable {
		return nil, fmt.Errorf("%w: unwrap data key: connection refused", domain.ErrKeyServiceUnavailable)
	}
	return xorWrap(wrapped), nil
}
