package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/repository"
	"docvault/internal/service/kms"
)

// ivSize — размер IV для AES-GCM. Исторически 16 байт, а не
// стандартные для GCM 12.
const ivSize = 16

// KeyWrapper — внешний сервис обертки ключей. Реализуется kms.Client,
// в тестах подменяется фейком.
type KeyWrapper interface {
	GenerateDataKey(ctx context.Context) (*kms.DataKey, error)
	UnwrapDataKey(ctx context.Context, wrapped []byte, keyID string) ([]byte, error)
}

// EncryptionService — конвейер конвертного шифрования: ключ данных на
// документ, AES-256-GCM поверх байтов, SHA-256 для контроля целостности.
// Никаких проверок прав внутри: права защищают действия, шифрование
// защищает байты.
type EncryptionService struct {
	keys KeyWrapper
	meta repository.EncryptionStore
}

func NewEncryptionService(keys KeyWrapper, meta repository.EncryptionStore) *EncryptionService {
	return &EncryptionService{
		keys: keys,
		meta: meta,
	}
}

// zeroKey затирает открытый ключ в памяти сразу после использования.
func zeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

// EncryptedDocument — результат шифрования: шифртекст и еще не
// зафиксированные метаданные. До Commit хранилище метаданных не
// меняется, так что неудачная запись шифртекста ничего не портит.
type EncryptedDocument struct {
	Ciphertext []byte
	meta       *domain.EncryptionMetadata
	checksum   *domain.Checksum
}

// Encrypt шифрует байты документа. Ничего не пишет: метаданные и
// контрольную сумму фиксирует отдельный Commit, когда шифртекст уже
// лежит в хранилище.
func (s *EncryptionService) Encrypt(ctx context.Context, plaintext []byte, documentID uuid.UUID) (*EncryptedDocument, error) {
	// Хэш открытого текста считается до любых преобразований
	hash := sha256.Sum256(plaintext)

	dataKey, err := s.keys.GenerateDataKey(ctx)
	if err != nil {
		return nil, err
	}
	defer zeroKey(dataKey.Plaintext)

	block, err := aes.NewCipher(dataKey.Plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesgcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	sealed := aesgcm.Seal(nil, iv, plaintext, nil)

	// Тег аутентификации храним отдельно от шифртекста
	tagOffset := len(sealed) - aesgcm.Overhead()
	ciphertext := sealed[:tagOffset]
	authTag := sealed[tagOffset:]

	meta := &domain.EncryptionMetadata{
		DocumentID:     documentID,
		KMSKeyID:       dataKey.KeyID,
		WrappedDataKey: dataKey.Wrapped,
		IV:             iv,
		AuthTag:        authTag,
		Algorithm:      domain.EncryptionAlgorithmAESGCM,
		KeyVersion:     1,
	}
	checksum := &domain.Checksum{
		DocumentID: documentID,
		Hash:       hex.EncodeToString(hash[:]),
		Algorithm:  domain.ChecksumAlgorithmSHA256,
		Status:     domain.VerificationStatusPending,
	}

	return &EncryptedDocument{
		Ciphertext: ciphertext,
		meta:       meta,
		checksum:   checksum,
	}, nil
}

// Commit записывает метаданные и контрольную сумму одной транзакцией.
// Вызывается после успешной записи шифртекста: до этого момента
// прежние метаданные документа остаются действующими.
func (s *EncryptionService) Commit(ctx context.Context, enc *EncryptedDocument) error {
	if err := s.meta.Save(ctx, enc.meta, enc.checksum); err != nil {
		return fmt.Errorf("failed to persist encryption metadata: %w", err)
	}
	return nil
}

// Decrypt расшифровывает байты документа и сверяет целостность.
// Ошибка тега GCM отдается как ErrAuthenticationFailed, расхождение
// контрольной суммы — как ErrIntegrityViolation; обе не ретраятся и
// никогда не сворачиваются в общую ошибку.
func (s *EncryptionService) Decrypt(ctx context.Context, ciphertext []byte, documentID uuid.UUID) ([]byte, error) {
	meta, err := s.meta.GetMetadata(ctx, documentID)
	if err != nil {
		return nil, err
	}

	dataKey, err := s.keys.UnwrapDataKey(ctx, meta.WrappedDataKey, meta.KMSKeyID)
	if err != nil {
		return nil, err
	}
	defer zeroKey(dataKey)

	block, err := aes.NewCipher(dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesgcm, err := cipher.NewGCMWithNonceSize(block, len(meta.IV))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(meta.AuthTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, meta.AuthTag...)

	plaintext, err := aesgcm.Open(nil, meta.IV, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}

	stored, err := s.meta.GetChecksum(ctx, documentID)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(plaintext)
	if hex.EncodeToString(hash[:]) != stored.Hash {
		if err := s.meta.SetVerificationStatus(ctx, documentID, domain.VerificationStatusFailed); err != nil {
			return nil, fmt.Errorf("failed to mark checksum failed: %w", err)
		}
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrIntegrityViolation)
	}

	if err := s.meta.SetVerificationStatus(ctx, documentID, domain.VerificationStatusVerified); err != nil {
		return nil, fmt.Errorf("failed to mark checksum verified: %w", err)
	}

	return plaintext, nil
}
