package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docvault/internal/domain"
	"docvault/internal/repository"
)

const (
	shareTokenBytes    = 32
	sharePasswordCost  = 10
	defaultShareExpiry = 7 * 24 * time.Hour
)

// ShareLinkService выдает и гасит анонимные ссылки на документы.
type ShareLinkService struct {
	links      repository.ShareLinkStore
	documents  repository.DocumentStore
	permission *PermissionService
}

func NewShareLinkService(
	links repository.ShareLinkStore,
	documents repository.DocumentStore,
	permission *PermissionService,
) *ShareLinkService {
	return &ShareLinkService{
		links:      links,
		documents:  documents,
		permission: permission,
	}
}

func generateShareToken() (string, error) {
	b := make([]byte, shareTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Issue создает ссылку на документ. Требует от выдающего не меньше
// editor. Ссылка дает фиксированный уровень viewer или commenter и не
// наследуется. Срок по умолчанию — 7 дней.
func (s *ShareLinkService) Issue(
	ctx context.Context,
	issuerID string,
	documentID uuid.UUID,
	level domain.AccessLevel,
	password *string,
	expiresAt *time.Time,
	maxUses *int,
	allowDownload bool,
) (*domain.ShareLink, error) {
	if level != domain.AccessLevelViewer && level != domain.AccessLevelCommenter {
		return nil, fmt.Errorf("share links may only grant viewer or commenter: %w", domain.ErrConflict)
	}

	ok, err := s.permission.Check(ctx, issuerID, documentID.String(), domain.ResourceTypeDocument, domain.AccessLevelEditor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("issuer lacks editor access: %w", domain.ErrForbidden)
	}

	token, err := generateShareToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	var passwordHash *string
	if password != nil && *password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), sharePasswordCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		h := string(hash)
		passwordHash = &h
	}

	expiry := time.Now().Add(defaultShareExpiry)
	if expiresAt != nil {
		expiry = *expiresAt
	}

	link := &domain.ShareLink{
		ID:            uuid.New(),
		DocumentID:    documentID,
		Token:         token,
		PasswordHash:  passwordHash,
		AccessLevel:   level,
		MaxUses:       maxUses,
		AllowDownload: allowDownload,
		ExpiresAt:     expiry,
		Active:        true,
		CreatedBy:     issuerID,
	}

	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create share link: %w", err)
	}

	return link, nil
}

// Redeem обменивает токен на документ. Порядок проверок фиксирован:
// NotFound (токен неизвестен, выключен, документ удален), Expired,
// исчерпание лимита, пароль, и только затем атомарный инкремент
// использований, который держит maxUses жестким потолком под
// конкуренцией.
func (s *ShareLinkService) Redeem(ctx context.Context, token string, password *string) (*domain.Document, bool, error) {
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		return nil, false, err
	}

	if !link.Active {
		return nil, false, fmt.Errorf("share link deactivated: %w", domain.ErrNotFound)
	}

	doc, err := s.documents.GetByUUID(ctx, link.DocumentID)
	if err != nil {
		return nil, false, err
	}

	if time.Now().After(link.ExpiresAt) {
		return nil, false, domain.ErrExpired
	}

	// Уже исчерпанная ссылка отваливается до проверки пароля; Consume
	// ниже остается жестким потолком под конкуренцией
	if link.MaxUses != nil && link.CurrentUses >= *link.MaxUses {
		return nil, false, fmt.Errorf("share link uses exhausted: %w", domain.ErrExhaustedUses)
	}

	if link.PasswordHash != nil {
		if password == nil || *password == "" {
			return nil, false, domain.ErrPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(*password)); err != nil {
			return nil, false, domain.ErrInvalidPassword
		}
	}

	// Инкремент и проверка лимита — одна сериализуемая операция
	if _, err := s.links.Consume(ctx, token); err != nil {
		if errors.Is(err, domain.ErrExhaustedUses) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("failed to consume share link: %w", err)
	}

	return doc, link.AllowDownload, nil
}

// Deactivate гасит ссылку. Требует editor на документе. Идемпотентна.
func (s *ShareLinkService) Deactivate(ctx context.Context, actorID string, token string) error {
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		return err
	}

	ok, err := s.permission.Check(ctx, actorID, link.DocumentID.String(), domain.ResourceTypeDocument, domain.AccessLevelEditor)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("actor lacks editor access: %w", domain.ErrForbidden)
	}

	return s.links.Deactivate(ctx, token)
}
