package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/repository"
)

// AccessRequestService — машина состояний запросов на повышение доступа:
// pending -> approved | denied, переход ровно один раз.
type AccessRequestService struct {
	requests   repository.AccessRequestStore
	permission *PermissionService
}

func NewAccessRequestService(requests repository.AccessRequestStore, permission *PermissionService) *AccessRequestService {
	return &AccessRequestService{
		requests:   requests,
		permission: permission,
	}
}

// Submit создает pending-запрос. Conflict, если у заявителя уже есть
// доступ к документу или висит другой pending-запрос на него же.
func (s *AccessRequestService) Submit(
	ctx context.Context,
	requesterID string,
	documentID uuid.UUID,
	level domain.AccessLevel,
	message *string,
) (*domain.AccessRequest, error) {
	switch level {
	case domain.AccessLevelViewer, domain.AccessLevelCommenter, domain.AccessLevelEditor:
	default:
		return nil, fmt.Errorf("cannot request level %q: %w", level, domain.ErrConflict)
	}

	existing, err := s.permission.Resolve(ctx, requesterID, documentID.String(), domain.ResourceTypeDocument)
	if err != nil {
		return nil, err
	}
	if existing.AtLeast(domain.AccessLevelViewer) {
		return nil, fmt.Errorf("requester already has access: %w", domain.ErrConflict)
	}

	pending, err := s.requests.HasPending(ctx, documentID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("request already pending for this document: %w", domain.ErrConflict)
	}

	req := &domain.AccessRequest{
		ID:             uuid.New(),
		DocumentID:     documentID,
		RequesterID:    requesterID,
		RequestedLevel: level,
		Message:        message,
		Status:         domain.RequestStatusPending,
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create access request: %w", err)
	}

	return req, nil
}

// Approve одобряет запрос. Ревьюер должен иметь не меньше editor на
// документе; выданный уровень может отличаться от запрошенного.
// Апсерт гранта и смена статуса атомарны.
func (s *AccessRequestService) Approve(
	ctx context.Context,
	reviewerID string,
	requestID uuid.UUID,
	grantedLevel domain.AccessLevel,
	response *string,
) (*domain.AccessRequest, error) {
	if !grantedLevel.Valid() {
		return nil, fmt.Errorf("invalid access level %q: %w", grantedLevel, domain.ErrConflict)
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	ok, err := s.permission.Check(ctx, reviewerID, req.DocumentID.String(), domain.ResourceTypeDocument, domain.AccessLevelEditor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("reviewer lacks editor access: %w", domain.ErrForbidden)
	}

	if req.Status != domain.RequestStatusPending {
		return nil, fmt.Errorf("request already %s: %w", req.Status, domain.ErrInvalidState)
	}

	now := time.Now()
	req.Status = domain.RequestStatusApproved
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &now
	req.ResponseMessage = response

	grant := &domain.DocumentGrant{
		ID:            uuid.New(),
		DocumentID:    req.DocumentID,
		PrincipalType: domain.PrincipalTypeUser,
		PrincipalID:   req.RequesterID,
		AccessLevel:   grantedLevel,
		GrantedBy:     reviewerID,
	}

	if err := s.requests.Approve(ctx, req, grant); err != nil {
		return nil, err
	}

	return req, nil
}

// Deny отклоняет запрос. Хранилище грантов не трогается.
func (s *AccessRequestService) Deny(
	ctx context.Context,
	reviewerID string,
	requestID uuid.UUID,
	response *string,
) (*domain.AccessRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	ok, err := s.permission.Check(ctx, reviewerID, req.DocumentID.String(), domain.ResourceTypeDocument, domain.AccessLevelEditor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("reviewer lacks editor access: %w", domain.ErrForbidden)
	}

	if req.Status != domain.RequestStatusPending {
		return nil, fmt.Errorf("request already %s: %w", req.Status, domain.ErrInvalidState)
	}

	now := time.Now()
	req.Status = domain.RequestStatusDenied
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &now
	req.ResponseMessage = response

	if err := s.requests.Deny(ctx, req); err != nil {
		return nil, err
	}

	return req, nil
}

// ListPendingFor возвращает pending-запросы, по которым ревьюер вправе
// принять решение. Каждый запрос проверяется через Check — полный проход,
// как и в листинге доступных ресурсов.
func (s *AccessRequestService) ListPendingFor(ctx context.Context, reviewerID string) ([]domain.AccessRequest, error) {
	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	var actionable []domain.AccessRequest
	for _, req := range pending {
		ok, err := s.permission.Check(ctx, reviewerID, req.DocumentID.String(), domain.ResourceTypeDocument, domain.AccessLevelEditor)
		if err != nil {
			continue
		}
		if ok {
			actionable = append(actionable, req)
		}
	}

	return actionable, nil
}

// ListMine возвращает все запросы заявителя.
func (s *AccessRequestService) ListMine(ctx context.Context, requesterID string) ([]domain.AccessRequest, error) {
	return s.requests.ListByRequester(ctx, requesterID)
}
