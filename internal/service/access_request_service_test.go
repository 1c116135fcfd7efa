package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/domain"
)

type requestEnv struct {
	*permEnv
	requests *fakeRequests
	service  *AccessRequestService
}

func newRequestEnv() *requestEnv {
	perm := newPermEnv()
	requests := newFakeRequests(perm.grants)
	return &requestEnv{
		permEnv:  perm,
		requests: requests,
		service:  NewAccessRequestService(requests, perm.permission),
	}
}

func TestSubmitAccessRequest(t *testing.T) {
	env := newRequestEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	req, err := env.service.Submit(context.Background(), "bob", doc.UUID, domain.AccessLevelEditor, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Equal(t, "bob", req.RequesterID)
	assert.Equal(t, domain.AccessLevelEditor, req.RequestedLevel)
}

func TestSubmitRejectsOwnerLevel(t *testing.T) {
	env := newRequestEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	_, err := env.service.Submit(context.Background(), "bob", doc.UUID, domain.AccessLevelOwner, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSubmitConflictWhenAlreadyHasAccess(t *testing.T) {
	env := newRequestEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)
	env.grantDocument(t, doc, domain.PrincipalTypeUser, "bob", domain.AccessLevelViewer)

	_, err := env.service.Submit(context.Background(), "bob", doc.UUID, domain.AccessLevelEditor, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSubmitConflictWhenAlreadyPending(t *testing.T) {
	env := newRequestEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	_, err := env.service.Submit(context.Background(), "bob", doc.UUID, domain.AccessLevelViewer, nil)
	require.NoError(t, err)

	_, err = env.service.Submit(context.Background(), "bob", doc.UUID, domain.AccessLevelEditor, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestApproveWritesGrantAtGrantedLevel(t *testing.T) {
	env := newRequestEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	req, err := env.service.Submit(context.Background(), "bob", doc.UUID, domain.AccessLevelEditor, nil)
	require.NoError(t, err)

	// Ревьюер вправе выдать меньше запрошенного
	approved, err := env.service.Approve(context.Background(), "alice", req.ID, domain.AccessLevelCommenter, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, "alice", *approved.ReviewedBy)

	assert.Equal(t, domain.AccessLevelCommenter, env.resolveDoc(t, "bob", doc))
}

func TestApproveRequiresEditor(t *testing.T) {
	env := newRequestEnv()
	env.addUser("alice")
	env.addUser("bob")
	env.addUser("carol")
	doc := env.addDocument(t, "alice", nil)
	env.grantDocument(t, doc, domain.PrincipalTypeUser, "carol", domain.AccessLevelCommenter)

	req, err := env.service.Submit(context.Background(), "bob", doc.UUID, domain.AccessLevelViewer, nil)
	require.NoError(t, err)

	_, err = env.service.Approve(context.Background(), "carol", req.ID, domain.AccessLevelViewer, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Запрос остается pending и без гранта
	stored, err := env.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, stored.Status)
	assert.Equal(t, domain.AccessLevelNone, env.resolveDoc(t, "bob", doc))
}

func TestApproveTerminalRequest(t *testing.T) {
	env := newRequestEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	req, err := env.service.Submit(context.Background(), "bob", doc.UUID, domain.AccessLevelViewer, nil)
	require.NoError(t, err)

	_, err = env.service.Deny(context.Background(), "alice", req.ID, nil)
	require.NoError(t, err)

	// Denied терминален: одобрить задним числом нельзя
	_, err = env.service.Approve(context.Background(), "alice", req.ID, domain.AccessLevelViewer, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestDenyLeavesGrantsUntouched(t *testing.T) {
	env := newRequestEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	req, err := env.service.Submit(context.Background(), "bob", doc.UUID, domain.AccessLevelEditor, nil)
	require.NoError(t, err)

	denied, err := env.service.Deny(context.Background(), "alice", req.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusDenied, denied.Status)
	assert.Equal(t, domain.AccessLevelNone, env.resolveDoc(t, "bob", doc))

	_, err = env.service.Deny(context.Background(), "alice", req.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestListPendingForReviewer(t *testing.T) {
	env := newRequestEnv()
	env.addUser("alice")
	env.addUser("bob")
	env.addUser("carol")
	mine := env.addDocument(t, "alice", nil)
	others := env.addDocument(t, "carol", nil)

	_, err := env.service.Submit(context.Background(), "bob", mine.UUID, domain.AccessLevelViewer, nil)
	require.NoError(t, err)
	_, err = env.service.Submit(context.Background(), "bob", others.UUID, domain.AccessLevelViewer, nil)
	require.NoError(t, err)

	// Ревьюеру видны только запросы на документы, где у него editor+
	pending, err := env.service.ListPendingFor(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.UUID, pending[0].DocumentID)

	mineReqs, err := env.service.ListMine(context.Background(), "bob")
	require.NoError(t, err)
	assert.Len(t, mineReqs, 2)
}
