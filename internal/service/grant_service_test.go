package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/domain"
)

func newGrantEnv() (*permEnv, *GrantService) {
	env := newPermEnv()
	return env, NewGrantService(env.grants, env.permission)
}

func TestGrantDocument(t *testing.T) {
	env, svc := newGrantEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	grant, err := svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalTypeUser, "bob", domain.AccessLevelCommenter, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", grant.GrantedBy)
	assert.Equal(t, domain.AccessLevelCommenter, env.resolveDoc(t, "bob", doc))
}

func TestGrantDocumentRequiresOwner(t *testing.T) {
	env, svc := newGrantEnv()
	env.addUser("alice")
	env.addUser("bob")
	env.addUser("carol")
	doc := env.addDocument(t, "alice", nil)
	env.grantDocument(t, doc, domain.PrincipalTypeUser, "bob", domain.AccessLevelEditor)

	// Editor не может раздавать доступ дальше
	_, err := svc.GrantDocument(context.Background(), "bob", doc.UUID,
		domain.PrincipalTypeUser, "carol", domain.AccessLevelViewer, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGrantDocumentUpsert(t *testing.T) {
	env, svc := newGrantEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	_, err := svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalTypeUser, "bob", domain.AccessLevelViewer, nil)
	require.NoError(t, err)

	// Повторная выдача обновляет существующий грант, а не плодит второй
	_, err = svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalTypeUser, "bob", domain.AccessLevelEditor, nil)
	require.NoError(t, err)

	grants, err := env.grants.ActiveDocumentGrants(context.Background(), doc.UUID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, domain.AccessLevelEditor, grants[0].AccessLevel)
}

func TestGrantDocumentRegrantAfterRevoke(t *testing.T) {
	env, svc := newGrantEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	grant, err := svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalTypeUser, "bob", domain.AccessLevelViewer, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeDocumentGrant(context.Background(), "alice", grant.ID))
	assert.Equal(t, domain.AccessLevelNone, env.resolveDoc(t, "bob", doc))

	// Апсерт по тому же ключу снимает отзыв
	_, err = svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalTypeUser, "bob", domain.AccessLevelViewer, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessLevelViewer, env.resolveDoc(t, "bob", doc))
}

func TestRevokeRevokedGrant(t *testing.T) {
	env, svc := newGrantEnv()
	env.addUser("alice")
	env.addUser("bob")
	doc := env.addDocument(t, "alice", nil)

	grant, err := svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalTypeUser, "bob", domain.AccessLevelViewer, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeDocumentGrant(context.Background(), "alice", grant.ID))
	err = svc.RevokeDocumentGrant(context.Background(), "alice", grant.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrantValidatesPrincipal(t *testing.T) {
	env, svc := newGrantEnv()
	env.addUser("alice")
	doc := env.addDocument(t, "alice", nil)

	_, err := svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalType("service"), "x", domain.AccessLevelViewer, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Набор ролей закрытый
	_, err = svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalTypeRole, "superuser", domain.AccessLevelViewer, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalTypeUser, "", domain.AccessLevelViewer, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.GrantDocument(context.Background(), "alice", doc.UUID,
		domain.PrincipalTypeUser, "bob", domain.AccessLevel("full"), nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestGrantAndDeleteFolderGrant(t *testing.T) {
	env, svc := newGrantEnv()
	env.addUser("alice")
	env.addUser("bob")
	folder := env.addFolder(t, "alice", nil)
	doc := env.addDocument(t, "alice", &folder.ID)

	grant, err := svc.GrantFolder(context.Background(), "alice", folder.ID,
		domain.PrincipalTypeUser, "bob", domain.AccessLevelEditor, true, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessLevelEditor, env.resolveDoc(t, "bob", doc))

	// Папочный грант снимается удалением строки, отзыва у него нет
	require.NoError(t, svc.DeleteFolderGrant(context.Background(), "alice", grant.ID))
	assert.Equal(t, domain.AccessLevelNone, env.resolveDoc(t, "bob", doc))

	err = svc.DeleteFolderGrant(context.Background(), "alice", grant.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrantFolderRequiresOwner(t *testing.T) {
	env, svc := newGrantEnv()
	env.addUser("alice")
	env.addUser("bob")
	env.addUser("carol")
	folder := env.addFolder(t, "alice", nil)
	env.grantFolder(t, folder.ID, domain.PrincipalTypeUser, "bob", domain.AccessLevelEditor)

	_, err := svc.GrantFolder(context.Background(), "bob", folder.ID,
		domain.PrincipalTypeUser, "carol", domain.AccessLevelViewer, false, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
