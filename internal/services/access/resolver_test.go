package access

import (
	"context"
	"testing"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/testutil"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	resolver Resolver
	owner    *models.User
	alice    *models.User
	bob      *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	return &fixture{
		db: db,
		resolver: NewResolver(
			repositories.NewFolderRepository(db),
			repositories.NewFileRepository(db),
			repositories.NewShareRepository(db),
			repositories.NewLinkShareRepository(db),
		),
		owner: testutil.CreateUser(t, db, "owner@example.com"),
		alice: testutil.CreateUser(t, db, "alice@example.com"),
		bob:   testutil.CreateUser(t, db, "bob@example.com"),
	}
}

func (f *fixture) share(t *testing.T, ref models.ResourceRef, grantee uint64, role models.Role) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Share{
		ResourceType: ref.Type, ResourceID: ref.ID, GranteeUserID: grantee, Role: role, CreatedBy: f.owner.ID,
	}).Error)
}

func folderRef(id uint64) models.ResourceRef {
	return models.ResourceRef{Type: models.ResourceFolder, ID: id}
}

func fileRef(id uint64) models.ResourceRef {
	return models.ResourceRef{Type: models.ResourceFile, ID: id}
}

func TestResolve_Owner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := testutil.CreateFolder(t, f.db, f.owner.ID, "Mine", nil)

	grant, err := f.resolver.Resolve(ctx, models.UserPrincipal(f.owner.ID), folderRef(folder.ID), models.ActionManage)
	require.NoError(t, err)
	assert.True(t, grant.IsOwner())
	assert.Equal(t, f.owner.ID, grant.OwnerID)
	require.NotNil(t, grant.Folder)
	assert.Equal(t, folder.ID, grant.Folder.ID)
}

func TestResolve_NoAccessLooksLikeNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := testutil.CreateFolder(t, f.db, f.owner.ID, "Private", nil)
	file := testutil.CreateFile(t, f.db, f.owner.ID, "secret.txt", nil, 1)

	_, err := f.resolver.Resolve(ctx, models.UserPrincipal(f.alice.ID), folderRef(folder.ID), models.ActionRead)
	assert.ErrorIs(t, err, xerr.ErrFolderNotFound)

	_, err = f.resolver.Resolve(ctx, models.UserPrincipal(f.alice.ID), fileRef(file.ID), models.ActionRead)
	assert.ErrorIs(t, err, xerr.ErrFileNotFound)

	_, err = f.resolver.Resolve(ctx, models.UserPrincipal(f.alice.ID), fileRef(9999), models.ActionRead)
	assert.ErrorIs(t, err, xerr.ErrFileNotFound)
}

func TestResolve_ShareInheritance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	top := testutil.CreateFolder(t, f.db, f.owner.ID, "Top", nil)
	mid := testutil.CreateFolder(t, f.db, f.owner.ID, "Mid", &top.ID)
	leaf := testutil.CreateFile(t, f.db, f.owner.ID, "leaf.txt", &mid.ID, 1)
	f.share(t, folderRef(top.ID), f.alice.ID, models.RoleViewer)
	f.share(t, folderRef(mid.ID), f.bob.ID, models.RoleEditor)

	t.Run("ViewerReadsDescendants", func(t *testing.T) {
		grant, err := f.resolver.Resolve(ctx, models.UserPrincipal(f.alice.ID), fileRef(leaf.ID), models.ActionRead)
		require.NoError(t, err)
		assert.Equal(t, models.RoleViewer, grant.Role)
		assert.Equal(t, f.owner.ID, grant.OwnerID)
	})

	t.Run("ViewerCannotWrite", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, models.UserPrincipal(f.alice.ID), folderRef(mid.ID), models.ActionWrite)
		assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
	})

	t.Run("EditorOnSubfolderDoesNotReachParent", func(t *testing.T) {
		grant, err := f.resolver.Resolve(ctx, models.UserPrincipal(f.bob.ID), fileRef(leaf.ID), models.ActionManage)
		require.NoError(t, err)
		assert.Equal(t, models.RoleEditor, grant.Role)

		_, err = f.resolver.Resolve(ctx, models.UserPrincipal(f.bob.ID), folderRef(top.ID), models.ActionRead)
		assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
	})

	t.Run("StrongestRoleWins", func(t *testing.T) {
		f.share(t, fileRef(leaf.ID), f.alice.ID, models.RoleEditor)
		grant, err := f.resolver.Resolve(ctx, models.UserPrincipal(f.alice.ID), fileRef(leaf.ID), models.ActionWrite)
		require.NoError(t, err)
		assert.Equal(t, models.RoleEditor, grant.Role)
	})
}

func TestResolve_TrashedAncestorCutsInheritance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	top := testutil.CreateFolder(t, f.db, f.owner.ID, "Top", nil)
	mid := testutil.CreateFolder(t, f.db, f.owner.ID, "Mid", &top.ID)
	file := testutil.CreateFile(t, f.db, f.owner.ID, "a.txt", &mid.ID, 1)
	f.share(t, folderRef(top.ID), f.alice.ID, models.RoleEditor)

	_, err := f.resolver.Resolve(ctx, models.UserPrincipal(f.alice.ID), fileRef(file.ID), models.ActionRead)
	require.NoError(t, err)

	require.NoError(t, repositories.NewFolderRepository(f.db).TrashByIDs(ctx, []uint64{mid.ID}))

	_, err = f.resolver.Resolve(ctx, models.UserPrincipal(f.alice.ID), fileRef(file.ID), models.ActionRead)
	assert.ErrorIs(t, err, xerr.ErrFileNotFound)

	// 所有者仍能看到未删除的文件本身
	_, err = f.resolver.Resolve(ctx, models.UserPrincipal(f.owner.ID), fileRef(file.ID), models.ActionRead)
	assert.NoError(t, err)
}

func TestResolve_TrashedOrAbortedResource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := testutil.CreateFolder(t, f.db, f.owner.ID, "Gone", nil)
	require.NoError(t, repositories.NewFolderRepository(f.db).TrashByIDs(ctx, []uint64{folder.ID}))
	file := testutil.CreateFile(t, f.db, f.owner.ID, "broken.bin", nil, 1)
	_, err := repositories.NewFileRepository(f.db).TransitionUpload(ctx, file.ID, models.UploadCommitted, models.UploadAborted, nil)
	require.NoError(t, err)

	_, err = f.resolver.Resolve(ctx, models.UserPrincipal(f.owner.ID), folderRef(folder.ID), models.ActionRead)
	assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
	_, err = f.resolver.Resolve(ctx, models.UserPrincipal(f.owner.ID), fileRef(file.ID), models.ActionRead)
	assert.ErrorIs(t, err, xerr.ErrFileNotFound)
}

func TestResolve_Link(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	shared := testutil.CreateFolder(t, f.db, f.owner.ID, "Shared", nil)
	inner := testutil.CreateFile(t, f.db, f.owner.ID, "in.txt", &shared.ID, 1)
	outside := testutil.CreateFile(t, f.db, f.owner.ID, "out.txt", nil, 1)
	require.NoError(t, f.db.Create(&models.LinkShare{
		LinkID: "abc", ResourceType: models.ResourceFolder, ResourceID: shared.ID, Role: models.RoleEditor, CreatedBy: f.owner.ID,
	}).Error)
	anon := models.LinkPrincipal("abc")

	t.Run("ReadsAndWritesInsideSubtree", func(t *testing.T) {
		grant, err := f.resolver.Resolve(ctx, anon, fileRef(inner.ID), models.ActionWrite)
		require.NoError(t, err)
		assert.Equal(t, models.RoleEditor, grant.Role)
	})

	t.Run("AnonymousCannotManage", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, anon, folderRef(shared.ID), models.ActionManage)
		assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
	})

	t.Run("OutsideSubtreeIsHidden", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, anon, fileRef(outside.ID), models.ActionRead)
		assert.ErrorIs(t, err, xerr.ErrFileNotFound)
	})

	t.Run("UnknownLink", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, models.LinkPrincipal("nope"), fileRef(inner.ID), models.ActionRead)
		assert.ErrorIs(t, err, xerr.ErrFileNotFound)
	})

	t.Run("LoggedInUserWithLink", func(t *testing.T) {
		p := models.Principal{UserID: f.alice.ID, LinkID: "abc"}
		grant, err := f.resolver.Resolve(ctx, p, fileRef(inner.ID), models.ActionManage)
		require.NoError(t, err)
		assert.Equal(t, models.RoleEditor, grant.Role)
	})
}

func TestAllows(t *testing.T) {
	user := models.UserPrincipal(1)
	anon := models.LinkPrincipal("x")

	tests := []struct {
		name   string
		p      models.Principal
		role   models.Role
		action models.Action
		want   bool
	}{
		{"ViewerRead", user, models.RoleViewer, models.ActionRead, true},
		{"ViewerWrite", user, models.RoleViewer, models.ActionWrite, false},
		{"EditorWrite", user, models.RoleEditor, models.ActionWrite, true},
		{"EditorManage", user, models.RoleEditor, models.ActionManage, true},
		{"AnonEditorManage", anon, models.RoleEditor, models.ActionManage, false},
		{"NoRoleRead", user, "", models.ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allows(tt.p, tt.role, tt.action))
		})
	}
}
