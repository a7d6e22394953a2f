package share

import (
	"context"
	"testing"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/testutil"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/3Eeeecho/go-clouddrive/internal/services/access"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     ShareService
	owner   models.Principal
	alice   models.Principal
	bob     models.Principal
	docs    *models.Folder
	docsRef models.ResourceRef
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	folderRepo := repositories.NewFolderRepository(db)
	fileRepo := repositories.NewFileRepository(db)
	shareRepo := repositories.NewShareRepository(db)
	linkRepo := repositories.NewLinkShareRepository(db)
	resolver := access.NewResolver(folderRepo, fileRepo, shareRepo, linkRepo)

	owner := testutil.CreateUser(t, db, "owner@example.com")
	docs := testutil.CreateFolder(t, db, owner.ID, "Docs", nil)
	return &fixture{
		db:      db,
		svc:     NewShareService(repositories.NewUserRepository(db), shareRepo, linkRepo, resolver, explorer.NewTransactionManager(db)),
		owner:   models.UserPrincipal(owner.ID),
		alice:   models.UserPrincipal(testutil.CreateUser(t, db, "alice@example.com").ID),
		bob:     models.UserPrincipal(testutil.CreateUser(t, db, "bob@example.com").ID),
		docs:    docs,
		docsRef: models.ResourceRef{Type: models.ResourceFolder, ID: docs.ID},
	}
}

func TestShareWithUser(t *testing.T) {
	ctx := context.Background()

	t.Run("UpsertKeepsOneRow", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "alice@example.com", models.RoleViewer)
		require.NoError(t, err)
		second, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "ALICE@example.com", models.RoleEditor)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.RoleEditor, second.Role)

		var count int64
		require.NoError(t, f.db.Model(&models.Share{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "nobody@example.com", models.RoleViewer)
		assert.ErrorIs(t, err, xerr.ErrUserNotFound)
	})

	t.Run("CannotShareWithOwner", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "owner@example.com", models.RoleViewer)
		assert.ErrorIs(t, err, xerr.ErrCannotShareWithOwner)
	})

	t.Run("InvalidRoleAndType", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "alice@example.com", models.RoleOwner)
		assert.ErrorIs(t, err, xerr.ErrValidation)
		_, err = f.svc.ShareWithUser(ctx, f.owner, models.ResourceRef{Type: "disk", ID: 1}, "alice@example.com", models.RoleViewer)
		assert.ErrorIs(t, err, xerr.ErrValidation)
	})

	t.Run("ViewerCannotReshare", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "alice@example.com", models.RoleViewer)
		require.NoError(t, err)
		_, err = f.svc.ShareWithUser(ctx, f.alice, f.docsRef, "bob@example.com", models.RoleViewer)
		assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
	})

	t.Run("EditorCanReshare", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "alice@example.com", models.RoleEditor)
		require.NoError(t, err)
		s, err := f.svc.ShareWithUser(ctx, f.alice, f.docsRef, "bob@example.com", models.RoleViewer)
		require.NoError(t, err)
		assert.Equal(t, f.alice.UserID, s.CreatedBy)
	})
}

func TestListShares(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "alice@example.com", models.RoleViewer)
	require.NoError(t, err)
	_, err = f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "bob@example.com", models.RoleEditor)
	require.NoError(t, err)

	items, total, err := f.svc.ListShares(ctx, f.alice, f.docsRef, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, "alice@example.com", items[0].GranteeEmail)

	stranger := models.UserPrincipal(testutil.CreateUser(t, f.db, "x@example.com").ID)
	_, _, err = f.svc.ListShares(ctx, stranger, f.docsRef, 1, 20)
	assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
}

func TestRevokeShare(t *testing.T) {
	ctx := context.Background()

	t.Run("GranteeCanLeave", func(t *testing.T) {
		f := newFixture(t)
		s, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "alice@example.com", models.RoleViewer)
		require.NoError(t, err)
		require.NoError(t, f.svc.RevokeShare(ctx, f.alice, s.ID))
		assert.ErrorIs(t, f.svc.RevokeShare(ctx, f.alice, s.ID), xerr.ErrShareNotFound)
	})

	t.Run("UnrelatedUserCannotRevoke", func(t *testing.T) {
		f := newFixture(t)
		s, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "alice@example.com", models.RoleViewer)
		require.NoError(t, err)
		assert.ErrorIs(t, f.svc.RevokeShare(ctx, f.bob, s.ID), xerr.ErrShareNotFound)
	})

	t.Run("EditorCanRevokeOthers", func(t *testing.T) {
		f := newFixture(t)
		s, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "alice@example.com", models.RoleViewer)
		require.NoError(t, err)
		_, err = f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "bob@example.com", models.RoleEditor)
		require.NoError(t, err)
		require.NoError(t, f.svc.RevokeShare(ctx, f.bob, s.ID))
	})

	t.Run("AnonymousCannotRevoke", func(t *testing.T) {
		f := newFixture(t)
		s, err := f.svc.ShareWithUser(ctx, f.owner, f.docsRef, "alice@example.com", models.RoleViewer)
		require.NoError(t, err)
		assert.ErrorIs(t, f.svc.RevokeShare(ctx, models.LinkPrincipal("x"), s.ID), xerr.ErrShareNotFound)
	})
}

func TestLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	file := testutil.CreateFile(t, f.db, f.owner.UserID, "readme.md", &f.docs.ID, 1)

	link, err := f.svc.CreateLink(ctx, f.owner, f.docsRef, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, link.Role)
	assert.Len(t, link.LinkID, 36)

	other, err := f.svc.CreateLink(ctx, f.owner, f.docsRef, models.RoleEditor)
	require.NoError(t, err)
	assert.NotEqual(t, link.LinkID, other.LinkID)

	t.Run("ListRequiresManage", func(t *testing.T) {
		links, err := f.svc.ListLinks(ctx, f.owner, f.docsRef)
		require.NoError(t, err)
		assert.Len(t, links, 2)

		_, err = f.svc.ListLinks(ctx, f.alice, f.docsRef)
		assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
	})

	t.Run("ResolveLink", func(t *testing.T) {
		resolved, err := f.svc.ResolveLink(ctx, link.LinkID)
		require.NoError(t, err)
		require.NotNil(t, resolved.Folder)
		assert.Equal(t, f.docs.ID, resolved.Folder.ID)
		assert.Nil(t, resolved.File)

		_, err = f.svc.ResolveLink(ctx, "does-not-exist")
		assert.ErrorIs(t, err, xerr.ErrLinkNotFound)
	})

	t.Run("AnonymousCannotCreateLinks", func(t *testing.T) {
		_, err := f.svc.CreateLink(ctx, models.LinkPrincipal(other.LinkID), models.ResourceRef{Type: models.ResourceFile, ID: file.ID}, models.RoleViewer)
		assert.ErrorIs(t, err, xerr.ErrFileNotFound)
	})

	t.Run("RevokeLink", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.RevokeLink(ctx, f.alice, link.LinkID), xerr.ErrLinkNotFound)
		require.NoError(t, f.svc.RevokeLink(ctx, f.owner, link.LinkID))

		_, err := f.svc.ResolveLink(ctx, link.LinkID)
		assert.ErrorIs(t, err, xerr.ErrLinkNotFound)
	})

	t.Run("TrashedResourceInvalidatesLink", func(t *testing.T) {
		require.NoError(t, repositories.NewFolderRepository(f.db).TrashByIDs(ctx, []uint64{f.docs.ID}))
		_, err := f.svc.ResolveLink(ctx, other.LinkID)
		assert.ErrorIs(t, err, xerr.ErrLinkNotFound)
	})
}
