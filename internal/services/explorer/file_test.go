package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesPendingFileAndTicket", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice@example.com")

		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "photo.jpg", MimeType: "image/jpeg", SizeBytes: 2048})
		require.NoError(t, err)
		assert.NotZero(t, ticket.FileID)
		assert.True(t, strings.HasPrefix(ticket.UploadURL, "https://blob.test/put/"))
		assert.True(t, strings.HasSuffix(ticket.StorageKey, "photo.jpg"))
		assert.Equal(t, models.UploadPending, ticket.File.UploadState)
		assert.Equal(t, []uint64{ticket.FileID}, e.scheduler.ids)

		// pending 文件在目录中可见
		contents, err := e.hierarchy.GetFolderContents(ctx, alice, nil)
		require.NoError(t, err)
		require.Len(t, contents.Files, 1)
		assert.Equal(t, "photo.jpg", contents.Files[0].Name)
	})

	t.Run("DefaultsMimeType", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice@example.com")
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "blob", SizeBytes: 1})
		require.NoError(t, err)
		assert.Equal(t, defaultMimeType, ticket.File.MimeType)
	})

	t.Run("RejectsNegativeSize", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice@example.com")
		_, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "x", SizeBytes: -1})
		assert.ErrorIs(t, err, xerr.ErrValidation)
	})

	t.Run("QuotaExceeded", func(t *testing.T) {
		e := newEnv(t)
		e.cfg.Quota.TotalBytes = 100
		alice := e.user(t, "alice@example.com")
		e.upload(t, alice, "a.bin", 60, nil)

		_, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "b.bin", SizeBytes: 41})
		assert.ErrorIs(t, err, xerr.ErrQuotaExceeded)

		_, err = e.files.InitUpload(ctx, alice, InitUploadInput{Name: "c.bin", SizeBytes: 40})
		assert.NoError(t, err)
	})

	t.Run("ConcurrentUploadsStayWithinQuota", func(t *testing.T) {
		e := newEnv(t)
		e.cfg.Quota.TotalBytes = 50
		alice := e.user(t, "alice@example.com")

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: fmt.Sprintf("part-%d.bin", i), SizeBytes: 10})
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		accepted := 0
		for _, err := range errs {
			if err == nil {
				accepted++
				continue
			}
			assert.ErrorIs(t, err, xerr.ErrQuotaExceeded)
		}
		assert.Equal(t, 5, accepted)

		used, err := e.fileRepo.SumLiveSize(ctx, alice.UserID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), used)
	})

	t.Run("PresignFailureRollsBack", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice@example.com")
		e.storage.presignErr = errBlobDown

		_, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "x.bin", SizeBytes: 1})
		assert.ErrorIs(t, err, xerr.ErrStorageUnavailable)
		assert.Equal(t, 503, xerr.HTTPStatus(err))

		var count int64
		require.NoError(t, e.db.Model(&models.File{}).Count(&count).Error)
		assert.Zero(t, count)
		assert.Empty(t, e.scheduler.ids)
	})

	t.Run("SchedulerFailureIsNotFatal", func(t *testing.T) {
		e := newEnv(t)
		e.scheduler.err = errors.New("broker down")
		alice := e.user(t, "alice@example.com")
		_, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "x.bin", SizeBytes: 1})
		assert.NoError(t, err)
	})

	t.Run("EditorUploadChargesOwner", func(t *testing.T) {
		e := newEnv(t)
		owner := e.user(t, "owner@example.com")
		editor := e.user(t, "editor@example.com")
		shared, err := e.hierarchy.CreateFolder(ctx, owner, "Inbox", nil)
		require.NoError(t, err)
		e.share(t, owner, models.ResourceRef{Type: models.ResourceFolder, ID: shared.ID}, editor, models.RoleEditor)

		file := e.upload(t, editor, "drop.txt", 7, &shared.ID)
		assert.Equal(t, owner.UserID, file.OwnerID)

		usage, err := e.queries.StorageUsage(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(7), usage.UsedBytes)
		usage, err = e.queries.StorageUsage(ctx, editor)
		require.NoError(t, err)
		assert.Zero(t, usage.UsedBytes)
	})
}

func TestCompleteUpload(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.user(t, "alice@example.com")

	t.Run("MissingObjectIsIncomplete", func(t *testing.T) {
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "late.bin", SizeBytes: 10})
		require.NoError(t, err)
		_, err = e.files.CompleteUpload(ctx, alice, ticket.FileID)
		assert.ErrorIs(t, err, xerr.ErrUploadIncomplete)
	})

	t.Run("CommitsWithActualSize", func(t *testing.T) {
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "real.bin", SizeBytes: 10})
		require.NoError(t, err)
		e.storage.put(ticket.StorageKey, 12)

		file, err := e.files.CompleteUpload(ctx, alice, ticket.FileID)
		require.NoError(t, err)
		assert.Equal(t, models.UploadCommitted, file.UploadState)
		assert.Equal(t, int64(12), file.SizeBytes)

		again, err := e.files.CompleteUpload(ctx, alice, ticket.FileID)
		require.NoError(t, err)
		assert.Equal(t, file.ID, again.ID)
	})

	t.Run("StorageErrorIsUnavailable", func(t *testing.T) {
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "flaky.bin", SizeBytes: 1})
		require.NoError(t, err)
		e.storage.statErr = errBlobDown
		defer func() { e.storage.statErr = nil }()

		_, err = e.files.CompleteUpload(ctx, alice, ticket.FileID)
		assert.ErrorIs(t, err, xerr.ErrStorageUnavailable)
	})

	t.Run("StrangerGetsNotFound", func(t *testing.T) {
		bob := e.user(t, "bob@example.com")
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "mine.bin", SizeBytes: 1})
		require.NoError(t, err)
		_, err = e.files.CompleteUpload(ctx, bob, ticket.FileID)
		assert.ErrorIs(t, err, xerr.ErrFileNotFound)
	})
}

func TestGetDownloadReference(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner := e.user(t, "owner@example.com")
	viewer := e.user(t, "viewer@example.com")
	stranger := e.user(t, "stranger@example.com")

	folder, err := e.hierarchy.CreateFolder(ctx, owner, "Shared", nil)
	require.NoError(t, err)
	file := e.upload(t, owner, "doc.pdf", 3, &folder.ID)
	e.share(t, owner, models.ResourceRef{Type: models.ResourceFolder, ID: folder.ID}, viewer, models.RoleViewer)
	require.NoError(t, e.db.Create(&models.LinkShare{
		LinkID: "pub", ResourceType: models.ResourceFile, ResourceID: file.ID, Role: models.RoleViewer, CreatedBy: owner.UserID,
	}).Error)

	for _, tc := range []struct {
		name string
		p    models.Principal
	}{
		{"Owner", owner},
		{"InheritedViewer", viewer},
		{"LinkHolder", models.LinkPrincipal("pub")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := e.files.GetDownloadReference(ctx, tc.p, file.ID)
			require.NoError(t, err)
			assert.Equal(t, "https://blob.test/get/"+file.StorageKey, ref.DownloadURL)
			assert.Equal(t, file.ID, ref.File.ID)
			assert.True(t, ref.ExpiresAt.After(file.CreatedAt))
		})
	}

	t.Run("Stranger", func(t *testing.T) {
		_, err := e.files.GetDownloadReference(ctx, stranger, file.ID)
		assert.ErrorIs(t, err, xerr.ErrFileNotFound)
	})
}

func TestRenameOrMoveFile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.user(t, "alice@example.com")
	folder, err := e.hierarchy.CreateFolder(ctx, alice, "Dest", nil)
	require.NoError(t, err)
	file := e.upload(t, alice, "a.txt", 1, nil)

	got, err := e.files.RenameOrMoveFile(ctx, alice, file.ID, ptr("b.txt"), &models.MoveTarget{ParentID: &folder.ID})
	require.NoError(t, err)
	assert.Equal(t, "b.txt", got.Name)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, folder.ID, *got.FolderID)

	contents, err := e.hierarchy.GetFolderContents(ctx, alice, &folder.ID)
	require.NoError(t, err)
	require.Len(t, contents.Files, 1)

	_, err = e.files.RenameOrMoveFile(ctx, alice, file.ID, ptr("bad/name"), nil)
	assert.ErrorIs(t, err, xerr.ErrInvalidName)

	got, err = e.files.RenameOrMoveFile(ctx, alice, file.ID, nil, &models.MoveTarget{})
	require.NoError(t, err)
	assert.Nil(t, got.FolderID)
}

func TestSoftDeleteFile_HiddenEverywhere(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.user(t, "alice@example.com")

	file := e.upload(t, alice, "report.txt", 50, nil)
	_, err := e.files.ToggleStar(ctx, alice, file.ID)
	require.NoError(t, err)

	require.NoError(t, e.files.SoftDeleteFile(ctx, alice, file.ID))

	contents, err := e.hierarchy.GetFolderContents(ctx, alice, nil)
	require.NoError(t, err)
	assert.Empty(t, contents.Files)

	recent, err := e.queries.RecentFiles(ctx, alice, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)

	starred, err := e.queries.StarredFiles(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, starred)

	results, err := e.queries.Search(ctx, alice, "report")
	require.NoError(t, err)
	assert.Zero(t, results.Count)

	row, err := e.fileRepo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.StatusTrashed, row.Status)
	assert.False(t, e.indexer.has(models.ResourceFile, file.ID))

	assert.ErrorIs(t, e.files.SoftDeleteFile(ctx, alice, file.ID), xerr.ErrFileNotFound)
}

func TestToggleStar(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.user(t, "alice@example.com")
	bob := e.user(t, "bob@example.com")
	file := e.upload(t, alice, "fav.txt", 1, nil)

	first, err := e.files.ToggleStar(ctx, alice, file.ID)
	require.NoError(t, err)
	assert.True(t, first.File.IsStarred)
	assert.Equal(t, "Added to starred", first.Message)

	second, err := e.files.ToggleStar(ctx, alice, file.ID)
	require.NoError(t, err)
	assert.False(t, second.File.IsStarred)
	assert.Equal(t, "Removed from starred", second.Message)

	e.share(t, alice, models.ResourceRef{Type: models.ResourceFile, ID: file.ID}, bob, models.RoleEditor)
	_, err = e.files.ToggleStar(ctx, bob, file.ID)
	assert.ErrorIs(t, err, xerr.ErrFileNotFound)
}

func TestRenameOrMoveFile_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("DeleteBeforeWriteIsNotUndone", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice@example.com")
		file := e.upload(t, alice, "a.txt", 1, nil)

		e.afterNextResolve(func() {
			require.NoError(t, e.files.SoftDeleteFile(ctx, alice, file.ID))
		})
		_, err := e.files.RenameOrMoveFile(ctx, alice, file.ID, ptr("b.txt"), nil)
		assert.ErrorIs(t, err, xerr.ErrFileNotFound)

		row, err := e.fileRepo.FindByID(ctx, file.ID)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, models.StatusTrashed, row.Status)
		assert.Equal(t, "a.txt", row.Name)

		recent, err := e.queries.RecentFiles(ctx, alice, 0)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})

	t.Run("CommitBeforeWriteIsKept", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice@example.com")
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "a.bin", SizeBytes: 5})
		require.NoError(t, err)
		e.storage.put(ticket.StorageKey, 999)

		e.afterNextResolve(func() {
			_, err := e.files.CompleteUpload(ctx, alice, ticket.FileID)
			require.NoError(t, err)
		})
		got, err := e.files.RenameOrMoveFile(ctx, alice, ticket.FileID, ptr("b.bin"), nil)
		require.NoError(t, err)
		assert.Equal(t, "b.bin", got.Name)
		assert.Equal(t, models.UploadCommitted, got.UploadState)
		assert.Equal(t, int64(999), got.SizeBytes)

		row, err := e.fileRepo.FindByID(ctx, ticket.FileID)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, models.UploadCommitted, row.UploadState)
		assert.Equal(t, int64(999), row.SizeBytes)
	})

	t.Run("AbortBeforeWriteStaysHidden", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice@example.com")
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "lost.bin", SizeBytes: 5})
		require.NoError(t, err)

		e.afterNextResolve(func() {
			ok, err := e.fileRepo.TransitionUpload(ctx, ticket.FileID, models.UploadPending, models.UploadAborted, nil)
			require.NoError(t, err)
			require.True(t, ok)
		})
		_, err = e.files.RenameOrMoveFile(ctx, alice, ticket.FileID, ptr("found.bin"), nil)
		assert.ErrorIs(t, err, xerr.ErrFileNotFound)

		row, err := e.fileRepo.FindByID(ctx, ticket.FileID)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, models.UploadAborted, row.UploadState)
	})
}

func TestToggleStar_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("DeletedFileIsNotRestored", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice@example.com")
		file := e.upload(t, alice, "gone.txt", 1, nil)

		e.afterNextResolve(func() {
			require.NoError(t, e.files.SoftDeleteFile(ctx, alice, file.ID))
		})
		_, err := e.files.ToggleStar(ctx, alice, file.ID)
		assert.ErrorIs(t, err, xerr.ErrFileNotFound)

		row, err := e.fileRepo.FindByID(ctx, file.ID)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, models.StatusTrashed, row.Status)
		assert.False(t, row.IsStarred)
	})

	t.Run("InterleavedTogglesBothApply", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice@example.com")
		file := e.upload(t, alice, "fav.txt", 1, nil)

		e.afterNextResolve(func() {
			inner, err := e.files.ToggleStar(ctx, alice, file.ID)
			require.NoError(t, err)
			assert.True(t, inner.File.IsStarred)
		})
		outer, err := e.files.ToggleStar(ctx, alice, file.ID)
		require.NoError(t, err)
		assert.False(t, outer.File.IsStarred)
	})
}

func TestToggleStar_KeepsRecentOrder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.user(t, "alice@example.com")
	old := e.upload(t, alice, "old.txt", 1, nil)
	newer := e.upload(t, alice, "new.txt", 1, nil)

	_, err := e.files.ToggleStar(ctx, alice, old.ID)
	require.NoError(t, err)

	recent, err := e.queries.RecentFiles(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newer.ID, recent[0].ID)

	row, err := e.fileRepo.FindByID(ctx, old.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.IsStarred)
	assert.True(t, row.UpdatedAt.Equal(old.UpdatedAt))
}
