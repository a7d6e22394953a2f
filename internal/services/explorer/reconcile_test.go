package explorer

import (
	"context"
	"testing"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.user(t, "alice@example.com")
	expired := func() time.Time { return time.Now().Add(e.cfg.Storage.UploadURLExpiry + time.Minute) }

	t.Run("SkipsWhileUploadURLIsValid", func(t *testing.T) {
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "fresh.bin", SizeBytes: 1})
		require.NoError(t, err)

		require.NoError(t, e.reconciler.Reconcile(ctx, ticket.FileID))
		got, err := e.fileRepo.FindByID(ctx, ticket.FileID)
		require.NoError(t, err)
		assert.Equal(t, models.UploadPending, got.UploadState)
	})

	t.Run("AbortsWhenObjectMissing", func(t *testing.T) {
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "lost.bin", SizeBytes: 1})
		require.NoError(t, err)
		e.reconciler.now = expired
		defer func() { e.reconciler.now = time.Now }()

		require.NoError(t, e.reconciler.Reconcile(ctx, ticket.FileID))
		got, err := e.fileRepo.FindByID(ctx, ticket.FileID)
		require.NoError(t, err)
		assert.Equal(t, models.UploadAborted, got.UploadState)
		assert.False(t, e.indexer.has(models.ResourceFile, ticket.FileID))

		contents, err := e.hierarchy.GetFolderContents(ctx, alice, nil)
		require.NoError(t, err)
		for _, f := range contents.Files {
			assert.NotEqual(t, ticket.FileID, f.ID)
		}
	})

	t.Run("CommitsWhenObjectExists", func(t *testing.T) {
		ticket, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "arrived.bin", SizeBytes: 1})
		require.NoError(t, err)
		e.storage.put(ticket.StorageKey, 99)
		e.reconciler.now = expired
		defer func() { e.reconciler.now = time.Now }()

		require.NoError(t, e.reconciler.Reconcile(ctx, ticket.FileID))
		got, err := e.fileRepo.FindByID(ctx, ticket.FileID)
		require.NoError(t, err)
		assert.Equal(t, models.UploadCommitted, got.UploadState)
		assert.Equal(t, int64(99), got.SizeBytes)
	})

	t.Run("IgnoresSettledAndMissingFiles", func(t *testing.T) {
		file := e.upload(t, alice, "done.bin", 5, nil)
		e.reconciler.now = expired
		defer func() { e.reconciler.now = time.Now }()

		require.NoError(t, e.reconciler.Reconcile(ctx, file.ID))
		require.NoError(t, e.reconciler.Reconcile(ctx, 424242))
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.user(t, "alice@example.com")

	lost, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "lost.bin", SizeBytes: 1})
	require.NoError(t, err)
	arrived, err := e.files.InitUpload(ctx, alice, InitUploadInput{Name: "arrived.bin", SizeBytes: 1})
	require.NoError(t, err)
	e.storage.put(arrived.StorageKey, 8)

	t.Run("NothingStaleYet", func(t *testing.T) {
		n, err := e.reconciler.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("StorageOutageLeavesFilesPending", func(t *testing.T) {
		e.reconciler.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
		e.storage.statErr = errBlobDown
		defer func() {
			e.reconciler.now = time.Now
			e.storage.statErr = nil
		}()

		n, err := e.reconciler.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("SettlesStalePending", func(t *testing.T) {
		e.reconciler.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
		defer func() { e.reconciler.now = time.Now }()

		n, err := e.reconciler.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := e.fileRepo.FindByID(ctx, lost.FileID)
		require.NoError(t, err)
		assert.Equal(t, models.UploadAborted, got.UploadState)
		got, err = e.fileRepo.FindByID(ctx, arrived.FileID)
		require.NoError(t, err)
		assert.Equal(t, models.UploadCommitted, got.UploadState)

		n, err = e.reconciler.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
