package explorer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/storage"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/testutil"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/3Eeeecho/go-clouddrive/internal/services/access"
	"gorm.io/gorm"
)

// fakeStorage 内存中的对象存储
type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string]int64
	presignErr error
	statErr    error
}

var _ storage.StorageService = (*fakeStorage)(nil)

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]int64{}}
}

func (s *fakeStorage) put(key string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = size
}

func (s *fakeStorage) PresignPutURL(_ context.Context, objectName, _ string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://blob.test/put/" + objectName, nil
}

func (s *fakeStorage) PresignGetURL(_ context.Context, objectName, _ string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://blob.test/get/" + objectName, nil
}

func (s *fakeStorage) StatObject(_ context.Context, objectName string) (storage.ObjectInfo, error) {
	if s.statErr != nil {
		return storage.ObjectInfo{}, s.statErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	size, ok := s.objects[objectName]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: objectName, Size: size}, nil
}

func (s *fakeStorage) RemoveObject(_ context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	return nil
}

func (s *fakeStorage) IsBucketExist(context.Context) (bool, error) { return true, nil }
func (s *fakeStorage) MakeBucket(context.Context) error             { return nil }
func (s *fakeStorage) BucketName() string                           { return "test" }

// recordingIndexer 记录索引写入, 同时充当 NameSearcher
type recordingIndexer struct {
	mu        sync.Mutex
	docs      map[string]string
	searchErr error
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{docs: map[string]string{}}
}

func docKey(typ models.ResourceType, id uint64) string {
	return fmt.Sprintf("%s-%d", typ, id)
}

func (x *recordingIndexer) IndexFolders(_ context.Context, folders ...models.Folder) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, f := range folders {
		x.docs[docKey(models.ResourceFolder, f.ID)] = f.Name
	}
}

func (x *recordingIndexer) IndexFiles(_ context.Context, files ...models.File) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, f := range files {
		x.docs[docKey(models.ResourceFile, f.ID)] = f.Name
	}
}

func (x *recordingIndexer) Remove(_ context.Context, typ models.ResourceType, ids ...uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		delete(x.docs, docKey(typ, id))
	}
}

func (x *recordingIndexer) has(typ models.ResourceType, id uint64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.docs[docKey(typ, id)]
	return ok
}

// SearchIDs 故意不过滤所有者, 回表过滤由调用方负责
func (x *recordingIndexer) SearchIDs(_ context.Context, _ uint64, typ models.ResourceType, _ string, _ int) ([]uint64, error) {
	if x.searchErr != nil {
		return nil, x.searchErr
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	var ids []uint64
	for key := range x.docs {
		var id uint64
		if _, err := fmt.Sscanf(key, string(typ)+"-%d", &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeScheduler struct {
	mu  sync.Mutex
	ids []uint64
	err error
}

func (s *fakeScheduler) ScheduleReconcile(_ context.Context, fileID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, fileID)
	return nil
}

var errBlobDown = errors.New("blob store unreachable")

// interleavingResolver 在下一次权限解析返回后插入一次并发写
type interleavingResolver struct {
	access.Resolver
	next func()
}

func (r *interleavingResolver) Resolve(ctx context.Context, p models.Principal, ref models.ResourceRef, action models.Action) (*access.Grant, error) {
	grant, err := r.Resolver.Resolve(ctx, p, ref, action)
	if fn := r.next; fn != nil && err == nil {
		r.next = nil
		fn()
	}
	return grant, err
}

type env struct {
	db         *gorm.DB
	cfg        *config.Config
	storage    *fakeStorage
	indexer    *recordingIndexer
	scheduler  *fakeScheduler
	resolver   *interleavingResolver
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	shareRepo  repositories.ShareRepository
	hierarchy  HierarchyService
	files      FileService
	queries    QueryService
	reconciler *reconciler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := testutil.NewTestDB(t)
	cfg := testutil.NewTestConfig(t)
	e := &env{
		db:         db,
		cfg:        cfg,
		storage:    newFakeStorage(),
		indexer:    newRecordingIndexer(),
		scheduler:  &fakeScheduler{},
		folderRepo: repositories.NewFolderRepository(db),
		fileRepo:   repositories.NewFileRepository(db),
		shareRepo:  repositories.NewShareRepository(db),
	}
	resolver := &interleavingResolver{
		Resolver: access.NewResolver(e.folderRepo, e.fileRepo, e.shareRepo, repositories.NewLinkShareRepository(db)),
	}
	e.resolver = resolver
	tm := NewTransactionManager(db)
	deps := Deps{Indexer: e.indexer, Scheduler: e.scheduler}

	e.hierarchy = NewHierarchyService(e.folderRepo, e.fileRepo, resolver, tm, cfg, deps)
	e.files = NewFileService(e.folderRepo, e.fileRepo, resolver, tm, e.storage, cfg, deps)
	e.queries = NewQueryService(e.folderRepo, e.fileRepo, cfg, deps)
	e.reconciler = NewReconciler(e.fileRepo, e.storage, cfg, deps).(*reconciler)
	return e
}

func (e *env) user(t *testing.T, email string) models.Principal {
	t.Helper()
	return models.UserPrincipal(testutil.CreateUser(t, e.db, email).ID)
}

func (e *env) share(t *testing.T, owner models.Principal, ref models.ResourceRef, grantee models.Principal, role models.Role) {
	t.Helper()
	err := e.shareRepo.Create(context.Background(), &models.Share{
		ResourceType: ref.Type, ResourceID: ref.ID, GranteeUserID: grantee.UserID, Role: role, CreatedBy: owner.UserID,
	})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
}

// upload 走完整的 init + 存储写入 + complete 流程
func (e *env) upload(t *testing.T, p models.Principal, name string, size int64, folderID *uint64) *models.File {
	t.Helper()
	ctx := context.Background()
	ticket, err := e.files.InitUpload(ctx, p, InitUploadInput{Name: name, SizeBytes: size, FolderID: folderID})
	if err != nil {
		t.Fatalf("init upload %s: %v", name, err)
	}
	e.storage.put(ticket.StorageKey, size)
	file, err := e.files.CompleteUpload(ctx, p, ticket.FileID)
	if err != nil {
		t.Fatalf("complete upload %s: %v", name, err)
	}
	return file
}

// afterNextResolve 让 fn 在下一次权限解析之后, 写事务开始之前执行
func (e *env) afterNextResolve(fn func()) {
	e.resolver.next = fn
}

func ptr[T any](v T) *T {
	return &v
}
