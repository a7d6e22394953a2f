package explorer

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"go.uber.org/zap"
)

const (
	searchLimitPerType = 50
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// QueryService 只读的列表和统计
type QueryService interface {
	Search(ctx context.Context, p models.Principal, q string) (*models.SearchResults, error)
	RecentFiles(ctx context.Context, p models.Principal, limit int) ([]models.File, error)
	StarredFiles(ctx context.Context, p models.Principal) ([]models.File, error)
	StorageUsage(ctx context.Context, p models.Principal) (*models.StorageUsage, error)
}

type queryService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	cfg        *config.Config
	deps       Deps
}

var _ QueryService = (*queryService)(nil)

func NewQueryService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	cfg *config.Config,
	deps Deps,
) QueryService {
	return &queryService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		cfg:        cfg,
		deps:       deps,
	}
}

// Search 目录和文件分别匹配, 目录在前, 类型内按名称排序
func (s *queryService) Search(ctx context.Context, p models.Principal, q string) (*models.SearchResults, error) {
	ownerID, err := ownerRoot(p)
	if err != nil {
		return nil, err
	}
	term := strings.TrimSpace(q)
	if term == "" {
		return nil, xerr.ErrEmptySearchQuery
	}

	folders, files, err := s.searchNodes(ctx, ownerID, term)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(folders)+len(files))
	for _, f := range folders {
		results = append(results, models.SearchResult{
			Type:      models.ResourceFolder,
			ID:        f.ID,
			Name:      f.Name,
			ParentID:  f.ParentID,
			UpdatedAt: f.UpdatedAt,
		})
	}
	for _, f := range files {
		results = append(results, models.SearchResult{
			Type:      models.ResourceFile,
			ID:        f.ID,
			Name:      f.Name,
			ParentID:  f.FolderID,
			MimeType:  f.MimeType,
			SizeBytes: f.SizeBytes,
			UpdatedAt: f.UpdatedAt,
		})
	}
	return &models.SearchResults{Results: results, Count: len(results)}, nil
}

func (s *queryService) searchNodes(ctx context.Context, ownerID uint64, term string) ([]models.Folder, []models.File, error) {
	if s.deps.Searcher != nil {
		folders, files, err := s.searchIndex(ctx, ownerID, term)
		switch {
		case err != nil:
			logger.Warn("Search: index unavailable, falling back to sql", zap.Error(err))
		case len(folders) > 0 || len(files) > 0:
			return folders, files, nil
		default:
			// 索引可能落后于数据库, 没命中时以数据库为准
			logger.Debug("Search: no index hits, checking sql", zap.String("term", term))
		}
	}

	folders, err := s.folderRepo.SearchByName(ctx, ownerID, term, searchLimitPerType)
	if err != nil {
		return nil, nil, err
	}
	files, err := s.fileRepo.SearchByName(ctx, ownerID, term, searchLimitPerType)
	if err != nil {
		return nil, nil, err
	}
	return folders, files, nil
}

// searchIndex 索引只提供候选ID, 回表后再按所有者和状态过滤
func (s *queryService) searchIndex(ctx context.Context, ownerID uint64, term string) ([]models.Folder, []models.File, error) {
	folderIDs, err := s.deps.Searcher.SearchIDs(ctx, ownerID, models.ResourceFolder, term, searchLimitPerType)
	if err != nil {
		return nil, nil, err
	}
	fileIDs, err := s.deps.Searcher.SearchIDs(ctx, ownerID, models.ResourceFile, term, searchLimitPerType)
	if err != nil {
		return nil, nil, err
	}

	candidates, err := s.folderRepo.FindByIDs(ctx, folderIDs)
	if err != nil {
		return nil, nil, err
	}
	folders := make([]models.Folder, 0, len(candidates))
	for _, f := range candidates {
		if f.OwnerID == ownerID && f.IsLive() {
			folders = append(folders, f)
		}
	}

	fileCandidates, err := s.fileRepo.FindByIDs(ctx, fileIDs)
	if err != nil {
		return nil, nil, err
	}
	files := make([]models.File, 0, len(fileCandidates))
	for _, f := range fileCandidates {
		if f.OwnerID == ownerID && f.IsLive() {
			files = append(files, f)
		}
	}

	sort.SliceStable(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return folders, files, nil
}

func (s *queryService) RecentFiles(ctx context.Context, p models.Principal, limit int) ([]models.File, error) {
	ownerID, err := ownerRoot(p)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.fileRepo.ListRecent(ctx, ownerID, limit)
}

func (s *queryService) StarredFiles(ctx context.Context, p models.Principal) ([]models.File, error) {
	ownerID, err := ownerRoot(p)
	if err != nil {
		return nil, err
	}
	return s.fileRepo.ListStarred(ctx, ownerID)
}

func (s *queryService) StorageUsage(ctx context.Context, p models.Principal) (*models.StorageUsage, error) {
	ownerID, err := ownerRoot(p)
	if err != nil {
		return nil, err
	}
	used, err := s.fileRepo.SumLiveSize(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	total := s.cfg.Quota.TotalBytes
	var pct float64
	if total > 0 {
		pct = math.Round(float64(used)/float64(total)*10000) / 100
	}
	return &models.StorageUsage{UsedBytes: used, TotalBytes: total, Percentage: pct}, nil
}
