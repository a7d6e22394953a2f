package access

import (
	"context"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"go.uber.org/zap"
)

// 祖先链最大深度, 防止脏数据形成环
const maxAncestorDepth = 256

// Grant 一次权限解析的结果
type Grant struct {
	Ref     models.ResourceRef
	OwnerID uint64
	Role    models.Role
	Folder  *models.Folder // Ref.Type 为 folder 时非空
	File    *models.File   // Ref.Type 为 file 时非空
}

func (g *Grant) IsOwner() bool {
	return g.Role == models.RoleOwner
}

// Resolver 判断 principal 能否对资源执行 action
//
// 失败一律返回 NotFound 类错误, 与资源不存在不可区分。
// 对目录的授权会继承给整个子树, 已删除的祖先目录会截断继承。
type Resolver interface {
	Resolve(ctx context.Context, p models.Principal, ref models.ResourceRef, action models.Action) (*Grant, error)
}

type resolver struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	shareRepo  repositories.ShareRepository
	linkRepo   repositories.LinkShareRepository
}

var _ Resolver = (*resolver)(nil)

func NewResolver(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	shareRepo repositories.ShareRepository,
	linkRepo repositories.LinkShareRepository,
) Resolver {
	return &resolver{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		shareRepo:  shareRepo,
		linkRepo:   linkRepo,
	}
}

func (r *resolver) Resolve(ctx context.Context, p models.Principal, ref models.ResourceRef, action models.Action) (*Grant, error) {
	grant, parentID, err := r.load(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !p.IsAnonymous() && grant.OwnerID == p.UserID {
		grant.Role = models.RoleOwner
		return grant, nil
	}

	chain, err := r.chain(ctx, ref, parentID, grant.OwnerID)
	if err != nil {
		return nil, err
	}

	role, err := r.bestRole(ctx, p, chain)
	if err != nil {
		return nil, err
	}
	if !Allows(p, role, action) {
		logger.Debug("access denied",
			zap.Uint64("userID", p.UserID),
			zap.String("resourceType", string(ref.Type)),
			zap.Uint64("resourceID", ref.ID),
			zap.String("action", action.String()))
		return nil, notFound(ref)
	}

	grant.Role = role
	return grant, nil
}

// Allows 角色是否满足动作要求, 匿名链接持有者不能管理分享
func Allows(p models.Principal, role models.Role, action models.Action) bool {
	switch action {
	case models.ActionRead:
		return role.Rank() >= models.RoleViewer.Rank()
	case models.ActionWrite:
		return role.Rank() >= models.RoleEditor.Rank()
	case models.ActionManage:
		return !p.IsAnonymous() && role.Rank() >= models.RoleEditor.Rank()
	default:
		return false
	}
}

// load 读取资源本身, 不可见的资源 (不存在、已删除、上传失败) 返回 NotFound
func (r *resolver) load(ctx context.Context, ref models.ResourceRef) (*Grant, *uint64, error) {
	switch ref.Type {
	case models.ResourceFolder:
		folder, err := r.folderRepo.FindByID(ctx, ref.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("解析目录权限失败: %w", err)
		}
		if folder == nil || !folder.IsLive() {
			return nil, nil, xerr.ErrFolderNotFound
		}
		return &Grant{Ref: ref, OwnerID: folder.OwnerID, Folder: folder}, folder.ParentID, nil
	case models.ResourceFile:
		file, err := r.fileRepo.FindByID(ctx, ref.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("解析文件权限失败: %w", err)
		}
		if file == nil || !file.IsLive() {
			return nil, nil, xerr.ErrFileNotFound
		}
		return &Grant{Ref: ref, OwnerID: file.OwnerID, File: file}, file.FolderID, nil
	default:
		return nil, nil, xerr.ErrNotFound
	}
}

// chain 资源自身加上所有未删除的祖先目录
func (r *resolver) chain(ctx context.Context, ref models.ResourceRef, parentID *uint64, ownerID uint64) ([]models.ResourceRef, error) {
	refs := []models.ResourceRef{ref}
	visited := map[uint64]bool{}
	if ref.Type == models.ResourceFolder {
		visited[ref.ID] = true
	}

	for next := parentID; next != nil && len(refs) <= maxAncestorDepth; {
		if visited[*next] {
			logger.Warn("folder ancestry cycle detected", zap.Uint64("folderID", *next))
			break
		}
		visited[*next] = true

		folder, err := r.folderRepo.FindByID(ctx, *next)
		if err != nil {
			return nil, fmt.Errorf("查询祖先目录失败: %w", err)
		}
		if folder == nil || !folder.IsLive() || folder.OwnerID != ownerID {
			break
		}
		refs = append(refs, models.ResourceRef{Type: models.ResourceFolder, ID: folder.ID})
		next = folder.ParentID
	}
	return refs, nil
}

func (r *resolver) bestRole(ctx context.Context, p models.Principal, chain []models.ResourceRef) (models.Role, error) {
	var best models.Role

	if !p.IsAnonymous() {
		shares, err := r.shareRepo.FindForGrantee(ctx, p.UserID, chain)
		if err != nil {
			return "", fmt.Errorf("查询授权失败: %w", err)
		}
		for _, s := range shares {
			if s.Role.Rank() > best.Rank() {
				best = s.Role
			}
		}
	}

	if p.LinkID != "" {
		link, err := r.linkRepo.FindByLinkID(ctx, p.LinkID)
		if err != nil {
			return "", fmt.Errorf("查询分享链接失败: %w", err)
		}
		if link != nil && link.Role.Rank() > best.Rank() {
			for _, ref := range chain {
				if ref.Type == link.ResourceType && ref.ID == link.ResourceID {
					best = link.Role
					break
				}
			}
		}
	}
	return best, nil
}

func notFound(ref models.ResourceRef) error {
	if ref.Type == models.ResourceFile {
		return xerr.ErrFileNotFound
	}
	return xerr.ErrFolderNotFound
}
