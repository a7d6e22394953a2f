package explorer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/3Eeeecho/go-clouddrive/internal/services/access"
)

const maxNameLength = 255

// normalizeName 去掉首尾空白并校验名称
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		utf8.RuneCountInString(name) > maxNameLength ||
		strings.ContainsAny(name, "/\\\x00") {
		return "", xerr.ErrInvalidName
	}
	return name, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, xerr.ErrStorage, err)
}

// 同级重名的唯一约束冲突转成业务错误
func folderConflict(err error) error {
	if xerr.Is(err, repositories.ErrDuplicateKey) {
		return xerr.ErrNameConflict
	}
	return err
}

// collectDescendants 广度优先收集 rootID 及其所有未删除的子孙目录
func collectDescendants(ctx context.Context, repo repositories.FolderRepository, rootID uint64) ([]uint64, error) {
	all := []uint64{rootID}
	seen := map[uint64]bool{rootID: true}
	frontier := []uint64{rootID}

	for len(frontier) > 0 {
		children, err := repo.ListLiveChildIDs(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, id := range children {
			if seen[id] {
				continue
			}
			seen[id] = true
			all = append(all, id)
			frontier = append(frontier, id)
		}
	}
	return all, nil
}

// ensureNotDescendant 目标目录不能是 folderID 自身或其子孙
func ensureNotDescendant(ctx context.Context, repo repositories.FolderRepository, folderID, targetID uint64) error {
	visited := map[uint64]bool{}
	for next := &targetID; next != nil; {
		if *next == folderID {
			return xerr.ErrCannotMoveIntoSubtree
		}
		if visited[*next] {
			return nil
		}
		visited[*next] = true

		folder, err := repo.FindByID(ctx, *next)
		if err != nil {
			return err
		}
		if folder == nil {
			return nil
		}
		next = folder.ParentID
	}
	return nil
}

// ownerRoot 根目录只属于登录用户自己
func ownerRoot(p models.Principal) (uint64, error) {
	if p.IsAnonymous() {
		return 0, xerr.ErrUnauthorized
	}
	return p.UserID, nil
}

// writableParent 解析新节点的所有者: 根目录属于调用者, 子目录跟随父目录的所有者
func writableParent(ctx context.Context, resolver access.Resolver, p models.Principal, parentID *uint64) (uint64, error) {
	if parentID == nil {
		return ownerRoot(p)
	}
	grant, err := resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFolder, ID: *parentID}, models.ActionWrite)
	if err != nil {
		return 0, err
	}
	return grant.OwnerID, nil
}

// checkMoveTarget 目标目录必须可写、同一所有者, 且不在被移动目录的子树中
func checkMoveTarget(ctx context.Context, resolver access.Resolver, folderRepo repositories.FolderRepository,
	p models.Principal, grant *access.Grant, move *models.MoveTarget) error {
	if move.ParentID == nil {
		// 只有所有者能移回自己的根目录
		if !grant.IsOwner() {
			return notFound(grant.Ref)
		}
		return nil
	}
	if grant.Ref.Type == models.ResourceFolder && *move.ParentID == grant.Ref.ID {
		return xerr.ErrCannotMoveIntoSubtree
	}

	target, err := resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFolder, ID: *move.ParentID}, models.ActionWrite)
	if err != nil {
		return err
	}
	if target.OwnerID != grant.OwnerID {
		return xerr.ErrFolderNotFound
	}
	if grant.Ref.Type == models.ResourceFolder {
		return ensureNotDescendant(ctx, folderRepo, grant.Ref.ID, *move.ParentID)
	}
	return nil
}

func notFound(ref models.ResourceRef) error {
	if ref.Type == models.ResourceFile {
		return xerr.ErrFileNotFound
	}
	return xerr.ErrFolderNotFound
}
