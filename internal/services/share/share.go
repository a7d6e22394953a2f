package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/utils"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/3Eeeecho/go-clouddrive/internal/services/access"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var errInvalidRole = xerr.New(xerr.ValidationFailedCode, xerr.ErrValidation, "角色只能是 viewer 或 editor")

// ShareService 定义了直接授权和公开链接需要实现的接口
type ShareService interface {
	// ShareWithUser 按邮箱授权给其他用户, 已存在时更新角色
	ShareWithUser(ctx context.Context, p models.Principal, ref models.ResourceRef, granteeEmail string, role models.Role) (*models.Share, error)
	// CreateLink 每次调用都生成新的公开链接, role 为空时默认为 viewer
	CreateLink(ctx context.Context, p models.Principal, ref models.ResourceRef, role models.Role) (*models.LinkShare, error)
	ListShares(ctx context.Context, p models.Principal, ref models.ResourceRef, page, pageSize int) ([]models.ShareWithGrantee, int64, error)
	// RevokeShare 创建者、被授权人本人或有管理权限的用户可以撤销
	RevokeShare(ctx context.Context, p models.Principal, shareID uint64) error
	ListLinks(ctx context.Context, p models.Principal, ref models.ResourceRef) ([]models.LinkShare, error)
	RevokeLink(ctx context.Context, p models.Principal, linkID string) error
	// ResolveLink 匿名访问者打开链接时看到的资源
	ResolveLink(ctx context.Context, linkID string) (*models.ResolvedLink, error)
}

// shareService 是 ShareService 接口的具体实现
type shareService struct {
	userRepo  repositories.UserRepository
	shareRepo repositories.ShareRepository
	linkRepo  repositories.LinkShareRepository
	resolver  access.Resolver
	tm        explorer.TransactionManager
}

var _ ShareService = (*shareService)(nil)

// NewShareService 创建一个新的 ShareService 实例
func NewShareService(
	userRepo repositories.UserRepository,
	shareRepo repositories.ShareRepository,
	linkRepo repositories.LinkShareRepository,
	resolver access.Resolver,
	tm explorer.TransactionManager,
) ShareService {
	return &shareService{
		userRepo:  userRepo,
		shareRepo: shareRepo,
		linkRepo:  linkRepo,
		resolver:  resolver,
		tm:        tm,
	}
}

func checkRef(ref models.ResourceRef) error {
	if !ref.Type.Valid() {
		return xerr.New(xerr.InvalidParamsCode, xerr.ErrValidation, "resource_type 只能是 file 或 folder")
	}
	return nil
}

func (s *shareService) ShareWithUser(ctx context.Context, p models.Principal, ref models.ResourceRef, granteeEmail string, role models.Role) (*models.Share, error) {
	if err := checkRef(ref); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, errInvalidRole
	}

	// 1. 操作者必须有管理权限
	grant, err := s.resolver.Resolve(ctx, p, ref, models.ActionManage)
	if err != nil {
		return nil, err
	}

	// 2. 被授权人按邮箱查找, 大小写不敏感
	grantee, err := s.userRepo.FindByEmail(ctx, granteeEmail)
	if err != nil {
		return nil, fmt.Errorf("查询被授权用户失败: %w", err)
	}
	if grantee == nil {
		return nil, xerr.ErrUserNotFound
	}
	if grantee.ID == grant.OwnerID {
		return nil, xerr.ErrCannotShareWithOwner
	}

	// 3. 写入或更新授权, 并发插入撞上唯一索引时按更新重试一次
	share, err := s.upsertShare(ctx, p, ref, grantee.ID, role)
	if errors.Is(err, repositories.ErrDuplicateKey) {
		logger.Warn("ShareWithUser: concurrent share detected, retrying as update",
			zap.Uint64("resourceID", ref.ID), zap.Uint64("granteeID", grantee.ID))
		share, err = s.upsertShare(ctx, p, ref, grantee.ID, role)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("ShareWithUser: 授权成功",
		zap.Uint64("shareID", share.ID),
		zap.String("resourceType", string(ref.Type)),
		zap.Uint64("resourceID", ref.ID),
		zap.Uint64("granteeID", grantee.ID),
		zap.String("role", string(role)))
	return share, nil
}

func (s *shareService) upsertShare(ctx context.Context, p models.Principal, ref models.ResourceRef, granteeID uint64, role models.Role) (*models.Share, error) {
	var share *models.Share
	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		shareRepo := s.shareRepo.WithTx(tx)
		existing, err := shareRepo.FindByGrant(ctx, ref, granteeID)
		if err != nil {
			return err
		}
		if existing != nil {
			share = existing
			if existing.Role == role {
				return nil
			}
			return shareRepo.UpdateRole(ctx, existing, role)
		}

		share = &models.Share{
			ResourceType:  ref.Type,
			ResourceID:    ref.ID,
			GranteeUserID: granteeID,
			Role:          role,
			CreatedBy:     p.UserID,
		}
		return shareRepo.Create(ctx, share)
	})
	if err != nil {
		return nil, err
	}
	return share, nil
}

func (s *shareService) CreateLink(ctx context.Context, p models.Principal, ref models.ResourceRef, role models.Role) (*models.LinkShare, error) {
	if err := checkRef(ref); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleViewer
	}
	if !role.Valid() {
		return nil, errInvalidRole
	}

	if _, err := s.resolver.Resolve(ctx, p, ref, models.ActionManage); err != nil {
		return nil, err
	}

	link := &models.LinkShare{
		LinkID:       utils.NewLinkID(),
		ResourceType: ref.Type,
		ResourceID:   ref.ID,
		Role:         role,
		CreatedBy:    p.UserID,
	}
	if err := s.linkRepo.Create(ctx, link); err != nil {
		logger.Error("CreateLink: 创建公开链接失败", zap.Error(err))
		return nil, err
	}

	logger.Info("CreateLink: 公开链接创建成功",
		zap.String("linkID", link.LinkID),
		zap.String("resourceType", string(ref.Type)),
		zap.Uint64("resourceID", ref.ID))
	return link, nil
}

func (s *shareService) ListShares(ctx context.Context, p models.Principal, ref models.ResourceRef, page, pageSize int) ([]models.ShareWithGrantee, int64, error) {
	if err := checkRef(ref); err != nil {
		return nil, 0, err
	}
	if _, err := s.resolver.Resolve(ctx, p, ref, models.ActionRead); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.shareRepo.ListByResource(ctx, ref, page, pageSize)
}

func (s *shareService) RevokeShare(ctx context.Context, p models.Principal, shareID uint64) error {
	logger.Debug("RevokeShare called", zap.Uint64("userID", p.UserID), zap.Uint64("shareID", shareID))

	share, err := s.shareRepo.FindByID(ctx, shareID)
	if err != nil {
		return err
	}
	if share == nil || p.IsAnonymous() {
		return xerr.ErrShareNotFound
	}

	if p.UserID != share.CreatedBy && p.UserID != share.GranteeUserID {
		ref := models.ResourceRef{Type: share.ResourceType, ID: share.ResourceID}
		if _, err := s.resolver.Resolve(ctx, p, ref, models.ActionManage); err != nil {
			if xerr.Is(err, xerr.ErrNotFound) {
				return xerr.ErrShareNotFound
			}
			return err
		}
	}

	if err := s.shareRepo.Delete(ctx, shareID); err != nil {
		logger.Error("RevokeShare: 删除分享失败", zap.Uint64("shareID", shareID), zap.Error(err))
		return err
	}
	logger.Info("RevokeShare: 分享撤销成功", zap.Uint64("shareID", shareID), zap.Uint64("userID", p.UserID))
	return nil
}

func (s *shareService) ListLinks(ctx context.Context, p models.Principal, ref models.ResourceRef) ([]models.LinkShare, error) {
	if err := checkRef(ref); err != nil {
		return nil, err
	}
	if _, err := s.resolver.Resolve(ctx, p, ref, models.ActionManage); err != nil {
		return nil, err
	}
	return s.linkRepo.ListByResource(ctx, ref)
}

func (s *shareService) RevokeLink(ctx context.Context, p models.Principal, linkID string) error {
	link, err := s.linkRepo.FindByLinkID(ctx, linkID)
	if err != nil {
		return err
	}
	if link == nil || p.IsAnonymous() {
		return xerr.ErrLinkNotFound
	}

	if p.UserID != link.CreatedBy {
		ref := models.ResourceRef{Type: link.ResourceType, ID: link.ResourceID}
		if _, err := s.resolver.Resolve(ctx, p, ref, models.ActionManage); err != nil {
			if xerr.Is(err, xerr.ErrNotFound) {
				return xerr.ErrLinkNotFound
			}
			return err
		}
	}

	if err := s.linkRepo.Delete(ctx, linkID); err != nil {
		return err
	}
	logger.Info("RevokeLink: 公开链接已撤销", zap.String("linkID", linkID), zap.Uint64("userID", p.UserID))
	return nil
}

func (s *shareService) ResolveLink(ctx context.Context, linkID string) (*models.ResolvedLink, error) {
	link, err := s.linkRepo.FindByLinkID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, xerr.ErrLinkNotFound
	}

	ref := models.ResourceRef{Type: link.ResourceType, ID: link.ResourceID}
	grant, err := s.resolver.Resolve(ctx, models.LinkPrincipal(linkID), ref, models.ActionRead)
	if err != nil {
		// 资源已删除的链接视为失效
		if xerr.Is(err, xerr.ErrNotFound) {
			return nil, xerr.ErrLinkNotFound
		}
		return nil, err
	}
	return &models.ResolvedLink{Link: link, Folder: grant.Folder, File: grant.File}, nil
}
