package admin

import (
	"context"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/utils"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, p models.Principal) (*models.User, error)
	// ChangePassword 用户唯一可变的字段是密码
	ChangePassword(ctx context.Context, p models.Principal, oldPassword, newPassword string) error
}

type userService struct {
	userRepo repositories.UserRepository
}

var _ UserService = (*userService)(nil)

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) load(ctx context.Context, p models.Principal) (*models.User, error) {
	if p.IsAnonymous() {
		return nil, xerr.ErrUnauthorized
	}
	user, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		logger.Error("GetProfile: Error retrieving user from DB",
			zap.Uint64("userID", p.UserID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve user profile: %w", err)
	}
	if user == nil {
		logger.Warn("GetProfile: User not found", zap.Uint64("userID", p.UserID))
		return nil, xerr.ErrUserNotFound
	}
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, p models.Principal) (*models.User, error) {
	return s.load(ctx, p)
}

func (s *userService) ChangePassword(ctx context.Context, p models.Principal, oldPassword, newPassword string) error {
	user, err := s.load(ctx, p)
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return xerr.ErrInvalidCredentials
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return err
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}
	logger.Info("ChangePassword: password updated", zap.Uint64("userID", user.ID))
	return nil
}
