package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/utils"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 6
	// bcrypt 只接受 72 字节以内的输入
	maxPasswordBytes = 72
)

func checkPasswordLength(password string) error {
	if len(password) < minPasswordLength {
		return xerr.New(xerr.ValidationFailedCode, xerr.ErrValidation, fmt.Sprintf("密码长度至少为 %d 位", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return xerr.New(xerr.ValidationFailedCode, xerr.ErrValidation, fmt.Sprintf("密码长度不能超过 %d 字节", maxPasswordBytes))
	}
	return nil
}

var validate = validator.New()

// AuthResult 注册和登录的返回
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

type authService struct {
	userRepo repositories.UserRepository
	cfg      *config.Config
}

// 确保authService实现了AuthService的方法
var _ AuthService = (*authService)(nil)

func NewAuthService(userRepo repositories.UserRepository, cfg *config.Config) AuthService {
	return &authService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

func (s *authService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return nil, xerr.New(xerr.ValidationFailedCode, xerr.ErrValidation, "邮箱格式不正确")
	}
	if err := checkPasswordLength(password); err != nil {
		return nil, err
	}

	//检查邮箱是否存在
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if existing != nil {
		return nil, xerr.ErrEmailAlreadyExists
	}

	//哈希密码
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// 并发注册同一邮箱
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, xerr.ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user in database: %w", err)
	}
	logger.Info("User registered successfully", zap.Uint64("userID", user.ID), zap.String("email", user.Email))

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login 邮箱不存在和密码错误返回同一个错误
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		logger.Info("Login: invalid credentials", zap.String("email", models.NormalizeEmail(email)))
		return nil, xerr.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *authService) issueToken(user *models.User) (string, error) {
	token, err := utils.GenerateToken(
		user.ID,
		user.Email,
		user.Name,
		s.cfg.JWT.SecretKey,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.ExpiresIn,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}
