package admin

import (
	"context"
	"strings"
	"testing"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/testutil"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/utils"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServices(t *testing.T) (AuthService, UserService) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := testutil.NewTestConfig(t)
	userRepo := repositories.NewUserRepository(db)
	return NewAuthService(userRepo, cfg), NewUserService(userRepo)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	auth, _ := newServices(t)

	res, err := auth.Register(ctx, " Alice@Example.com ", "secret1", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Alice@Example.com", res.User.Email)

	claims, err := utils.ParseToken(res.Token, "test-secret-key-0123456789")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	t.Run("DuplicateEmailIgnoresCase", func(t *testing.T) {
		_, err := auth.Register(ctx, "alice@example.com", "secret2", "Other")
		assert.ErrorIs(t, err, xerr.ErrEmailAlreadyExists)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		_, err := auth.Register(ctx, "not-an-email", "secret1", "x")
		assert.ErrorIs(t, err, xerr.ErrValidation)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		_, err := auth.Register(ctx, "bob@example.com", "123", "Bob")
		assert.ErrorIs(t, err, xerr.ErrValidation)
	})

	t.Run("PasswordOverBcryptLimit", func(t *testing.T) {
		_, err := auth.Register(ctx, "carol@example.com", strings.Repeat("a", 73), "Carol")
		assert.ErrorIs(t, err, xerr.ErrValidation)
		assert.Equal(t, 400, xerr.HTTPStatus(err))

		// 按字节计数, 25 个汉字已超过 72 字节
		_, err = auth.Register(ctx, "carol@example.com", strings.Repeat("密", 25), "Carol")
		assert.ErrorIs(t, err, xerr.ErrValidation)

		_, err = auth.Register(ctx, "carol@example.com", strings.Repeat("a", 72), "Carol")
		assert.NoError(t, err)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	auth, _ := newServices(t)
	_, err := auth.Register(ctx, "alice@example.com", "secret1", "Alice")
	require.NoError(t, err)

	res, err := auth.Login(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = auth.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, xerr.ErrInvalidCredentials)

	_, err = auth.Login(ctx, "ghost@example.com", "secret1")
	assert.ErrorIs(t, err, xerr.ErrInvalidCredentials)
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	auth, users := newServices(t)
	res, err := auth.Register(ctx, "alice@example.com", "secret1", "Alice")
	require.NoError(t, err)
	p := models.UserPrincipal(res.User.ID)

	profile, err := users.GetProfile(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)

	_, err = users.GetProfile(ctx, models.UserPrincipal(999))
	assert.ErrorIs(t, err, xerr.ErrUserNotFound)
	_, err = users.GetProfile(ctx, models.LinkPrincipal("x"))
	assert.ErrorIs(t, err, xerr.ErrUnauthorized)

	t.Run("ChangePassword", func(t *testing.T) {
		assert.ErrorIs(t, users.ChangePassword(ctx, p, "wrong", "newsecret"), xerr.ErrInvalidCredentials)
		assert.ErrorIs(t, users.ChangePassword(ctx, p, "secret1", "123"), xerr.ErrValidation)
		assert.ErrorIs(t, users.ChangePassword(ctx, p, "secret1", strings.Repeat("x", 73)), xerr.ErrValidation)
		require.NoError(t, users.ChangePassword(ctx, p, "secret1", "newsecret"))

		_, err := auth.Login(ctx, "alice@example.com", "secret1")
		assert.ErrorIs(t, err, xerr.ErrInvalidCredentials)
		_, err = auth.Login(ctx, "alice@example.com", "newsecret")
		assert.NoError(t, err)
	})
}
