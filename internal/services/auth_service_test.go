package services

import (
	"context"
	"testing"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockUserRepo struct {
	repository.UserRepository
	mockFindByEmail func(ctx context.Context, email string) (*models.User, error)
	mockFindByID    func(ctx context.Context, id uint) (*models.User, error)
	mockCreate      func(ctx context.Context, user *models.User) error
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.mockFindByEmail == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.mockFindByEmail(ctx, email)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	if m.mockFindByID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.mockFindByID(ctx, id)
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, user)
	}
	user.ID = 42
	return nil
}

type mockRTRepo struct {
	repository.RefreshTokenRepository
	mockFindByToken func(ctx context.Context, token string) (*models.RefreshToken, error)
	deleted         []string
	created         []*models.RefreshToken
}

func (m *mockRTRepo) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return m.mockFindByToken(ctx, token)
}

func (m *mockRTRepo) Create(ctx context.Context, rt *models.RefreshToken) error {
	m.created = append(m.created, rt)
	return nil
}

func (m *mockRTRepo) Delete(ctx context.Context, token string) error {
	m.deleted = append(m.deleted, token)
	return nil
}

func testAuthConfig() *config.Config {
	return &config.Config{SecretKey: "test-secret", JWTExpirationHours: 24}
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	users := &mockUserRepo{
		mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{Email: email, Status: models.StatusInactive}, nil
		},
	}
	service := NewAuthService(users, &mockRTRepo{}, testAuthConfig())

	result, err := service.Login(context.Background(), "inactive@example.com", "password")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestAuthService_Login_IssuesTokenWithRole(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	users := &mockUserRepo{
		mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: 7, Email: email, PasswordHash: hash, Role: models.RoleOwner, Status: models.StatusActive}, nil
		},
	}
	tokens := &mockRTRepo{}
	service := NewAuthService(users, tokens, testAuthConfig())

	result, err := service.Login(context.Background(), "owner@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, result.RefreshToken)
	require.Len(t, tokens.created, 1)
	assert.Equal(t, uint(7), tokens.created[0].UserID)

	parsed, err := jwt.Parse(result.Token, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, models.RoleOwner, claims["role"])
	assert.Equal(t, float64(7), claims["user_id"])
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	hash, _ := HashPassword("right-password")
	users := &mockUserRepo{
		mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{Email: email, PasswordHash: hash, Status: models.StatusActive}, nil
		},
	}
	service := NewAuthService(users, &mockRTRepo{}, testAuthConfig())

	_, err := service.Login(context.Background(), "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Register(t *testing.T) {
	service := NewAuthService(&mockUserRepo{}, &mockRTRepo{}, testAuthConfig())

	t.Run("rejects staff self-registration", func(t *testing.T) {
		_, err := service.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "longenough", Role: models.RoleStaff})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := service.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "short"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "password", verr.Field)
	})

	t.Run("defaults to tenant and normalizes email", func(t *testing.T) {
		result, err := service.Register(context.Background(), RegisterInput{Email: " New@Example.com ", Password: "longenough"})
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", result.User.Email)
		assert.Equal(t, models.RoleTenant, result.User.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := NewAuthService(&mockUserRepo{mockCreate: func(context.Context, *models.User) error {
			return repository.ErrEmailTaken
		}}, &mockRTRepo{}, testAuthConfig())
		_, err := dup.Register(context.Background(), RegisterInput{Email: "taken@example.com", Password: "longenough"})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	t.Run("inactive user", func(t *testing.T) {
		users := &mockUserRepo{mockFindByID: func(ctx context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Status: models.StatusInactive}, nil
		}}
		tokens := &mockRTRepo{mockFindByToken: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			return &models.RefreshToken{UserID: 1}, nil
		}}
		service := NewAuthService(users, tokens, testAuthConfig())

		result, err := service.RefreshToken(context.Background(), "token")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrInactiveAccount)
	})

	t.Run("expired token is deleted", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		tokens := &mockRTRepo{mockFindByToken: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			return &models.RefreshToken{UserID: 1, ExpiresAt: &past}, nil
		}}
		service := NewAuthService(&mockUserRepo{}, tokens, testAuthConfig())

		_, err := service.RefreshToken(context.Background(), "old")
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Equal(t, []string{"old"}, tokens.deleted)
	})

	t.Run("rotates a valid token", func(t *testing.T) {
		users := &mockUserRepo{mockFindByID: func(ctx context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Role: models.RoleTenant, Status: models.StatusActive}, nil
		}}
		tokens := &mockRTRepo{mockFindByToken: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			return &models.RefreshToken{UserID: 3}, nil
		}}
		service := NewAuthService(users, tokens, testAuthConfig())

		result, err := service.RefreshToken(context.Background(), "current")
		require.NoError(t, err)
		assert.NotEqual(t, "current", result.RefreshToken)
		assert.Equal(t, []string{"current"}, tokens.deleted)
	})
}
