package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

type mockAuthRepo struct {
	users            map[string]*models.User
	refreshTokens    map[string]*models.RefreshToken
	createRefreshErr error
	lastLoginUpdated bool
	revokedUsers     []string
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: map[string]*models.User{}, refreshTokens: map[string]*models.RefreshToken{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("get user: %w", sql.ErrNoRows)
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("get user: %w", sql.ErrNoRows)
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, exec sqlx.ExtContext, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	m.refreshTokens[token.TokenHash] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, exec sqlx.ExtContext, tokenHash string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[tokenHash]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("get refresh token: %w", sql.ErrNoRows)
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, exec sqlx.ExtContext, id string, revokedAt time.Time) error {
	for _, t := range m.refreshTokens {
		if t.ID == id {
			at := revokedAt
			t.RevokedAt = &at
		}
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	return nil
}

func newTestAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, newMemDB(), validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "campus-lab-api",
	})
}

func activeUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "u1", Email: "lab@example.edu", PasswordHash: string(hash), Active: true, Role: models.RoleLabAssistant, CampusID: strPtr("c1")}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo(activeUser(t))
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "lab@example.edu", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "c1", *res.User.CampusID)
	assert.True(t, repo.lastLoginUpdated)

	_, stored := repo.refreshTokens[res.RefreshToken]
	assert.False(t, stored)
	_, stored = repo.refreshTokens[hashToken(res.RefreshToken)]
	assert.True(t, stored)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Principal{ID: "u1", Role: models.RoleLabAssistant, CampusID: strPtr("c1")}, claims.Principal())
}

func TestAuthServiceLoginFailures(t *testing.T) {
	user := activeUser(t)
	inactive := *user
	inactive.ID, inactive.Email, inactive.Active = "u2", "gone@example.edu", false
	svc := newTestAuthService(newMockAuthRepo(user, &inactive))
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "lab@example.edu", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, codeOf(t, err))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.edu", Password: "password"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, codeOf(t, err))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "gone@example.edu", Password: "password"})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, codeOf(t, err))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: "password"})
	assert.Equal(t, appErrors.ErrValidation.Code, codeOf(t, err))
}

func TestAuthServiceRefreshRotates(t *testing.T) {
	repo := newMockAuthRepo(activeUser(t))
	svc := newTestAuthService(repo)
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "lab@example.edu", Password: "password"})
	require.NoError(t, err)

	res, err := svc.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)
	assert.NotNil(t, repo.refreshTokens[hashToken(login.RefreshToken)].RevokedAt)

	_, err = svc.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, codeOf(t, err))

	_, err = svc.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: "unknown"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, codeOf(t, err))
}

func TestAuthServiceLogout(t *testing.T) {
	repo := newMockAuthRepo(activeUser(t))
	svc := newTestAuthService(repo)
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "lab@example.edu", Password: "password"})
	require.NoError(t, err)

	err = svc.Logout(ctx, login.RefreshToken, "someone-else")
	assert.Equal(t, appErrors.ErrForbidden.Code, codeOf(t, err))

	require.NoError(t, svc.Logout(ctx, login.RefreshToken, "u1"))
	assert.NotNil(t, repo.refreshTokens[hashToken(login.RefreshToken)].RevokedAt)
	require.NoError(t, svc.Logout(ctx, login.RefreshToken, "u1"))
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo())
	token, err := svc.generateAccessToken(&models.User{ID: "u1", Email: "a@example.edu", Role: models.RoleAdmin}, time.Now().UTC())
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Nil(t, claims.CampusID)

	_, err = svc.ValidateToken(token + "x")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, codeOf(t, err))

	expired, err := svc.generateAccessToken(&models.User{ID: "u1", Role: models.RoleAdmin}, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, codeOf(t, err))
}
