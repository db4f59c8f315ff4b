// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/collab-backend/internal/config"
	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

type memoryAccounts struct {
	mu      sync.Mutex
	byID    map[string]*Account
	byEmail map[string]string
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byID: make(map[string]*Account), byEmail: make(map[string]string)}
}

func (m *memoryAccounts) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	a := *m.byID[id]
	return &a, nil
}

func (m *memoryAccounts) GetByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	out := *a
	return &out, nil
}

func (m *memoryAccounts) Provision(_ context.Context, email, hash, name string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	if _, ok := m.byEmail[email]; ok {
		return nil, fmt.Errorf("provision: %w", core.ErrDuplicateKey)
	}
	a := &Account{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         "user",
		Tier:         "free",
		CreatedAt:    time.Now(),
	}
	m.byID[a.ID] = a
	m.byEmail[email] = a.ID
	out := *a
	return &out, nil
}

func (m *memoryAccounts) IncrementTokenVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("increment: %w", core.ErrNotFound)
	}
	a.TokenVersion++
	return nil
}

func (m *memoryAccounts) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	a.PasswordHash = hash
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryAccounts) {
	t.Helper()
	privatePEM, _, err := generatePEM()
	require.NoError(t, err)

	jwt, err := newJWTManagerFromPEM(privatePEM, config.JWTConfig{
		AccessTokenExpire: 15 * time.Minute,
		Issuer:            "collab-test",
		Audience:          "collab-test-api",
	})
	require.NoError(t, err)

	accounts := newMemoryAccounts()
	return NewService(jwt, accounts, nil), accounts
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	registered, err := svc.Register(ctx, RegisterRequest{
		Email: "Ada@example.com", Password: "correct horse", Name: "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", registered.User.Email)
	assert.Equal(t, "free", registered.User.Tier)
	assert.Equal(t, "Bearer", registered.Token.TokenType)

	claims, err := svc.VerifyAccessToken(ctx, registered.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.Equal(t, "free", claims.Tier)

	_, err = svc.Register(ctx, RegisterRequest{
		Email: "ada@example.com", Password: "another one", Name: "Ada 2",
	})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	loggedIn, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
}

func TestService_LogoutAllRevokesTokens(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	resp, err := svc.Register(ctx, RegisterRequest{
		Email: "grace@example.com", Password: "hopper1906", Name: "Grace",
	})
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, resp.User.ID))

	_, err = svc.VerifyAccessToken(ctx, resp.Token.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	fresh, err := svc.Login(ctx, LoginRequest{Email: "grace@example.com", Password: "hopper1906"})
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(ctx, fresh.Token.AccessToken)
	assert.NoError(t, err)
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	resp, err := svc.Register(ctx, RegisterRequest{
		Email: "linus@example.com", Password: "first-pass", Name: "Linus",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, resp.User.ID, "not-it-at-all", "second-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, resp.User.ID, "first-pass", "second-pass"))

	_, err = svc.Login(ctx, LoginRequest{Email: "linus@example.com", Password: "first-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Email: "linus@example.com", Password: "second-pass"})
	assert.NoError(t, err)
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.jwt.ParseAccessToken("not.a.token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	other, _ := newTestService(t)
	token, _, err := other.jwt.CreateAccessToken(AccessTokenClaims{UserID: "u1", Role: "user", Tier: "free"})
	require.NoError(t, err)

	_, err = svc.jwt.ParseAccessToken(token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}
