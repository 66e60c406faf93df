package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/domain/auth"
)

type fakeTx struct{ calls int }

func (f *fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type memUsers struct {
	mu    sync.Mutex
	users map[id.ID]*auth.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[id.ID]*auth.User{}} }

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, userID id.ID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperror.NewNotFound("user", userID)
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (m *memUsers) Update(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Exists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

type memTokens struct {
	tokens map[string]*auth.RefreshToken
}

func (m *memTokens) SaveRefreshToken(_ context.Context, t *auth.RefreshToken) error {
	m.tokens[t.TokenHash] = t
	return nil
}

func (m *memTokens) GetRefreshToken(_ context.Context, hash string) (*auth.RefreshToken, error) {
	if t, ok := m.tokens[hash]; ok {
		return t, nil
	}
	return nil, apperror.NewNotFound("refresh_token", hash)
}

func (m *memTokens) RevokeRefreshToken(_ context.Context, tokenID id.ID, reason string) error {
	for _, t := range m.tokens {
		if t.ID == tokenID {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (m *memTokens) RevokeAllUserTokens(_ context.Context, userID id.ID, reason string) error {
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (m *memTokens) CleanupExpiredTokens(context.Context) (int, error) { return 0, nil }

type starter struct {
	started []id.ID
	err     error
}

func (s *starter) StartDefault(_ context.Context, ownerID id.ID) error {
	if s.err != nil {
		return s.err
	}
	s.started = append(s.started, ownerID)
	return nil
}

func newService(users *memUsers, tokens *memTokens, subs *starter) *auth.Service {
	cfg := auth.DefaultServiceConfig()
	cfg.BcryptCost = bcrypt.MinCost
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	return auth.NewService(users, tokens, subs, &fakeTx{}, jwtSvc, cfg)
}

func validRequest() auth.RegisterRequest {
	return auth.RegisterRequest{
		Email:        "Owner@Example.com",
		Password:     "s3cretpass",
		BusinessName: "Colmado La Esquina",
		TaxID:        "1-01-01010-1",
	}
}

func TestRegister_CreatesAccountAndSubscription(t *testing.T) {
	users, subs := newMemUsers(), &starter{}
	svc := newService(users, &memTokens{tokens: map[string]*auth.RefreshToken{}}, subs)

	user, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", user.Email)
	assert.Equal(t, "101010101", user.TaxID)
	assert.Equal(t, []id.ID{user.ID}, subs.started)
}

func TestRegister_RejectsInvalidTaxID(t *testing.T) {
	svc := newService(newMemUsers(), &memTokens{tokens: map[string]*auth.RefreshToken{}}, &starter{})

	req := validRequest()
	req.TaxID = "101010111"
	_, err := svc.Register(context.Background(), req)

	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTaxID))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newService(newMemUsers(), &memTokens{tokens: map[string]*auth.RefreshToken{}}, &starter{})

	_, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validRequest())
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestRegister_SubscriptionFailureFails(t *testing.T) {
	svc := newService(newMemUsers(), &memTokens{tokens: map[string]*auth.RefreshToken{}}, &starter{err: errors.New("no plan")})

	_, err := svc.Register(context.Background(), validRequest())
	assert.ErrorContains(t, err, "start subscription")
}

func TestLoginRefreshLogout(t *testing.T) {
	users := newMemUsers()
	tokens := &memTokens{tokens: map[string]*auth.RefreshToken{}}
	svc := newService(users, tokens, &starter{})
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRequest())
	require.NoError(t, err)

	pair, user, err := svc.Login(ctx, auth.Credentials{Email: "owner@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "Bearer", pair.TokenType)

	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	uc, err := jwtSvc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID.String(), uc.UserID)
	assert.Equal(t, "101010101", uc.TaxID)

	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized), "rotated token must not be reusable")

	require.NoError(t, svc.Logout(ctx, registered.ID))
	_, err = svc.RefreshToken(ctx, next.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestLogin_LocksAfterFailedAttempts(t *testing.T) {
	users := newMemUsers()
	svc := newService(users, &memTokens{tokens: map[string]*auth.RefreshToken{}}, &starter{})
	ctx := context.Background()

	_, err := svc.Register(ctx, validRequest())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err = svc.Login(ctx, auth.Credentials{Email: "owner@example.com", Password: "wrong"})
		assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	}

	_, _, err = svc.Login(ctx, auth.Credentials{Email: "owner@example.com", Password: "s3cretpass"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}

func TestValidateToken_WrongSecret(t *testing.T) {
	user := auth.NewUser("a@b.do", "x", "Biz", "101010101")
	token, _, err := auth.NewJWTService(auth.DefaultJWTConfig("one")).GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = auth.NewJWTService(auth.DefaultJWTConfig("two")).ValidateToken(token)
	assert.Error(t, err)
}
