package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/internal/supabase"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims Claims, method jwt.SigningMethod) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(sub string) Claims {
	return Claims{
		Email: sub + "@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsAuthenticated(ctx))
	_, err := RequireActor(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	ctx = WithActor(ctx, Actor{ID: "u1", Role: RoleAdmin})
	id, ok := CurrentActorID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	actor, err := RequireActor(ctx)
	require.NoError(t, err)
	assert.True(t, actor.HasRole(RoleService, RoleAdmin))
	assert.False(t, actor.HasRole(RoleService))

	assert.False(t, IsAuthenticated(WithActor(context.Background(), Actor{})))
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)
	ctx := context.Background()

	actor, err := v.Verify(ctx, signToken(t, testSecret, validClaims("user-1"), jwt.SigningMethodHS256))
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: "user-1", Role: "authenticated", Email: "user-1@example.com"}, actor)

	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExp := validClaims("user-1")
	noExp.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "another-secret-of-sufficient-length-123", validClaims("u"), jwt.SigningMethodHS256)},
		{"expired", signToken(t, testSecret, expired, jwt.SigningMethodHS256)},
		{"missing exp", signToken(t, testSecret, noExp, jwt.SigningMethodHS256)},
		{"missing subject", signToken(t, testSecret, validClaims(""), jwt.SigningMethodHS256)},
		{"wrong algorithm", signToken(t, testSecret, validClaims("u"), jwt.SigningMethodHS512)},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(ctx, tt.token)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeInvalidToken, apperrors.GetServiceError(err).Code)
		})
	}

	_, err = NewJWTVerifier("  ")
	assert.Error(t, err)
}

type stubSessions struct {
	user *supabase.User
	err  error
}

func (s stubSessions) GetUser(context.Context, string) (*supabase.User, error) {
	return s.user, s.err
}

func TestSupabaseVerifier(t *testing.T) {
	ctx := context.Background()

	actor, err := NewSupabaseVerifier(stubSessions{user: &supabase.User{ID: "u9", Role: "authenticated"}}).Verify(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u9", actor.ID)

	_, err = NewSupabaseVerifier(stubSessions{err: supabase.ErrUnauthorized}).Verify(ctx, "tok")
	assert.Equal(t, apperrors.CodeInvalidToken, apperrors.GetServiceError(err).Code)

	down := errors.New("connection refused")
	_, err = NewSupabaseVerifier(stubSessions{err: down}).Verify(ctx, "tok")
	assert.ErrorIs(t, err, down)
}

func TestResolverRegistersProfiles(t *testing.T) {
	store := memory.New()
	v, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)
	r := NewResolver(v, store, nil)
	ctx := context.Background()

	known, err := r.ActorExists(ctx, "user-7")
	require.NoError(t, err)
	assert.False(t, known)

	_, err = r.Authenticate(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	actor, err := r.Authenticate(ctx, signToken(t, testSecret, validClaims("user-7"), jwt.SigningMethodHS256))
	require.NoError(t, err)
	assert.Equal(t, "user-7", actor.ID)

	known, err = r.ActorExists(ctx, "user-7")
	require.NoError(t, err)
	assert.True(t, known)

	known, err = r.ActorExists(ctx, " ")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestResolverStoresUsername(t *testing.T) {
	store := memory.New()
	v, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)
	r := NewResolver(v, store, nil)
	ctx := context.Background()

	claims := validClaims("user-8")
	claims.UserMetadata = map[string]any{"username": " dana "}
	actor, err := r.Authenticate(ctx, signToken(t, testSecret, claims, jwt.SigningMethodHS256))
	require.NoError(t, err)
	assert.Equal(t, "dana", actor.Username)

	// a later token without metadata keeps the stored name
	_, err = r.Authenticate(ctx, signToken(t, testSecret, validClaims("user-8"), jwt.SigningMethodHS256))
	require.NoError(t, err)

	p, err := r.Profile(ctx, "user-8")
	require.NoError(t, err)
	assert.Equal(t, "dana", p.Username)

	_, err = r.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = r.Profile(ctx, " ")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetServiceError(err).Code)
}

func TestSupabaseVerifierReadsUsername(t *testing.T) {
	user := &supabase.User{ID: "u10", UserMetadata: map[string]any{"username": "eve"}}
	actor, err := NewSupabaseVerifier(stubSessions{user: user}).Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "eve", actor.Username)
}
