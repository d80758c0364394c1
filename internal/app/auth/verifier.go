package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/internal/supabase"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier turns a bearer token into an Actor.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Actor, error)
}

// Claims are the fields read from a Supabase access token.
type Claims struct {
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// usernameFrom reads the display name Supabase keeps in user metadata.
func usernameFrom(metadata map[string]any) string {
	name, _ := metadata["username"].(string)
	return strings.TrimSpace(name)
}

// JWTVerifier validates HS256 access tokens signed with the project secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier returns a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Verify parses token and requires a subject and an unexpired exp claim.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Actor, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return Actor{}, apperrors.InvalidToken(err)
	}
	if !parsed.Valid {
		return Actor{}, apperrors.InvalidToken(nil)
	}
	if claims.Subject == "" {
		return Actor{}, apperrors.InvalidToken(nil).WithDetails("reason", "missing subject")
	}
	return Actor{
		ID:       claims.Subject,
		Role:     claims.Role,
		Email:    claims.Email,
		Username: usernameFrom(claims.UserMetadata),
	}, nil
}

// SessionClient is the subset of the Supabase client used for remote checks.
type SessionClient interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
}

// SupabaseVerifier asks Supabase Auth who owns the token.
type SupabaseVerifier struct {
	client SessionClient
}

// NewSupabaseVerifier returns a verifier backed by client.
func NewSupabaseVerifier(client SessionClient) *SupabaseVerifier {
	return &SupabaseVerifier{client: client}
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (Actor, error) {
	user, err := v.client.GetUser(ctx, token)
	if err != nil {
		if errors.Is(err, supabase.ErrUnauthorized) {
			return Actor{}, apperrors.InvalidToken(err)
		}
		return Actor{}, fmt.Errorf("verify session: %w", err)
	}
	return Actor{ID: user.ID, Role: user.Role, Email: user.Email, Username: usernameFrom(user.UserMetadata)}, nil
}
