package helpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenCookie = "access_token"
	ContextUserKey    = "user"
)

var (
	ErrMissingToken = errors.New("access token not found")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenValidator checks access tokens either against a shared HMAC secret or against
// the keys published at a JWKS endpoint.
type TokenValidator struct {
	keyfunc jwt.Keyfunc
	methods []string
	jwks    *keyfunc.JWKS
}

func NewTokenValidator(ctx context.Context, secret, jwksURL string, logger *slog.Logger) (*TokenValidator, error) {
	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			Ctx:               ctx,
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Error("failed to refresh JWKS", "url", jwksURL, "error", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
		}
		return &TokenValidator{
			keyfunc: jwks.Keyfunc,
			methods: []string{"RS256", "ES256"},
			jwks:    jwks,
		}, nil
	}

	if secret == "" {
		return nil, errors.New("either JWT_SECRET or JWKS_URL is required")
	}
	return NewHMACValidator(secret), nil
}

func NewHMACValidator(secret string) *TokenValidator {
	key := []byte(secret)
	return &TokenValidator{
		keyfunc: func(*jwt.Token) (interface{}, error) { return key, nil },
		methods: []string{jwt.SigningMethodHS256.Alg()},
	}
}

func (tv *TokenValidator) ValidateToken(tokenStr string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, tv.keyfunc,
		jwt.WithValidMethods(tv.methods),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Close stops the background JWKS refresh.
func (tv *TokenValidator) Close() {
	if tv.jwks != nil {
		tv.jwks.EndBackground()
	}
}

// TokenFromRequest reads the access token from the access_token cookie, falling back
// to a Bearer Authorization header.
func TokenFromRequest(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), nil
	}
	return "", ErrMissingToken
}

// StringTrim trims every value and drops the ones left empty.
func StringTrim(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
