package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gregdefoy/zettl/internal/apperr"
)

// Environment sources for the JWT signing secret, checked in order.
const (
	EnvJWTSecret     = "JWT_SECRET"
	EnvJWTSecretFile = "JWT_SECRET_FILE"
)

// Claims are the verified fields the server cares about.
type Claims struct {
	UserID   string
	Username string
	Role     string
}

// Verifier validates HS256 JWTs issued by the token service.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier with an explicit secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// VerifierFromEnv builds a Verifier from JWT_SECRET, or the file named by
// JWT_SECRET_FILE.
func VerifierFromEnv() (*Verifier, error) {
	if s := os.Getenv(EnvJWTSecret); s != "" {
		return NewVerifier([]byte(s)), nil
	}
	if path := os.Getenv(EnvJWTSecretFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", EnvJWTSecretFile, err)
		}
		secret := []byte(strings.TrimSpace(string(data)))
		if len(secret) == 0 {
			return nil, fmt.Errorf("%s points at an empty file", EnvJWTSecretFile)
		}
		return NewVerifier(secret), nil
	}
	return nil, fmt.Errorf("neither %s nor %s is set", EnvJWTSecret, EnvJWTSecretFile)
}

// Verify parses and validates a token, rejecting anything not signed with
// HS256 and the configured secret.
func (v *Verifier) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w: %w", err, apperr.ErrUnauthorized)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("unexpected claims type: %w", apperr.ErrUnauthorized)
	}
	c := Claims{
		UserID:   stringClaim(mc, "sub"),
		Username: stringClaim(mc, "username"),
		Role:     stringClaim(mc, "role"),
	}
	if c.UserID == "" {
		return Claims{}, fmt.Errorf("token has no subject: %w", apperr.ErrUnauthorized)
	}
	return c, nil
}

func stringClaim(mc jwt.MapClaims, key string) string {
	if v, ok := mc[key].(string); ok {
		return v
	}
	return ""
}
