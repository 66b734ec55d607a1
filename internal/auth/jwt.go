package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"filevault/internal/model"
)

const maxSubjectLen = 128

// KeySource resolves the verification key for a token's "kid" header.
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

// Options configures claim checks shared by all verifiers.
type Options struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// idTokenClaims covers the registered claims plus the profile claims the identity provider adds.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// JWTVerifier verifies signed ID tokens either with a static HMAC secret or with RSA keys
// looked up by "kid".
type JWTVerifier struct {
	secret []byte
	keys   KeySource
	opts   []jwt.ParserOption
}

var _ TokenVerifier = (*JWTVerifier)(nil)

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte, o Options) *JWTVerifier {
	return &JWTVerifier{
		secret: secret,
		opts:   parserOptions(jwt.SigningMethodHS256.Alg(), o),
	}
}

// NewRemoteVerifier verifies RS256 tokens whose keys are served by keys.
func NewRemoteVerifier(keys KeySource, o Options) *JWTVerifier {
	return &JWTVerifier{
		keys: keys,
		opts: parserOptions(jwt.SigningMethodRS256.Alg(), o),
	}
}

func parserOptions(alg string, o Options) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(o.Leeway),
	}
	if o.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(o.Issuer))
	}
	if o.Audience != "" {
		opts = append(opts, jwt.WithAudience(o.Audience))
	}
	return opts
}

// Verify parses and validates token. Every failure wraps ErrUnauthenticated.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, ErrUnauthenticated
	}

	claims := &idTokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if v.secret != nil {
			return v.secret, nil
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.keys.Key(ctx, kid)
	}, v.opts...)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	if claims.Subject == "" || len(claims.Subject) > maxSubjectLen {
		return model.Identity{}, fmt.Errorf("%w: invalid subject", ErrUnauthenticated)
	}

	id := model.Identity{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Picture:   claims.Picture,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
