package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingIdentity is returned by Issue when the user record carries no id.
	ErrMissingIdentity = errors.New("token: missing user identity")
	// ErrInvalidSignature is returned by Decode when the signature does not match the payload.
	ErrInvalidSignature = errors.New("token: invalid signature")
	// ErrMalformedToken is returned by Decode when the token structure or claim fields do not parse.
	ErrMalformedToken = errors.New("token: malformed token")
	// ErrExpired is returned by Decode once the claim set's expiration has passed.
	ErrExpired = errors.New("token: expired token")
)

// UserKind discriminates the two identity kinds carried inside a claim set.
type UserKind string

const (
	// UserReal is a natural person identified by a national code.
	UserReal UserKind = "REAL"
	// UserLegal is a company identified by a company code.
	UserLegal UserKind = "LEGAL"
)

// RoleGrant is one platform's role names as granted to a user. The slice of
// grants inside a claim set is a snapshot taken at issuance time and is never
// refreshed for the lifetime of the token.
type RoleGrant struct {
	Platform string   `json:"platform"`
	Names    []string `json:"names"`
}

// HasRole reports whether the grant set carries the given role on the given
// platform. Matching stops at the first grant for the platform.
func HasRole(grants []RoleGrant, platform, role string) bool {
	for _, g := range grants {
		if g.Platform != platform {
			continue
		}
		for _, name := range g.Names {
			if name == role {
				return true
			}
		}
		return false
	}
	return false
}

// User is the identity portion of a claim set.
type User struct {
	ID    string      `json:"_id"`
	Type  UserKind    `json:"type"`
	Roles []RoleGrant `json:"roles"`
}

// PlatformRole names the platform and role a token was issued for.
type PlatformRole struct {
	Platform string `json:"platform"`
	Role     string `json:"role"`
}

// Claims is the signed token payload: the user snapshot, the platform/role
// context the token was issued for, and an absolute expiration timestamp.
// A claim set is immutable once signed.
type Claims struct {
	User            User             `json:"user"`
	CurrentPlatform PlatformRole     `json:"current_platform"`
	Expiration      *jwt.NumericDate `json:"expiration"`
}

// GetExpirationTime implements [jwt.Claims]. Expiration is carried in the
// custom "expiration" field rather than the registered "exp" claim to keep
// the wire payload identical across the issuing and verifying services.
func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.Expiration, nil }

// GetIssuedAt implements [jwt.Claims].
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) { return nil, nil }

// GetNotBefore implements [jwt.Claims].
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

// GetIssuer implements [jwt.Claims].
func (c Claims) GetIssuer() (string, error) { return "", nil }

// GetSubject implements [jwt.Claims].
func (c Claims) GetSubject() (string, error) { return "", nil }

// GetAudience implements [jwt.Claims].
func (c Claims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

// Config carries the deployment-fixed signing parameters. The secret and TTL
// are configuration, not protocol-negotiable per call.
type Config struct {
	Secret []byte
	TTL    time.Duration
}

// Codec signs and verifies claim sets. It holds no mutable state and is safe
// for concurrent use.
type Codec struct {
	config Config
	parser *jwt.Parser

	// now is the clock used for issuance and expiry validation. Tests
	// override it; production code never does.
	now func() time.Time
}

// NewCodec validates the signing configuration and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: secret required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}

	c := &Codec{
		config: cfg,
		now:    time.Now,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
	)

	return c, nil
}

// Issue builds a claim set for the user with expiration = now + TTL and signs
// it. It fails only when the user record carries no id.
func (c *Codec) Issue(user User, platform, role string) (string, error) {
	if user.ID == "" {
		return "", ErrMissingIdentity
	}

	claims := Claims{
		User: user,
		CurrentPlatform: PlatformRole{
			Platform: platform,
			Role:     role,
		},
		Expiration: jwt.NewNumericDate(c.now().UTC().Add(c.config.TTL)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
}

// Decode parses the token, verifies its signature, and validates expiration.
// It fails with [ErrInvalidSignature], [ErrMalformedToken], or [ErrExpired];
// the claim set is returned only when the token is valid as a whole.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	return claims, nil
}

// Verify reports whether the token decodes cleanly. Every failure kind
// collapses to false; callers that need the distinction use Decode.
func (c *Codec) Verify(tokenStr string) bool {
	_, err := c.Decode(tokenStr)
	return err == nil
}
