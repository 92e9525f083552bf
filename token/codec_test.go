package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestCodec(t *testing.T, ttl time.Duration) *Codec {
	t.Helper()

	codec, err := NewCodec(Config{
		Secret: []byte("test-secret-0123456789"),
		TTL:    ttl,
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func testUser() User {
	return User{
		ID:   "U1",
		Type: UserReal,
		Roles: []RoleGrant{
			{Platform: "*", Names: []string{"admin"}},
			{Platform: "shop", Names: []string{"customer", "seller"}},
		},
	}
}

func TestIssueDecodeRoundTrip(t *testing.T) {
	codec := newTestCodec(t, 30*time.Minute)
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return issued }

	tok, err := codec.Issue(testUser(), "*", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if parts := strings.Split(tok, "."); len(parts) != 3 {
		t.Fatalf("expected three-part token, got %d parts", len(parts))
	}

	claims, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if claims.User.ID != "U1" {
		t.Fatalf("user id = %q, want U1", claims.User.ID)
	}
	if claims.User.Type != UserReal {
		t.Fatalf("user type = %q, want %q", claims.User.Type, UserReal)
	}
	if len(claims.User.Roles) != 2 ||
		claims.User.Roles[0].Platform != "*" ||
		claims.User.Roles[0].Names[0] != "admin" ||
		claims.User.Roles[1].Platform != "shop" ||
		len(claims.User.Roles[1].Names) != 2 {
		t.Fatalf("roles snapshot mismatch: %+v", claims.User.Roles)
	}
	if claims.CurrentPlatform.Platform != "*" || claims.CurrentPlatform.Role != "admin" {
		t.Fatalf("current platform mismatch: %+v", claims.CurrentPlatform)
	}
	if got := claims.Expiration.Time; !got.Equal(issued.Add(30 * time.Minute)) {
		t.Fatalf("expiration = %v, want %v", got, issued.Add(30*time.Minute))
	}

	if !codec.Verify(tok) {
		t.Fatal("Verify returned false for a freshly issued token")
	}
}

func TestDecodeExpired(t *testing.T) {
	codec := newTestCodec(t, 30*time.Minute)
	issued := time.Now().UTC()
	codec.now = func() time.Time { return issued }

	tok, err := codec.Issue(testUser(), "*", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	codec.now = func() time.Time { return issued.Add(31 * time.Minute) }

	if _, err := codec.Decode(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("Decode error = %v, want ErrExpired", err)
	}
	if codec.Verify(tok) {
		t.Fatal("Verify returned true for an expired token")
	}
}

func TestDecodeNotExpiredAtBoundaryMinusOne(t *testing.T) {
	codec := newTestCodec(t, 30*time.Minute)
	issued := time.Now().UTC()
	codec.now = func() time.Time { return issued }

	tok, err := codec.Issue(testUser(), "*", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	codec.now = func() time.Time { return issued.Add(29 * time.Minute) }
	if _, err := codec.Decode(tok); err != nil {
		t.Fatalf("Decode failed before expiration: %v", err)
	}
}

func TestDecodeTamperedSignature(t *testing.T) {
	codec := newTestCodec(t, 30*time.Minute)

	tok, err := codec.Issue(testUser(), "*", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.Split(tok, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := codec.Decode(tampered); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Decode error = %v, want ErrInvalidSignature", err)
	}
	if codec.Verify(tampered) {
		t.Fatal("Verify returned true for a tampered token")
	}
}

func TestDecodeTamperedPayload(t *testing.T) {
	codec := newTestCodec(t, 30*time.Minute)

	tok, err := codec.Issue(testUser(), "*", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.Split(tok, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if codec.Verify(tampered) {
		t.Fatal("Verify returned true for a payload-tampered token")
	}
}

func TestDecodeMalformed(t *testing.T) {
	codec := newTestCodec(t, 30*time.Minute)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := codec.Decode(tok); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("Decode(%q) error = %v, want ErrMalformedToken", tok, err)
		}
	}
}

func TestDecodeWrongSecret(t *testing.T) {
	codec := newTestCodec(t, 30*time.Minute)

	other, err := NewCodec(Config{
		Secret: []byte("a-different-secret-key"),
		TTL:    30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	tok, err := other.Issue(testUser(), "*", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := codec.Decode(tok); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Decode error = %v, want ErrInvalidSignature", err)
	}
}

func TestDecodeRequiresExpiration(t *testing.T) {
	codec := newTestCodec(t, 30*time.Minute)

	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": map[string]any{"_id": "U1"},
	})
	tok, err := bare.SignedString([]byte("test-secret-0123456789"))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := codec.Decode(tok); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("Decode error = %v, want ErrMalformedToken", err)
	}
}

func TestIssueMissingIdentity(t *testing.T) {
	codec := newTestCodec(t, 30*time.Minute)

	if _, err := codec.Issue(User{}, "*", "admin"); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("Issue error = %v, want ErrMissingIdentity", err)
	}
}

func TestNewCodecValidation(t *testing.T) {
	if _, err := NewCodec(Config{TTL: time.Minute}); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewCodec(Config{Secret: []byte("s")}); err == nil {
		t.Fatal("expected error for zero TTL")
	}
}

func TestHasRole(t *testing.T) {
	grants := []RoleGrant{
		{Platform: "*", Names: []string{"admin"}},
		{Platform: "shop", Names: []string{"customer"}},
	}

	if !HasRole(grants, "*", "admin") {
		t.Fatal("expected admin grant on *")
	}
	if HasRole(grants, "shop", "admin") {
		t.Fatal("unexpected admin grant on shop")
	}
	if HasRole(grants, "blog", "admin") {
		t.Fatal("unexpected grant on unknown platform")
	}
	// Matching stops at the first grant for a platform.
	dup := append(grants, RoleGrant{Platform: "shop", Names: []string{"admin"}})
	if HasRole(dup, "shop", "admin") {
		t.Fatal("expected first shop grant to win")
	}
}
