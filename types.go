package authgate

import (
	"context"
	"log/slog"

	"github.com/authgate-io/authgate/token"
)

// VerifyAs distinguishes proving phone ownership for a brand-new identity
// from re-proving it for an existing one.
type VerifyAs string

const (
	// VerifyAsNewUser is an exported constant or variable used by the authentication service.
	VerifyAsNewUser VerifyAs = "NEW_USER"
	// VerifyAsExistentUser is an exported constant or variable used by the authentication service.
	VerifyAsExistentUser VerifyAs = "EXISTENT_USER"
)

// IdentityRef is the tagged variant over the two identity kinds. Kind selects
// which code field is meaningful; every switch over Kind in this package is
// exhaustive, so adding a third kind is a compile-surfaced change.
type IdentityRef struct {
	Kind         token.UserKind
	NationalCode string // set when Kind is token.UserReal
	CompanyCode  string // set when Kind is token.UserLegal
}

// RealIdentity references a natural person by national code.
func RealIdentity(nationalCode string) IdentityRef {
	return IdentityRef{Kind: token.UserReal, NationalCode: nationalCode}
}

// LegalIdentity references a company by company code.
func LegalIdentity(companyCode string) IdentityRef {
	return IdentityRef{Kind: token.UserLegal, CompanyCode: companyCode}
}

// Disambiguator returns the national or company code that binds a
// verification record to this identity.
func (r IdentityRef) Disambiguator() (string, error) {
	switch r.Kind {
	case token.UserReal:
		return r.NationalCode, nil
	case token.UserLegal:
		return r.CompanyCode, nil
	default:
		return "", ErrUnknownIdentityKind
	}
}

// SendCodeRequest asks for a verification code to be sent to a phone number
// on behalf of the referenced identity.
type SendCodeRequest struct {
	Identity IdentityRef
	Phone    string
	VerifyAs VerifyAs
}

// VerifyCodeRequest submits a previously sent code for checking. Identity,
// phone, and intent must repeat the values used on send.
type VerifyCodeRequest struct {
	Identity IdentityRef
	Phone    string
	VerifyAs VerifyAs
	Code     string
}

// Credentials is a password login attempt for the referenced identity on a
// specific platform/role.
type Credentials struct {
	Identity IdentityRef
	Password string
	Platform token.PlatformRole
}

// UserRecord is the directory's view of an account as consumed by this core.
// Mutations beyond Create and the last-login touch belong to the directory's
// own API surface.
type UserRecord struct {
	ID           string
	Kind         token.UserKind
	NationalCode string
	CompanyCode  string
	Phone        string
	FirstName    string
	LastName     string
	PasswordHash string
	Roles        []token.RoleGrant
}

// HasRole reports whether the record holds the role on the platform.
func (u *UserRecord) HasRole(platform, role string) bool {
	return token.HasRole(u.Roles, platform, role)
}

// TokenUser projects the record into the claim-set identity snapshot.
func (u *UserRecord) TokenUser() token.User {
	return token.User{
		ID:    u.ID,
		Type:  u.Kind,
		Roles: u.Roles,
	}
}

// UserDirectory is the identity-store port. Lookups return
// [ErrUserDoesNotExist] (possibly wrapped) when no account matches; this core
// consumes the directory read-mostly and never updates accounts beyond the
// operations named here.
type UserDirectory interface {
	ByNationalCode(ctx context.Context, nationalCode string) (*UserRecord, error)
	ByCompanyCode(ctx context.Context, companyCode string) (*UserRecord, error)
	ByID(ctx context.Context, id string) (*UserRecord, error)
	Create(ctx context.Context, record *UserRecord) (*UserRecord, error)
	EnsureRole(ctx context.Context, platform string, names []string) error
	TouchLastLogin(ctx context.Context, id string) error
}

// Notifier delivers one SMS message. Sends are dispatched fire-and-forget
// from a background worker; a returned error is logged, never propagated to
// the caller that triggered it.
type Notifier interface {
	Send(ctx context.Context, phone, text string) error
}

type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a Notifier that logs instead of sending, for dev
// and test deployments without an SMS provider.
func NewLogNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Send(_ context.Context, phone, text string) error {
	n.logger.Info("sms notification", "phone", phone, "text", text)
	return nil
}

// PasswordVerifier checks a plaintext password against the directory's
// stored hash. Hashing lives with the collaborator that writes the hash;
// this core only consumes the comparison.
type PasswordVerifier interface {
	Verify(hash, plain string) bool
}
