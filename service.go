package authgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/authgate-io/authgate/broker"
	"github.com/authgate-io/authgate/cache"
	"github.com/authgate-io/authgate/rpc"
	"github.com/authgate-io/authgate/token"
)

// ServiceJWTVerification is the RPC service name for remote token checks.
const ServiceJWTVerification = "jwt_verification"

// tokenVerificationRequest is the RPC request body for ServiceJWTVerification.
// The shape is fixed across the issuing and verifying processes.
type tokenVerificationRequest struct {
	ServiceName string `json:"service_name"`
	Type        string `json:"type"`
	Token       string `json:"token"`
}

// Service defines a public type used by authgate APIs.
//
// Service instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Service struct {
	config       Config
	codec        *token.Codec
	cache        cache.Cache
	broker       broker.Broker
	directory    UserDirectory
	passwords    PasswordVerifier
	verification *verificationStore
	notify       *notifyDispatcher
	metrics      *Metrics
	logger       *slog.Logger
}

// Close stops the background notification worker after draining it.
func (s *Service) Close() {
	if s == nil {
		return
	}
	if s.notify != nil {
		s.notify.Close()
	}
}

// NotificationsDropped reports notifications discarded on a full buffer.
func (s *Service) NotificationsDropped() uint64 {
	if s == nil || s.notify == nil {
		return 0
	}
	return s.notify.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return s.metrics.Snapshot()
}

// IssueToken signs a bearer token for the user in the given platform/role
// context. The role snapshot inside the claim set is frozen at issuance.
func (s *Service) IssueToken(user *UserRecord, platform, role string) (string, error) {
	tok, err := s.codec.Issue(user.TokenUser(), platform, role)
	if err != nil {
		return "", err
	}
	s.metrics.Inc(MetricTokenIssued)
	return tok, nil
}

// DecodeToken parses and validates a token locally, returning the claim set.
func (s *Service) DecodeToken(tokenStr string) (*token.Claims, error) {
	return s.codec.Decode(tokenStr)
}

// VerifyToken reports whether the token validates locally. Every failure
// kind collapses to false.
func (s *Service) VerifyToken(tokenStr string) bool {
	if s.codec.Verify(tokenStr) {
		s.metrics.Inc(MetricTokenVerified)
		return true
	}
	s.metrics.Inc(MetricTokenRejected)
	return false
}

// Authenticate resolves the identity, checks the password against the stored
// hash, and confirms the requested platform/role grant. Credential failures
// collapse to [ErrUnauthorized]; a valid credential without the requested
// grant fails [ErrRoleNotGranted].
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*UserRecord, error) {
	user, err := s.lookupIdentity(ctx, creds.Identity)
	if err != nil {
		if errors.Is(err, ErrUserDoesNotExist) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if !s.passwords.Verify(user.PasswordHash, creds.Password) {
		return nil, ErrUnauthorized
	}

	if !user.HasRole(creds.Platform.Platform, creds.Platform.Role) {
		return nil, ErrRoleNotGranted
	}

	if err := s.directory.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("last-login touch failed", "user_id", user.ID, "error", err)
	}

	return user, nil
}

// Login authenticates and issues a token for the credential's platform/role.
func (s *Service) Login(ctx context.Context, creds Credentials) (string, error) {
	user, err := s.Authenticate(ctx, creds)
	if err != nil {
		return "", err
	}
	return s.IssueToken(user, creds.Platform.Platform, creds.Platform.Role)
}

// RegistrationRequest carries a new account and the verification proving
// ownership of its phone number.
type RegistrationRequest struct {
	User         UserRecord
	Verification VerifyCodeRequest
}

// Register consumes the verification code, creates the account through the
// directory, and announces it on the registration queue.
func (s *Service) Register(ctx context.Context, req RegistrationRequest) (*UserRecord, error) {
	if err := s.VerifyCode(ctx, req.Verification, true); err != nil {
		return nil, err
	}

	created, err := s.directory.Create(ctx, &req.User)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(created)
	if err != nil {
		return nil, fmt.Errorf("registration event encoding: %w", err)
	}
	if err := s.broker.Publish(ctx, s.config.RPC.RegistrationQueue, broker.Message{Body: body}); err != nil {
		return nil, err
	}

	return created, nil
}

// CreateAdmin bootstraps the wildcard admin role and an admin account. The
// password hash is produced by the collaborator that owns hashing.
func (s *Service) CreateAdmin(ctx context.Context, nationalCode, phone, firstName, lastName, passwordHash string) (*UserRecord, error) {
	if err := s.directory.EnsureRole(ctx, "*", []string{"admin"}); err != nil {
		return nil, err
	}

	return s.directory.Create(ctx, &UserRecord{
		Kind:         token.UserReal,
		NationalCode: nationalCode,
		Phone:        phone,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		Roles: []token.RoleGrant{
			{Platform: "*", Names: []string{"admin"}},
		},
	})
}

// HealthStatus reports reachability of the external collaborators.
type HealthStatus struct {
	Cache  bool
	Broker bool
}

// Health pings the cache and the broker.
func (s *Service) Health(ctx context.Context) HealthStatus {
	return HealthStatus{
		Cache:  s.cache.Ping(ctx),
		Broker: s.broker.Ping(ctx),
	}
}

// VerificationServer returns an RPC server with the token-verification
// operation mounted. The caller runs Serve on the configured request queue.
func (s *Service) VerificationServer() *rpc.Server {
	server := rpc.NewServer(s.broker, s.logger)
	server.Handle(ServiceJWTVerification, func(_ context.Context, request json.RawMessage) (any, error) {
		var req tokenVerificationRequest
		if err := json.Unmarshal(request, &req); err != nil {
			return nil, fmt.Errorf("malformed verification request: %w", err)
		}
		return s.VerifyToken(req.Token), nil
	})
	return server
}

// ServeVerification runs the token-verification consumer loop on the
// configured request queue until ctx is cancelled.
func (s *Service) ServeVerification(ctx context.Context) error {
	return s.VerificationServer().Serve(ctx, s.config.RPC.RequestQueue)
}
