package authgate

import (
	"errors"
	"time"
)

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token        TokenConfig
	Verification VerificationConfig
	Notification NotificationConfig
	RPC          RPCConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by authgate APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig defines a public type used by authgate APIs.
//
// VerificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerificationConfig struct {
	// CodeTTL bounds the life of an untouched verification record.
	CodeTTL time.Duration
	// CachePrefix namespaces verification records in the shared cache.
	CachePrefix string
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig defines a public type used by authgate APIs.
//
// NotificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type NotificationConfig struct {
	// BufferSize is the depth of the background send queue. Enqueues
	// beyond it are dropped and counted, never blocked on.
	BufferSize int
}

/*
====================================
RPC CONFIG
====================================
*/

// RPCConfig defines a public type used by authgate APIs.
//
// RPCConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RPCConfig struct {
	// RequestQueue is the well-known queue the verification server consumes.
	RequestQueue string
	// CallTimeout bounds each outbound remote-verification call.
	CallTimeout time.Duration
	// RegistrationQueue receives the new-user document after registration.
	RegistrationQueue string
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL: 30 * time.Minute,
		},
		Verification: VerificationConfig{
			CodeTTL:     360 * time.Second,
			CachePrefix: "pv",
		},
		Notification: NotificationConfig{
			BufferSize: 64,
		},
		RPC: RPCConfig{
			RequestQueue:      "rpc_auth",
			CallTimeout:       5 * time.Second,
			RegistrationQueue: "registration",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = append([]byte(nil), cfg.Token.Secret...)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if len(c.Token.Secret) == 0 {
		return errors.New("token secret required")
	}
	if c.Token.TTL <= 0 {
		return errors.New("invalid token TTL configuration")
	}
	if c.Verification.CodeTTL <= 0 {
		return errors.New("invalid verification code TTL configuration")
	}
	if c.Notification.BufferSize <= 0 {
		return errors.New("invalid notification buffer configuration")
	}
	if c.RPC.RequestQueue == "" {
		return errors.New("rpc request queue required")
	}
	if c.RPC.CallTimeout <= 0 {
		return errors.New("invalid rpc call timeout configuration")
	}
	if c.RPC.RegistrationQueue == "" {
		return errors.New("registration queue required")
	}
	return nil
}
