package authgate

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/authgate-io/authgate/broker"
	"github.com/authgate-io/authgate/cache"
	"github.com/authgate-io/authgate/token"
)

// Builder defines a public type used by authgate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	cache     cache.Cache
	broker    broker.Broker
	directory UserDirectory
	notifier  Notifier
	passwords PasswordVerifier
	logger    *slog.Logger

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis wires the verification-record cache to a Redis client. Key
// namespacing is applied by the verification store, not here.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.cache = cache.NewRedis(client, "")
	return b
}

// WithCache wires an explicit cache implementation, replacing WithRedis.
func (b *Builder) WithCache(c cache.Cache) *Builder {
	b.cache = c
	return b
}

// WithBroker describes the withbroker operation and its observable behavior.
//
// WithBroker does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBroker(br broker.Broker) *Builder {
	b.broker = br
	return b
}

// WithUserDirectory describes the withuserdirectory operation and its observable behavior.
//
// WithUserDirectory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithNotifier describes the withnotifier operation and its observable behavior.
//
// WithNotifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithPasswordVerifier describes the withpasswordverifier operation and its observable behavior.
//
// WithPasswordVerifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.passwords = v
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates configuration and dependencies and returns a ready
// [Service]. Every dependency is explicit; there is no ambient process-wide
// service handle.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.cache == nil {
		return nil, errors.New("cache required")
	}
	if b.broker == nil {
		return nil, errors.New("broker required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.passwords == nil {
		return nil, errors.New("password verifier required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	codec, err := token.NewCodec(token.Config{
		Secret: cfg.Token.Secret,
		TTL:    cfg.Token.TTL,
	})
	if err != nil {
		return nil, err
	}

	b.built = true

	metrics := &Metrics{}

	return &Service{
		config:       cfg,
		codec:        codec,
		cache:        b.cache,
		broker:       b.broker,
		directory:    b.directory,
		passwords:    b.passwords,
		verification: newVerificationStore(b.cache, cfg.Verification.CachePrefix),
		notify:       newNotifyDispatcher(notifier, logger, cfg.Notification.BufferSize, metrics),
		metrics:      metrics,
		logger:       logger,
	}, nil
}
