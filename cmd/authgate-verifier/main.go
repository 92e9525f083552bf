// Command authgate-verifier runs the token-verification consumer loop: it
// connects Redis and RabbitMQ, mounts the jwt_verification operation, and
// serves the request queue until interrupted.
//
// With -dev it runs self-contained on miniredis and an in-process broker and
// performs one issue→remote-verify round trip as a smoke check.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	"github.com/authgate-io/authgate"
	"github.com/authgate-io/authgate/broker"
	"github.com/authgate-io/authgate/token"
)

type config struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	AMQPURL       string        `env:"AMQP_URL"`
	TokenSecret   string        `env:"TOKEN_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"30m"`
	RequestQueue  string        `env:"RPC_QUEUE" envDefault:"rpc_auth"`
}

// emptyDirectory satisfies the directory port for the verifier daemon, which
// answers token checks only and never resolves identities.
type emptyDirectory struct{}

func (emptyDirectory) ByNationalCode(context.Context, string) (*authgate.UserRecord, error) {
	return nil, authgate.ErrUserDoesNotExist
}

func (emptyDirectory) ByCompanyCode(context.Context, string) (*authgate.UserRecord, error) {
	return nil, authgate.ErrUserDoesNotExist
}

func (emptyDirectory) ByID(context.Context, string) (*authgate.UserRecord, error) {
	return nil, authgate.ErrUserDoesNotExist
}

func (emptyDirectory) Create(context.Context, *authgate.UserRecord) (*authgate.UserRecord, error) {
	return nil, fmt.Errorf("verifier daemon directory is read-only")
}

func (emptyDirectory) EnsureRole(context.Context, string, []string) error {
	return fmt.Errorf("verifier daemon directory is read-only")
}

func (emptyDirectory) TouchLastLogin(context.Context, string) error {
	return nil
}

// noPasswords rejects every login attempt; the daemon issues no tokens.
type noPasswords struct{}

func (noPasswords) Verify(string, string) bool { return false }

func main() {
	dev := flag.Bool("dev", false, "run self-contained on miniredis and an in-process broker")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := env.ParseAs[config]()
	if err != nil {
		logger.Error("config parse failed", "error", err)
		os.Exit(2)
	}

	if cfg.TokenSecret == "" {
		if !*dev {
			logger.Error("TOKEN_SECRET is required")
			os.Exit(2)
		}
		cfg.TokenSecret = "authgate-dev-secret"
	}

	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		if !*dev {
			logger.Error("REDIS_ADDR is required")
			os.Exit(2)
		}
		mr, err := miniredis.Run()
		if err != nil {
			logger.Error("miniredis start failed", "error", err)
			os.Exit(1)
		}
		defer mr.Close()
		redisAddr = mr.Addr()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	var bus broker.Broker
	if cfg.AMQPURL == "" {
		if !*dev {
			logger.Error("AMQP_URL is required")
			os.Exit(2)
		}
		bus = broker.NewMemory(logger)
	} else {
		bus = broker.NewRabbit(cfg.AMQPURL, logger)
	}
	defer bus.Close()

	serviceCfg := authgate.Config{}
	serviceCfg.Token.Secret = []byte(cfg.TokenSecret)
	serviceCfg.Token.TTL = cfg.TokenTTL
	serviceCfg.Verification.CodeTTL = 360 * time.Second
	serviceCfg.Verification.CachePrefix = "pv"
	serviceCfg.Notification.BufferSize = 64
	serviceCfg.RPC.RequestQueue = cfg.RequestQueue
	serviceCfg.RPC.CallTimeout = 5 * time.Second
	serviceCfg.RPC.RegistrationQueue = "registration"

	service, err := authgate.New().
		WithConfig(serviceCfg).
		WithRedis(rdb).
		WithBroker(bus).
		WithUserDirectory(emptyDirectory{}).
		WithPasswordVerifier(noPasswords{}).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Error("service build failed", "error", err)
		os.Exit(1)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dev {
		go smokeCheck(ctx, service, bus, serviceCfg.RPC, logger)
	}

	if err := service.ServeVerification(ctx); err != nil && ctx.Err() == nil {
		logger.Error("verification server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

// smokeCheck issues a token and verifies it through the full RPC path.
func smokeCheck(ctx context.Context, service *authgate.Service, bus broker.Broker, cfg authgate.RPCConfig, logger *slog.Logger) {
	user := &authgate.UserRecord{
		ID:   "dev-admin",
		Kind: token.UserReal,
		Roles: []token.RoleGrant{
			{Platform: "*", Names: []string{"admin"}},
		},
	}

	tok, err := service.IssueToken(user, "*", "admin")
	if err != nil {
		logger.Error("smoke check issue failed", "error", err)
		return
	}

	verifier, err := authgate.NewRemoteVerifier(bus, cfg, nil, logger)
	if err != nil {
		logger.Error("smoke check client failed", "error", err)
		return
	}
	defer verifier.Close()

	valid, err := verifier.Verify(ctx, tok)
	if err != nil {
		logger.Error("smoke check verify failed", "error", err)
		return
	}
	logger.Info("smoke check complete", "valid", valid)
}
