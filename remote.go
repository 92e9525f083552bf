package authgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/authgate-io/authgate/broker"
	"github.com/authgate-io/authgate/rpc"
)

// RemoteVerifier checks bearer tokens from a process that does not share
// code or memory with the issuer, by calling the issuer's verification
// server over the broker. Calls are independent; many may be in flight at
// once.
type RemoteVerifier struct {
	client  *rpc.Client
	timeout time.Duration
	metrics *Metrics
}

// NewRemoteVerifier starts a verifier against the issuer's request queue.
// metrics may be nil. A nil logger falls back to [slog.Default].
func NewRemoteVerifier(b broker.Broker, cfg RPCConfig, metrics *Metrics, logger *slog.Logger) (*RemoteVerifier, error) {
	client, err := rpc.NewClient(b, cfg.RequestQueue, logger)
	if err != nil {
		return nil, err
	}
	return &RemoteVerifier{
		client:  client,
		timeout: cfg.CallTimeout,
		metrics: metrics,
	}, nil
}

// Verify submits the token for remote validation and returns the issuer's
// verdict. A missing reply surfaces as [rpc.ErrTimeout]; a dispatch-level
// rejection surfaces as an error carrying the server's message.
func (v *RemoteVerifier) Verify(ctx context.Context, tokenStr string) (bool, error) {
	payload, err := json.Marshal(tokenVerificationRequest{
		ServiceName: ServiceJWTVerification,
		Type:        "Bearer",
		Token:       tokenStr,
	})
	if err != nil {
		return false, fmt.Errorf("verification request encoding: %w", err)
	}

	v.metrics.Inc(MetricRPCCall)
	body, err := v.client.Call(ctx, payload, v.timeout)
	if err != nil {
		if errors.Is(err, rpc.ErrTimeout) {
			v.metrics.Inc(MetricRPCTimeout)
		}
		return false, err
	}

	var reply rpc.Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		return false, fmt.Errorf("malformed verification reply: %w", err)
	}
	if reply.Error != "" {
		return false, fmt.Errorf("verification rejected: %s", reply.Error)
	}

	var valid bool
	if err := json.Unmarshal(reply.Message, &valid); err != nil {
		return false, fmt.Errorf("malformed verification verdict: %w", err)
	}
	return valid, nil
}

// Close stops the reply consumer.
func (v *RemoteVerifier) Close() {
	v.client.Close()
}
