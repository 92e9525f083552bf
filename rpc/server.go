package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/authgate-io/authgate/broker"
)

// HandlerFunc implements one RPC operation. It receives the full request
// body and returns the value placed under "message" in the reply.
type HandlerFunc func(ctx context.Context, request json.RawMessage) (any, error)

// Server consumes a well-known queue and dispatches each request to the
// handler registered under its "service_name". Handler success publishes a
// correlated reply to the request's reply-to queue. Handler failure is logged
// and acknowledged without reply, so the caller observes a timeout; only an
// unknown service name produces a structured {"error": ...} rejection.
type Server struct {
	broker   broker.Broker
	logger   *slog.Logger
	handlers map[string]HandlerFunc
}

// NewServer returns a server with an empty handler registry. A nil logger
// falls back to [slog.Default].
func NewServer(b broker.Broker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		broker:   b,
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers handler under serviceName. Registration must finish
// before Serve starts; the registry is not locked afterwards.
func (s *Server) Handle(serviceName string, handler HandlerFunc) {
	s.handlers[serviceName] = handler
}

// Serve consumes the named queue until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, queue string) error {
	s.logger.Info("rpc: serving", "queue", queue)
	return s.broker.Consume(ctx, queue, s.dispatch)
}

func (s *Server) dispatch(ctx context.Context, msg broker.Message) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		return nil, fmt.Errorf("rpc: malformed request body: %w", err)
	}

	handler, ok := s.handlers[env.ServiceName]
	if !ok {
		s.logger.Warn("rpc: unknown service requested", "service_name", env.ServiceName)
		return json.Marshal(Reply{Error: "invalid service name"})
	}

	result, err := handler(ctx, msg.Body)
	if err != nil {
		return nil, fmt.Errorf("rpc: %s handler: %w", env.ServiceName, err)
	}

	message, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("rpc: %s reply encoding: %w", env.ServiceName, err)
	}

	s.logger.Info("rpc: request complete", "service_name", env.ServiceName)
	return json.Marshal(Reply{Message: message})
}
