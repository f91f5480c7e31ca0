package grpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow/internal/domain"
)

// ServiceName is the fully-qualified Backend API service
const ServiceName = "banking.v1.BankingService"

// Backend API methods
const (
	MethodVerifyAccount            = "/" + ServiceName + "/VerifyAccount"
	MethodVerifyExternalAccount    = "/" + ServiceName + "/VerifyExternalAccount"
	MethodSameInstitutionTransfer  = "/" + ServiceName + "/SameInstitutionTransfer"
	MethodInterInstitutionTransfer = "/" + ServiceName + "/InterInstitutionTransfer"
	MethodGetTransaction           = "/" + ServiceName + "/GetTransaction"
	MethodListBanks                = "/" + ServiceName + "/ListBanks"
)

const tracerName = "transferflow/backend"

// BreakerConfig tunes the circuit breaker guarding Backend API calls
type BreakerConfig struct {
	ConsecutiveFailures uint32        // Trip after this many unavailable responses in a row
	Timeout             time.Duration // Time spent open before a half-open probe
}

// DefaultBreakerConfig is used when a zero BreakerConfig is given
var DefaultBreakerConfig = BreakerConfig{ConsecutiveFailures: 5, Timeout: 30 * time.Second}

// DialConfig describes how to reach the backend
type DialConfig struct {
	Address  string
	Token    string
	Insecure bool
}

// Dial opens a client connection with the trace and auth interceptors installed.
// The connection is lazy; failures surface on the first call.
func Dial(cfg DialConfig) (*grpc.ClientConn, error) {
	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(creds),
		grpc.WithChainUnaryInterceptor(TraceInterceptor(), AuthInterceptor(cfg.Token)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client for %s: %w", cfg.Address, err)
	}
	return conn, nil
}

// Client implements domain.BackendAPI over gRPC
type Client struct {
	conn    grpc.ClientConnInterface
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	metrics clientMetrics
	logger  *zap.Logger
}

var _ domain.BackendAPI = (*Client)(nil)

// NewClient creates a new Client instance
func NewClient(conn grpc.ClientConnInterface, breaker BreakerConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if breaker.ConsecutiveFailures == 0 {
		breaker.ConsecutiveFailures = DefaultBreakerConfig.ConsecutiveFailures
	}
	if breaker.Timeout <= 0 {
		breaker.Timeout = DefaultBreakerConfig.Timeout
	}

	c := &Client{
		conn:    conn,
		tracer:  otel.Tracer(tracerName),
		metrics: newClientMetrics(otel.Meter(tracerName), logger),
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend-api",
		MaxRequests: 1,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breaker.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// BreakerState reports the current circuit breaker state
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// call performs one unary round-trip through the breaker and unwraps the envelope.
// Request payloads are never logged; they may carry a PIN.
func (c *Client) call(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, span := c.tracer.Start(ctx, method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("rpc.system", "grpc"),
		attribute.String("rpc.method", method),
	)

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp := &structpb.Struct{}
		if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
			return nil, mapError(err)
		}
		return resp, nil
	})
	if err != nil {
		err = mapError(err)
		c.metrics.record(ctx, method, err, time.Since(start))
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "backend call failed")
		c.logger.Debug("backend call failed",
			zap.String("method", method),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	data, err := unwrapEnvelope(result.(*structpb.Struct))
	c.metrics.record(ctx, method, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "backend rejected request")
		return nil, err
	}

	c.logger.Debug("backend call succeeded", zap.String("method", method), zap.Duration("elapsed", time.Since(start)))
	return data, nil
}

// VerifyAccount implements domain.VerificationGateway.
// An empty routingCode uses the same-institution lookup.
func (c *Client) VerifyAccount(ctx context.Context, identifier, routingCode string) (*domain.VerifiedRecipient, error) {
	req, err := encodeVerifyRequest(identifier, routingCode)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verify request: %w", err)
	}

	method := MethodVerifyAccount
	if routingCode != "" {
		method = MethodVerifyExternalAccount
	}

	data, err := c.call(ctx, method, req)
	if err != nil {
		return nil, err
	}
	return decodeVerifiedRecipient(data), nil
}

// SameInstitutionTransfer implements domain.TransferGateway
func (c *Client) SameInstitutionTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransactionRecord, error) {
	return c.transfer(ctx, MethodSameInstitutionTransfer, req)
}

// InterInstitutionTransfer implements domain.TransferGateway
func (c *Client) InterInstitutionTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransactionRecord, error) {
	if req.RoutingCode == "" {
		return nil, domain.ErrMissingRoutingCode
	}
	return c.transfer(ctx, MethodInterInstitutionTransfer, req)
}

func (c *Client) transfer(ctx context.Context, method string, req domain.TransferRequest) (*domain.TransactionRecord, error) {
	payload, err := encodeTransferRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer request: %w", err)
	}

	data, err := c.call(ctx, method, payload)
	if err != nil {
		return nil, err
	}
	return decodeTransactionRecord(data)
}

// GetTransaction implements domain.TransferGateway
func (c *Client) GetTransaction(ctx context.Context, reference string) (*domain.TransactionRecord, error) {
	req, err := structpb.NewStruct(map[string]interface{}{fieldReference: reference})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction request: %w", err)
	}

	data, err := c.call(ctx, MethodGetTransaction, req)
	if err != nil {
		return nil, err
	}
	return decodeTransactionRecord(data)
}

// ListBanks implements domain.BankCatalog
func (c *Client) ListBanks(ctx context.Context) ([]domain.Bank, error) {
	data, err := c.call(ctx, MethodListBanks, &structpb.Struct{Fields: map[string]*structpb.Value{}})
	if err != nil {
		return nil, err
	}
	return decodeBanks(data)
}
