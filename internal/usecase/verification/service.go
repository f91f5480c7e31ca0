package verification

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/format"
)

// Reasons reported when the backend gives no usable message
const (
	ReasonNotFound    = "account not found"
	ReasonUnavailable = domain.DefaultUnavailableMessage
	ReasonUnknown     = "could not verify account"
)

// Service wraps the backend verification capability
type Service struct {
	Gateway domain.VerificationGateway
	Logger  *zap.Logger
}

// NewService creates a new verification Service instance
func NewService(gateway domain.VerificationGateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Gateway: gateway,
		Logger:  logger,
	}
}

// Verify resolves identifier to a display name.
// identifier must already be canonical; it is not re-validated here.
// Logic:
//  1. Inter-institution mode without a routing code is a programmer error (ErrMissingRoutingCode)
//  2. Perform exactly one round-trip; no retries
//  3. Any backend or network failure is returned as *domain.VerificationError
func (s *Service) Verify(ctx context.Context, identifier string, mode domain.TransferMode, routingCode string) (*domain.VerifiedRecipient, error) {
	if !mode.Valid() {
		return nil, domain.ErrInvalidMode
	}

	// Same-institution lookups never carry a routing code
	if mode.RequiresRoutingCode() {
		if strings.TrimSpace(routingCode) == "" {
			return nil, domain.ErrMissingRoutingCode
		}
	} else {
		routingCode = ""
	}

	logger := s.Logger.With(
		zap.String("account", format.MaskAccountNumber(identifier)),
		zap.String("mode", string(mode)),
	)

	recipient, err := s.Gateway.VerifyAccount(ctx, identifier, routingCode)
	if err != nil {
		reason := reasonFor(err)
		logger.Info("recipient verification failed", zap.String("reason", reason), zap.Error(err))
		return nil, &domain.VerificationError{Reason: reason, Err: err}
	}

	if recipient == nil || strings.TrimSpace(recipient.DisplayName) == "" {
		logger.Warn("recipient verification returned no display name")
		return nil, &domain.VerificationError{Reason: ReasonNotFound}
	}

	logger.Debug("recipient verified")
	return &domain.VerifiedRecipient{DisplayName: strings.TrimSpace(recipient.DisplayName)}, nil
}

// reasonFor picks the user-facing reason for a failed lookup
func reasonFor(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Kind == domain.APIErrorNotFound && apiErr.Message == "" {
		return ReasonNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ReasonUnavailable
	}
	return domain.UserMessage(err, ReasonUnknown)
}
