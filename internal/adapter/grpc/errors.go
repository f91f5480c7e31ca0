package grpc

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/transferflow/internal/domain"
)

// mapError converts a transport error into a domain APIError.
// Status messages are kept verbatim so the user sees what the backend said.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.APIError{Kind: domain.APIErrorUnavailable, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &domain.APIError{Kind: domain.APIErrorUnavailable, Err: err}
	}

	st, ok := status.FromError(err)
	if !ok {
		return &domain.APIError{Kind: domain.APIErrorUnavailable, Err: err}
	}

	switch st.Code() {
	case codes.NotFound:
		return &domain.APIError{Kind: domain.APIErrorNotFound, Message: st.Message(), Err: err}
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		// Transport-level detail is not meant for the user
		return &domain.APIError{Kind: domain.APIErrorUnavailable, Err: err}
	case codes.DataLoss, codes.Unimplemented:
		return &domain.APIError{Kind: domain.APIErrorMalformed, Message: st.Message(), Err: err}
	default:
		return &domain.APIError{Kind: domain.APIErrorRejected, Message: st.Message(), Err: err}
	}
}

// countsAsFailure reports whether err should trip the circuit breaker.
// Business rejections mean the backend is healthy.
func countsAsFailure(err error) bool {
	return domain.IsUnavailable(err)
}
