package verification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferflow/internal/domain"
)

// MockVerificationGateway is a mock implementation of VerificationGateway for testing
type MockVerificationGateway struct {
	mock.Mock
}

func (m *MockVerificationGateway) VerifyAccount(ctx context.Context, identifier, routingCode string) (*domain.VerifiedRecipient, error) {
	args := m.Called(ctx, identifier, routingCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerifiedRecipient), args.Error(1)
}

func TestVerify_SameInstitution(t *testing.T) {
	ctx := context.Background()
	gateway := new(MockVerificationGateway)
	service := NewService(gateway, nil)

	// Routing code is dropped for same-institution lookups
	gateway.On("VerifyAccount", ctx, "0123456789", "").
		Return(&domain.VerifiedRecipient{DisplayName: " John Doe "}, nil).Once()

	recipient, err := service.Verify(ctx, "0123456789", domain.TransferModeSameInstitution, "058")

	require.NoError(t, err)
	assert.Equal(t, "John Doe", recipient.DisplayName)
	gateway.AssertExpectations(t)
}

func TestVerify_InterInstitution(t *testing.T) {
	ctx := context.Background()
	gateway := new(MockVerificationGateway)
	service := NewService(gateway, nil)

	gateway.On("VerifyAccount", ctx, "0123456789", "058").
		Return(&domain.VerifiedRecipient{DisplayName: "Jane Roe"}, nil).Once()

	recipient, err := service.Verify(ctx, "0123456789", domain.TransferModeInterInstitution, "058")

	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", recipient.DisplayName)
	gateway.AssertExpectations(t)
}

func TestVerify_InterInstitutionWithoutRoutingCode(t *testing.T) {
	gateway := new(MockVerificationGateway)
	service := NewService(gateway, nil)

	_, err := service.Verify(context.Background(), "0123456789", domain.TransferModeInterInstitution, " ")

	assert.ErrorIs(t, err, domain.ErrMissingRoutingCode)
	var verr *domain.VerificationError
	assert.False(t, errors.As(err, &verr), "programmer errors must not look recoverable")
	gateway.AssertNotCalled(t, "VerifyAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_Failures(t *testing.T) {
	tests := []struct {
		name       string
		gatewayErr error
		wantReason string
	}{
		{
			name:       "Backend message is surfaced",
			gatewayErr: &domain.APIError{Kind: domain.APIErrorNotFound, Message: "Account does not exist"},
			wantReason: "Account does not exist",
		},
		{
			name:       "Not found without message",
			gatewayErr: &domain.APIError{Kind: domain.APIErrorNotFound},
			wantReason: ReasonNotFound,
		},
		{
			name:       "Network unavailable",
			gatewayErr: &domain.APIError{Kind: domain.APIErrorUnavailable},
			wantReason: ReasonUnavailable,
		},
		{
			name:       "Deadline exceeded",
			gatewayErr: context.DeadlineExceeded,
			wantReason: ReasonUnavailable,
		},
		{
			name:       "Malformed response",
			gatewayErr: &domain.APIError{Kind: domain.APIErrorMalformed, Message: "missing account_name"},
			wantReason: ReasonUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			gateway := new(MockVerificationGateway)
			service := NewService(gateway, nil)

			gateway.On("VerifyAccount", ctx, "0123456789", "").Return(nil, tt.gatewayErr).Once()

			recipient, err := service.Verify(ctx, "0123456789", domain.TransferModeSameInstitution, "")

			assert.Nil(t, recipient)
			var verr *domain.VerificationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantReason, verr.Reason)
			gateway.AssertNumberOfCalls(t, "VerifyAccount", 1)
		})
	}
}

func TestVerify_EmptyDisplayName(t *testing.T) {
	ctx := context.Background()
	gateway := new(MockVerificationGateway)
	service := NewService(gateway, nil)

	gateway.On("VerifyAccount", ctx, "0123456789", "").
		Return(&domain.VerifiedRecipient{DisplayName: "  "}, nil).Once()

	_, err := service.Verify(ctx, "0123456789", domain.TransferModeSameInstitution, "")

	var verr *domain.VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ReasonNotFound, verr.Reason)
}
