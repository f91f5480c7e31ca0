package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionStatus_Category(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		want   StatusCategory
	}{
		{TransactionStatusCompleted, StatusCategoryPositive},
		{TransactionStatusSuccess, StatusCategoryPositive},
		{TransactionStatusPending, StatusCategoryWarning},
		{TransactionStatusProcessing, StatusCategoryWarning},
		{TransactionStatusFailed, StatusCategoryNegative},
		{TransactionStatusReversed, StatusCategoryNeutral},
		{TransactionStatus("ON_HOLD"), StatusCategoryNeutral},
		{TransactionStatus(""), StatusCategoryNeutral},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Category())
		})
	}
}

func TestParseTransactionStatus(t *testing.T) {
	assert.Equal(t, TransactionStatusCompleted, ParseTransactionStatus(" completed "))
	assert.Equal(t, TransactionStatusSuccess, ParseTransactionStatus("Success"))
	assert.Equal(t, TransactionStatus("ON_HOLD"), ParseTransactionStatus("on_hold"))
}

func TestTransactionStatus_Label(t *testing.T) {
	assert.Equal(t, "Completed", TransactionStatusCompleted.Label())
	assert.Equal(t, "Pending", TransactionStatusPending.Label())
	assert.Equal(t, "Unknown", TransactionStatus("").Label())
	assert.Equal(t, "Échoué", TransactionStatus("ÉCHOUÉ").Label())
	assert.Equal(t, "Øpen", TransactionStatus("øpen").Label())
}

func TestTransactionRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  TransactionRecord
		wantErr error
	}{
		{
			name:   "Record with reference and positive amount should pass",
			record: TransactionRecord{Reference: "TRF-001", Amount: decimal.NewFromInt(5000), Fee: decimal.NewFromInt(10)},
		},
		{
			name:    "Record without reference should fail",
			record:  TransactionRecord{Amount: decimal.NewFromInt(5000)},
			wantErr: ErrMissingReference,
		},
		{
			name:    "Record with negative amount should fail",
			record:  TransactionRecord{Reference: "TRF-001", Amount: decimal.NewFromInt(-1)},
			wantErr: ErrNegativeRecordAmount,
		},
		{
			name:    "Record with negative fee should fail",
			record:  TransactionRecord{Reference: "TRF-001", Amount: decimal.NewFromInt(1), Fee: decimal.NewFromInt(-1)},
			wantErr: ErrNegativeRecordAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransactionRecord_TotalAndCounterparty(t *testing.T) {
	record := TransactionRecord{
		Reference: "TRF-001",
		Amount:    decimal.RequireFromString("5000.00"),
		Fee:       decimal.RequireFromString("26.88"),
	}

	assert.True(t, decimal.RequireFromString("5026.88").Equal(record.Total()))
	assert.False(t, record.HasCounterparty())

	record.CounterpartyBank = "Access Bank"
	assert.True(t, record.HasCounterparty())
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "Rejected backend message is surfaced verbatim",
			err:  &APIError{Kind: APIErrorRejected, Message: "PIN incorrect"},
			want: "PIN incorrect",
		},
		{
			name: "Unavailable without message uses network default",
			err:  &APIError{Kind: APIErrorUnavailable},
			want: DefaultUnavailableMessage,
		},
		{
			name: "Malformed response uses fallback",
			err:  &APIError{Kind: APIErrorMalformed, Message: "cannot decode field amount"},
			want: "transfer failed",
		},
		{
			name: "Unknown error uses fallback",
			err:  errors.New("boom"),
			want: "transfer failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err, "transfer failed"))
		})
	}
}

func TestIsUnavailable(t *testing.T) {
	assert.True(t, IsUnavailable(&APIError{Kind: APIErrorUnavailable}))
	assert.False(t, IsUnavailable(&APIError{Kind: APIErrorRejected}))
	assert.False(t, IsUnavailable(errors.New("boom")))
}
