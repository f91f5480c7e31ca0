package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow/internal/adapter/share"
	"github.com/simaogato/transferflow/internal/adapter/storage"
	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/usecase/receipt"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    domain.TransferMode
		wantErr bool
	}{
		{raw: "same", want: domain.TransferModeSameInstitution},
		{raw: " Inter ", want: domain.TransferModeInterInstitution},
		{raw: "other", want: domain.TransferModeInterInstitution},
		{raw: "wire", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			mode, err := parseMode(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "Verification", err: &domain.VerificationError{Reason: "account not found"}, want: "account not found"},
		{name: "Submission", err: &domain.SubmissionError{Message: "PIN incorrect"}, want: "PIN incorrect"},
		{name: "Pipeline", err: &receipt.PipelineError{Op: receipt.OpExport, Kind: receipt.KindPermissionDenied}, want: "permission denied while saving receipt"},
		{name: "Unavailable", err: &domain.APIError{Kind: domain.APIErrorUnavailable, Err: errors.New("dial tcp")}, want: "network unavailable"},
		{name: "Local validation", err: domain.ErrInsufficientBalance, want: "insufficient balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userMessage(tt.err))
		})
	}
}

func TestRunReceiptAction(t *testing.T) {
	memFs := afero.NewMemMapFs()
	var out bytes.Buffer
	record := domain.TransactionRecord{
		Reference: "TRF-1",
		Amount:    decimal.NewFromInt(5000),
		Status:    domain.TransactionStatusCompleted,
	}

	newApp := func(fs afero.Fs) *app {
		out.Reset()
		store := storage.NewArtifactStore(fs, "/receipts", nil)
		sharer := share.NewWriterSharer(&out, memFs, "", nil)
		return &app{
			logger:   zap.NewNop(),
			pipeline: receipt.NewPipeline(receipt.NewPDFConverter(), store, sharer, receipt.DefaultStyle, nil),
			out:      &out,
		}
	}

	t.Run("Pdf", func(t *testing.T) {
		require.NoError(t, newApp(memFs).runReceiptAction(context.Background(), record, actionPDF))
		assert.Contains(t, out.String(), "Receipt saved: /receipts/receipt-TRF-1.pdf")
	})

	t.Run("Share falls back to text", func(t *testing.T) {
		readOnly := afero.NewReadOnlyFs(afero.NewMemMapFs())
		require.NoError(t, newApp(readOnly).runReceiptAction(context.Background(), record, actionShare))
		assert.Contains(t, out.String(), "Reference: TRF-1")
	})

	t.Run("Preview", func(t *testing.T) {
		require.NoError(t, newApp(memFs).runReceiptAction(context.Background(), record, actionPreview))
		assert.Contains(t, out.String(), "<html")
		assert.Contains(t, out.String(), "TRF-1")
	})

	t.Run("Unknown action", func(t *testing.T) {
		assert.Error(t, newApp(memFs).runReceiptAction(context.Background(), record, "fax"))
	})
}
