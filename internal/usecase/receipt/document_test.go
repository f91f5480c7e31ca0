package receipt

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferflow/internal/domain"
)

var generatedAt = time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC)

func sampleRecord() domain.TransactionRecord {
	completed := time.Date(2026, 3, 14, 15, 2, 0, 0, time.UTC)
	return domain.TransactionRecord{
		Reference:           "TRF-20260314-0042",
		Type:                "TRANSFER",
		Amount:              decimal.RequireFromString("5000"),
		Fee:                 decimal.RequireFromString("10.75"),
		Status:              domain.TransactionStatusCompleted,
		CreatedAt:           time.Date(2026, 3, 14, 15, 1, 0, 0, time.UTC),
		CompletedAt:         &completed,
		Description:         "Rent",
		SessionID:           "000013260314150100000000000042",
		CounterpartyName:    "John Doe",
		CounterpartyAccount: "0123456789",
		CounterpartyBank:    "Guaranty Trust Bank",
		CounterpartyBankID:  "058",
	}
}

func TestRenderDocument_CompletedUsesPositiveColor(t *testing.T) {
	doc := RenderDocument(sampleRecord(), DefaultStyle, generatedAt)

	assert.Equal(t, domain.StatusCategoryPositive, doc.Status.Category)
	assert.Equal(t, ColorPositive, doc.Status.Color)
	assert.Equal(t, "Completed", doc.Status.Label)
	assert.Equal(t, "₦5,000.00", doc.Status.Amount)
	assert.NotEmpty(t, doc.Status.Amount)
}

func TestRenderDocument_StatusColors(t *testing.T) {
	tests := []struct {
		status domain.TransactionStatus
		want   Color
	}{
		{domain.TransactionStatusCompleted, ColorPositive},
		{domain.TransactionStatusSuccess, ColorPositive},
		{domain.TransactionStatusPending, ColorWarning},
		{domain.TransactionStatusProcessing, ColorWarning},
		{domain.TransactionStatusFailed, ColorNegative},
		{domain.TransactionStatusReversed, ColorNeutral},
		{domain.TransactionStatus("ON_HOLD"), ColorNeutral},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			record := sampleRecord()
			record.Status = tt.status
			doc := RenderDocument(record, DefaultStyle, generatedAt)
			assert.Equal(t, tt.want, doc.Status.Color)
		})
	}
}

func TestRenderDocument_TransactionSection(t *testing.T) {
	doc := RenderDocument(sampleRecord(), DefaultStyle, generatedAt)

	section, ok := doc.Section(SectionTransaction)
	require.True(t, ok)

	values := map[string]string{}
	for _, item := range section.Items {
		values[item.Label] = item.Value
	}
	assert.Equal(t, "TRF-20260314-0042", values["Reference"])
	assert.Equal(t, "₦5,000.00", values["Amount"])
	assert.Equal(t, "₦10.75", values["Fee"])
	assert.Equal(t, "₦5,010.75", values["Total"])
	assert.Equal(t, "Mar 14, 2026 at 3:01 PM", values["Date"])
	assert.Equal(t, "Rent", values["Description"])
	assert.Contains(t, values, "Session ID")
	assert.Equal(t, "Generated on Mar 14, 2026 at 3:04 PM", doc.Footer)
}

func TestRenderDocument_CounterpartySectionIsConditional(t *testing.T) {
	t.Run("Present", func(t *testing.T) {
		doc := RenderDocument(sampleRecord(), DefaultStyle, generatedAt)
		section, ok := doc.Section(SectionCounterparty)
		require.True(t, ok)
		assert.Equal(t, Item{Label: "Name", Value: "John Doe"}, section.Items[0])
	})

	t.Run("Absent", func(t *testing.T) {
		record := sampleRecord()
		record.CounterpartyName = ""
		record.CounterpartyAccount = ""
		record.CounterpartyBank = ""
		record.CounterpartyBankID = ""

		doc := RenderDocument(record, DefaultStyle, generatedAt)

		_, ok := doc.Section(SectionCounterparty)
		assert.False(t, ok)
		assert.Len(t, doc.Sections, 1)
	})

	t.Run("Bank code fallback", func(t *testing.T) {
		record := sampleRecord()
		record.CounterpartyBank = ""
		doc := RenderDocument(record, DefaultStyle, generatedAt)
		section, _ := doc.Section(SectionCounterparty)
		assert.Contains(t, section.Items, Item{Label: "Bank Code", Value: "058"})
	})
}

func TestRenderDocument_IsPure(t *testing.T) {
	record := sampleRecord()
	assert.Equal(t, RenderDocument(record, DefaultStyle, generatedAt), RenderDocument(record, DefaultStyle, generatedAt))
}

func TestDocument_HTML(t *testing.T) {
	record := sampleRecord()
	record.Description = "<script>alert(1)</script>"

	html, err := RenderDocument(record, DefaultStyle, generatedAt).HTML()

	require.NoError(t, err)
	assert.Contains(t, html, ColorPositive.Hex)
	assert.Contains(t, html, "₦5,000.00")
	assert.Contains(t, html, SectionCounterparty)
	assert.NotContains(t, html, "<script>")
}

func TestPlainText(t *testing.T) {
	text := PlainText(sampleRecord(), DefaultStyle)

	assert.True(t, strings.HasPrefix(text, "TransferFlow Transaction Receipt"))
	assert.Contains(t, text, "Amount: ₦5,000.00")
	assert.Contains(t, text, "Status: Completed")
	assert.Contains(t, text, "Reference: TRF-20260314-0042")
	assert.Contains(t, text, "Recipient: John Doe")
	assert.Contains(t, text, "Bank: Guaranty Trust Bank")

	record := sampleRecord()
	record.CounterpartyName = ""
	record.CounterpartyAccount = ""
	record.CounterpartyBank = ""
	record.CounterpartyBankID = ""
	assert.NotContains(t, PlainText(record, DefaultStyle), "Recipient:")
}

func TestPDFConverter_Convert(t *testing.T) {
	converter := NewPDFConverter()

	data, err := converter.Convert(context.Background(), RenderDocument(sampleRecord(), DefaultStyle, generatedAt))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", converter.MediaType())
	assert.Equal(t, "pdf", converter.Extension())
}

func TestPDFConverter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFConverter().Convert(ctx, RenderDocument(sampleRecord(), DefaultStyle, generatedAt))

	assert.ErrorIs(t, err, context.Canceled)
}
