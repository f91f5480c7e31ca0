package receipt

import (
	"strings"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/format"
)

// PlainText builds the text summary shared by ShareText.
// It reads the record directly and never touches the document path.
func PlainText(record domain.TransactionRecord, style Style) string {
	var b strings.Builder

	line := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}

	if style.Institution != "" {
		b.WriteString(style.Institution)
		b.WriteByte(' ')
	}
	b.WriteString("Transaction Receipt\n\n")

	line("Amount", format.FormatAmount(record.Amount, style.CurrencySymbol))
	line("Fee", format.FormatAmount(record.Fee, style.CurrencySymbol))
	line("Total", format.FormatAmount(record.Total(), style.CurrencySymbol))
	line("Status", record.Status.Label())
	line("Reference", record.Reference)
	line("Type", record.Type)
	line("Date", format.FormatTimestamp(record.CreatedAt))
	line("Description", record.Description)
	line("Session ID", record.SessionID)

	if record.HasCounterparty() {
		line("Recipient", record.CounterpartyName)
		line("Account Number", record.CounterpartyAccount)
		bank := record.CounterpartyBank
		if bank == "" {
			bank = record.CounterpartyBankID
		}
		line("Bank", bank)
	}

	return strings.TrimRight(b.String(), "\n")
}
