package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the backend lifecycle status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusSuccess    TransactionStatus = "SUCCESS"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusReversed   TransactionStatus = "REVERSED"
)

// ParseTransactionStatus normalizes a backend status string.
// Unknown values are kept as-is (upper-cased) so receipts can still show them.
func ParseTransactionStatus(raw string) TransactionStatus {
	return TransactionStatus(strings.ToUpper(strings.TrimSpace(raw)))
}

// Label returns the human-readable status label
func (s TransactionStatus) Label() string {
	if s == "" {
		return "Unknown"
	}
	lower := strings.ToLower(string(s))
	first, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(first)) + lower[size:]
}

// StatusCategory groups statuses for presentation
type StatusCategory string

const (
	StatusCategoryPositive StatusCategory = "POSITIVE"
	StatusCategoryWarning  StatusCategory = "WARNING"
	StatusCategoryNegative StatusCategory = "NEGATIVE"
	StatusCategoryNeutral  StatusCategory = "NEUTRAL"
)

// Category maps a status to its presentation category.
// Completed/Success -> positive, Pending/Processing -> warning, Failed -> negative,
// anything else (Reversed included) -> neutral.
func (s TransactionStatus) Category() StatusCategory {
	switch s {
	case TransactionStatusCompleted, TransactionStatusSuccess:
		return StatusCategoryPositive
	case TransactionStatusPending, TransactionStatusProcessing:
		return StatusCategoryWarning
	case TransactionStatusFailed:
		return StatusCategoryNegative
	default:
		return StatusCategoryNeutral
	}
}

// TransactionRecord is the backend-issued result of a transfer.
// The client never mutates it; the receipt pipeline only reads it.
type TransactionRecord struct {
	Reference   string
	Type        string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Status      TransactionStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
	Description string
	SessionID   string // Optional: inter-institution session identifier

	// Counterparty fields are optional; receipts omit the section when all are empty
	CounterpartyName    string
	CounterpartyAccount string
	CounterpartyBank    string
	CounterpartyBankID  string
}

// Total returns amount plus fee
func (r *TransactionRecord) Total() decimal.Decimal {
	return r.Amount.Add(r.Fee)
}

// HasCounterparty reports whether any counterparty field is present
func (r *TransactionRecord) HasCounterparty() bool {
	return r.CounterpartyName != "" ||
		r.CounterpartyAccount != "" ||
		r.CounterpartyBank != "" ||
		r.CounterpartyBankID != ""
}

// Validate ensures the record carries the minimum fields a receipt needs
func (r *TransactionRecord) Validate() error {
	if strings.TrimSpace(r.Reference) == "" {
		return ErrMissingReference
	}
	if r.Amount.LessThan(decimal.Zero) {
		return ErrNegativeRecordAmount
	}
	if r.Fee.LessThan(decimal.Zero) {
		return ErrNegativeRecordAmount
	}
	return nil
}
