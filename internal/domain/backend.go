package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferRequest is the payload submitted once per confirmed intent
type TransferRequest struct {
	Mode                TransferMode
	RecipientIdentifier string
	RoutingCode         string // Only sent for inter-institution transfers
	Amount              decimal.Decimal
	Description         string
	Pin                 string
	IdempotencyKey      uuid.UUID
}

// VerificationGateway resolves a recipient account to a display name.
// An empty routingCode selects the same-institution lookup.
type VerificationGateway interface {
	// VerifyAccount performs exactly one round-trip.
	// Backend rejections are returned as *APIError.
	VerifyAccount(ctx context.Context, identifier, routingCode string) (*VerifiedRecipient, error)
}

// TransferGateway submits transfers to one of the two endpoint families
type TransferGateway interface {
	// SameInstitutionTransfer submits a transfer to an account held at the same institution
	SameInstitutionTransfer(ctx context.Context, req TransferRequest) (*TransactionRecord, error)

	// InterInstitutionTransfer submits a transfer to an account at another institution
	InterInstitutionTransfer(ctx context.Context, req TransferRequest) (*TransactionRecord, error)

	// GetTransaction fetches a transaction record for display
	GetTransaction(ctx context.Context, reference string) (*TransactionRecord, error)
}

// BankCatalog lists institutions that accept inter-institution transfers
type BankCatalog interface {
	ListBanks(ctx context.Context) ([]Bank, error)
}

// BackendAPI is the full remote capability consumed by the client core
type BackendAPI interface {
	VerificationGateway
	TransferGateway
	BankCatalog
}
