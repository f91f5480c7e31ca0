package domain

import (
	"errors"
	"strings"
)

// Bank represents a counterparty institution selectable for inter-institution transfers
type Bank struct {
	Code string // Routing code sent to the backend
	Name string
}

// Validate ensures the bank adheres to domain rules
func (b *Bank) Validate() error {
	if strings.TrimSpace(b.Code) == "" {
		return errors.New("bank code cannot be empty")
	}
	if strings.TrimSpace(b.Name) == "" {
		return errors.New("bank name cannot be empty")
	}
	return nil
}

// VerifiedRecipient is the backend-resolved identity of a recipient account
type VerifiedRecipient struct {
	DisplayName string
}
