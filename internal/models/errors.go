package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the ledger and solver. Callers match with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrNonConvergence        = errors.New("irr solver did not converge")
	ErrInsufficientFlows     = errors.New("insufficient cash flows for irr")
	ErrTransactionImmutable  = errors.New("committed buy/sell cannot be edited; delete and re-enter")
	ErrNotFound              = errors.New("not found")
)

// ValidationError reports a malformed transaction or lot field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientInventoryError reports a sell that requested more quantity
// than is open across all lots for the (account, asset) pair. The sell is
// rejected whole; no lot is mutated.
type InsufficientInventoryError struct {
	AccountID string
	AssetID   string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s/%s: requested %s, available %s",
		e.AccountID, e.AssetID, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }
