package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentKind classifies a collection event. Only non-moratory kinds
// reduce the client's principal balance on the server ledger.
type PaymentKind string

const (
	PaymentRegular    PaymentKind = "regular"
	PaymentPartial    PaymentKind = "abono"
	PaymentSettlement PaymentKind = "liquidacion"
	PaymentMoratory   PaymentKind = "mora"
)

func ParsePaymentKind(s string) (PaymentKind, error) {
	switch k := PaymentKind(s); k {
	case PaymentRegular, PaymentPartial, PaymentSettlement, PaymentMoratory:
		return k, nil
	}
	return "", fmt.Errorf("%w: payment kind %q", ErrInvalidEnum, s)
}

// ReducesPrincipal reports whether this kind decrements the balance.
func (k PaymentKind) ReducesPrincipal() bool {
	return k != PaymentMoratory
}

// PaymentMethod is how the money changed hands.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodCheck    PaymentMethod = "check"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case MethodCash, MethodTransfer, MethodCheck:
		return m, nil
	}
	return "", fmt.Errorf("%w: payment method %q", ErrInvalidEnum, s)
}

// SyncStatus is the upload state of a locally created record.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

func ParseSyncStatus(s string) (SyncStatus, error) {
	switch st := SyncStatus(s); st {
	case SyncPending, SyncSyncing, SyncSynced, SyncFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: sync status %q", ErrInvalidEnum, s)
}

// PrintStatus is local receipt bookkeeping; it is never uploaded.
type PrintStatus string

const (
	PrintPending   PrintStatus = "pending"
	PrintPrinted   PrintStatus = "printed"
	PrintReprinted PrintStatus = "reprinted"
)

// PaymentRecord is a single collection event. LocalID is generated on
// the device, is immutable, and doubles as the idempotency key for
// upload; ServerID is assigned exactly once, on first acknowledged
// upload.
type PaymentRecord struct {
	// LocalID is the client-generated unique id, stable across retries.
	LocalID string

	// ServerID is empty until the server acknowledges the upload.
	ServerID string

	ClientID string

	// Amount collected for this record, always > 0.
	Amount decimal.Decimal

	Kind    PaymentKind
	Concept string

	PaidAt time.Time

	CollectorID string
	Method      PaymentMethod

	// ReceiptNumber correlates split principal/moratory records.
	ReceiptNumber string

	SyncStatus SyncStatus
	// SyncError holds the last upload failure; required when SyncStatus
	// is failed, empty otherwise.
	SyncError string

	CreatedOffline bool
	PrintStatus    PrintStatus

	CreatedAt time.Time
	// LastSync is zero until the first successful upload.
	LastSync time.Time
}

// Validate checks the invariants enforced at the storage boundary:
// invalid combinations such as failed-without-error or
// synced-without-server-id are rejected outright.
func (p *PaymentRecord) Validate() error {
	if p.LocalID == "" {
		return fmt.Errorf("%w: local id is required", ErrValidation)
	}
	if p.ClientID == "" {
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	if p.CollectorID == "" {
		return fmt.Errorf("%w: collector id is required", ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if _, err := ParsePaymentKind(string(p.Kind)); err != nil {
		return err
	}
	if _, err := ParsePaymentMethod(string(p.Method)); err != nil {
		return err
	}
	if _, err := ParseSyncStatus(string(p.SyncStatus)); err != nil {
		return err
	}
	if p.SyncStatus == SyncFailed && p.SyncError == "" {
		return fmt.Errorf("%w: failed record needs an error message", ErrValidation)
	}
	if p.SyncStatus == SyncSynced && p.ServerID == "" {
		return fmt.Errorf("%w: synced record needs a server id", ErrValidation)
	}
	return nil
}
