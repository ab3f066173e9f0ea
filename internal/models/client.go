// Package models defines the device-side data model: client account
// replicas, payment records, delinquency notes, and the durable outbox
// entries that carry them to the server.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentDay is the weekday a client has agreed to be visited on.
type PaymentDay string

const (
	PaymentDayMonday    PaymentDay = "monday"
	PaymentDayTuesday   PaymentDay = "tuesday"
	PaymentDayWednesday PaymentDay = "wednesday"
	PaymentDayThursday  PaymentDay = "thursday"
	PaymentDayFriday    PaymentDay = "friday"
	PaymentDaySaturday  PaymentDay = "saturday"
	PaymentDaySunday    PaymentDay = "sunday"
)

// ParsePaymentDay validates a stored payment-day string.
func ParsePaymentDay(s string) (PaymentDay, error) {
	switch d := PaymentDay(s); d {
	case PaymentDayMonday, PaymentDayTuesday, PaymentDayWednesday,
		PaymentDayThursday, PaymentDayFriday, PaymentDaySaturday, PaymentDaySunday:
		return d, nil
	}
	return "", fmt.Errorf("%w: payment day %q", ErrInvalidEnum, s)
}

// PaymentDayFromWeekday maps a time.Weekday onto the route schedule.
func PaymentDayFromWeekday(w time.Weekday) PaymentDay {
	switch w {
	case time.Monday:
		return PaymentDayMonday
	case time.Tuesday:
		return PaymentDayTuesday
	case time.Wednesday:
		return PaymentDayWednesday
	case time.Thursday:
		return PaymentDayThursday
	case time.Friday:
		return PaymentDayFriday
	case time.Saturday:
		return PaymentDaySaturday
	default:
		return PaymentDaySunday
	}
}

// AccountStatus is the server-assigned lifecycle state of an account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountCancelled AccountStatus = "cancelled"
)

func ParseAccountStatus(s string) (AccountStatus, error) {
	switch a := AccountStatus(s); a {
	case AccountActive, AccountSuspended, AccountCancelled:
		return a, nil
	}
	return "", fmt.Errorf("%w: account status %q", ErrInvalidEnum, s)
}

// ClientSyncStatus tracks how fresh a local client snapshot is.
type ClientSyncStatus string

const (
	ClientSynced   ClientSyncStatus = "synced"
	ClientPending  ClientSyncStatus = "pending"
	ClientConflict ClientSyncStatus = "conflict"
)

// ClientReplica is the local snapshot of a collection account. It is
// overwritten wholesale on every successful pull; only PendingBalance
// is touched locally, and that value is advisory until the server
// confirms the payment.
type ClientReplica struct {
	// ID is the server-side client identifier.
	ID string

	FullName string
	Phone    string
	Address  string

	// PaymentDay is the weekday the collector visits this client.
	PaymentDay PaymentDay

	// AgreedAmount is the periodic payment the client committed to.
	AgreedAmount decimal.Decimal

	// PendingBalance is the principal the client still owes. Kept >= 0;
	// the reconciliation engine floors it at zero.
	PendingBalance decimal.Decimal

	// LastPaymentAt is zero when the client has never paid.
	LastPaymentAt time.Time

	Status AccountStatus

	// CollectorID is the agent this account is assigned to.
	CollectorID string

	Notes string

	// LastSync is when this snapshot was pulled from the server.
	LastSync   time.Time
	SyncStatus ClientSyncStatus
}

// Validate checks the fields the storage boundary requires.
func (c *ClientReplica) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	if c.FullName == "" {
		return fmt.Errorf("%w: client name is required", ErrValidation)
	}
	if c.CollectorID == "" {
		return fmt.Errorf("%w: collector id is required", ErrValidation)
	}
	if _, err := ParsePaymentDay(string(c.PaymentDay)); err != nil {
		return err
	}
	if _, err := ParseAccountStatus(string(c.Status)); err != nil {
		return err
	}
	if c.PendingBalance.IsNegative() {
		return fmt.Errorf("%w: pending balance must not be negative", ErrValidation)
	}
	return nil
}
