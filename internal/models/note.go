package models

import (
	"fmt"
	"time"
)

// DelinquencyReason codes an unsuccessful visit.
type DelinquencyReason string

const (
	ReasonNotHome   DelinquencyReason = "not-home"
	ReasonNoMoney   DelinquencyReason = "no-money"
	ReasonTraveling DelinquencyReason = "traveling"
	ReasonSick      DelinquencyReason = "sick"
	ReasonOther     DelinquencyReason = "other"
)

func ParseDelinquencyReason(s string) (DelinquencyReason, error) {
	switch r := DelinquencyReason(s); r {
	case ReasonNotHome, ReasonNoMoney, ReasonTraveling, ReasonSick, ReasonOther:
		return r, nil
	}
	return "", fmt.Errorf("%w: delinquency reason %q", ErrInvalidEnum, s)
}

// DelinquencyNote records a visit that produced no payment. It shares
// the local-id/sync-status lifecycle of PaymentRecord.
type DelinquencyNote struct {
	LocalID  string
	ServerID string

	ClientID    string
	CollectorID string

	Reason      DelinquencyReason
	Description string

	VisitedAt time.Time
	// NextVisitAt is zero when the collector did not schedule one.
	NextVisitAt time.Time

	SyncStatus SyncStatus
	SyncError  string

	CreatedOffline bool

	CreatedAt time.Time
	LastSync  time.Time
}

func (n *DelinquencyNote) Validate() error {
	if n.LocalID == "" {
		return fmt.Errorf("%w: local id is required", ErrValidation)
	}
	if n.ClientID == "" {
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	if n.CollectorID == "" {
		return fmt.Errorf("%w: collector id is required", ErrValidation)
	}
	if _, err := ParseDelinquencyReason(string(n.Reason)); err != nil {
		return err
	}
	if _, err := ParseSyncStatus(string(n.SyncStatus)); err != nil {
		return err
	}
	if n.SyncStatus == SyncFailed && n.SyncError == "" {
		return fmt.Errorf("%w: failed note needs an error message", ErrValidation)
	}
	return nil
}
