// Package ledger implements the balance reconciliation engine: it
// splits a single collected amount into a principal-reducing portion
// and a moratory portion, and computes the resulting balance. Moratory
// money never reduces principal. All functions are pure.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvillareal/cobraruta/internal/models"
)

var (
	// ErrInvalidAmount is returned for a non-positive total or a
	// negative moratory portion. Nothing is committed in that case.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Split is the ledger effect of one collection event.
type Split struct {
	// Principal reduces the client's pending balance.
	Principal decimal.Decimal
	// Moratory is tracked as income but leaves the balance untouched.
	Moratory decimal.Decimal

	PreviousBalance decimal.Decimal
	// NewBalance is floored at zero, never negative.
	NewBalance decimal.Decimal

	// Clamped reports that the requested moratory portion exceeded the
	// total and was reduced to it.
	Clamped bool
}

// Settled reports the terminal "account current" state.
func (s Split) Settled() bool {
	return s.NewBalance.IsZero()
}

// Reconcile computes the ledger effect of collecting total against
// currentBalance, with moratory of it earmarked as a late fee:
//
//	moratory  = min(moratory, total)
//	principal = total - moratory
//	newBal    = max(0, currentBalance - principal)
func Reconcile(currentBalance, total, moratory decimal.Decimal) (Split, error) {
	if !total.IsPositive() {
		return Split{}, ErrInvalidAmount
	}
	if moratory.IsNegative() {
		return Split{}, ErrInvalidAmount
	}
	if currentBalance.IsNegative() {
		return Split{}, ErrInvalidAmount
	}

	clamped := false
	if moratory.GreaterThan(total) {
		moratory = total
		clamped = true
	}

	principal := total.Sub(moratory)
	newBalance := currentBalance.Sub(principal)
	if newBalance.IsNegative() {
		newBalance = decimal.Zero
	}

	return Split{
		Principal:       principal,
		Moratory:        moratory,
		PreviousBalance: currentBalance,
		NewBalance:      newBalance,
		Clamped:         clamped,
	}, nil
}

// PaymentRequest carries everything BuildPayments needs besides the
// computed split.
type PaymentRequest struct {
	ClientID      string
	CollectorID   string
	Kind          models.PaymentKind
	Method        models.PaymentMethod
	Concept       string
	ReceiptNumber string
	PaidAt        time.Time
	Offline       bool
}

// BuildPayments materializes the payment records for a split: one
// record of the requested kind for the principal portion and, when a
// moratory portion exists, a second record of kind mora. The records
// share a correlated receipt number (base and base+"-M") but each gets
// its own local id and must get its own outbox entry.
//
// A split that is entirely moratory yields a single mora record.
func BuildPayments(req PaymentRequest, split Split) []*models.PaymentRecord {
	now := time.Now().UTC()
	paidAt := req.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}

	base := func(amount decimal.Decimal, kind models.PaymentKind, receipt string) *models.PaymentRecord {
		return &models.PaymentRecord{
			LocalID:        uuid.NewString(),
			ClientID:       req.ClientID,
			CollectorID:    req.CollectorID,
			Amount:         amount,
			Kind:           kind,
			Concept:        req.Concept,
			Method:         req.Method,
			ReceiptNumber:  receipt,
			PaidAt:         paidAt,
			SyncStatus:     models.SyncPending,
			CreatedOffline: req.Offline,
			PrintStatus:    models.PrintPending,
			CreatedAt:      now,
		}
	}

	var records []*models.PaymentRecord
	if split.Principal.IsPositive() {
		records = append(records, base(split.Principal, req.Kind, req.ReceiptNumber))
	}
	if split.Moratory.IsPositive() {
		receipt := req.ReceiptNumber
		if receipt != "" {
			receipt += "-M"
		}
		records = append(records, base(split.Moratory, models.PaymentMoratory, receipt))
	}
	return records
}
