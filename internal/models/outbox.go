package models

import (
	"fmt"
	"time"
)

// OutboxType names the table an outbox entry points into.
type OutboxType string

const (
	OutboxPayment      OutboxType = "payment"
	OutboxNote         OutboxType = "delinquency-note"
	OutboxClientUpdate OutboxType = "client-update"
)

func ParseOutboxType(s string) (OutboxType, error) {
	switch t := OutboxType(s); t {
	case OutboxPayment, OutboxNote, OutboxClientUpdate:
		return t, nil
	}
	return "", fmt.Errorf("%w: outbox type %q", ErrInvalidEnum, s)
}

// OutboxStatus is the delivery state of an outbox entry.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxSyncing   OutboxStatus = "syncing"
	OutboxFailed    OutboxStatus = "failed"
	OutboxCompleted OutboxStatus = "completed"
)

func ParseOutboxStatus(s string) (OutboxStatus, error) {
	switch st := OutboxStatus(s); st {
	case OutboxPending, OutboxSyncing, OutboxFailed, OutboxCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: outbox status %q", ErrInvalidEnum, s)
}

// OutboxEntry is a durable work item: "this locally created record must
// reach the server". Exactly one entry exists per local id; it is
// marked completed only after the server acknowledges the upload.
type OutboxEntry struct {
	// LocalID references the originating record and is unique.
	LocalID string

	Type OutboxType

	Attempts      int
	LastAttemptAt time.Time

	Status OutboxStatus
	// LastError holds the most recent delivery failure.
	LastError string

	CreatedAt time.Time
}

func (e *OutboxEntry) Validate() error {
	if e.LocalID == "" {
		return fmt.Errorf("%w: local id is required", ErrValidation)
	}
	if _, err := ParseOutboxType(string(e.Type)); err != nil {
		return err
	}
	if _, err := ParseOutboxStatus(string(e.Status)); err != nil {
		return err
	}
	if e.Attempts < 0 {
		return fmt.Errorf("%w: attempts must not be negative", ErrValidation)
	}
	return nil
}

// QueueStats is what the UI needs to show about undelivered work.
type QueueStats struct {
	Pending int
	Failed  int
	// NeedsAttention counts entries whose attempt counter crossed the
	// manual-intervention threshold.
	NeedsAttention int
}

// Empty reports whether there is nothing to upload, so periodic sync
// can skip the network round-trip entirely.
func (s QueueStats) Empty() bool {
	return s.Pending == 0 && s.Failed == 0
}
