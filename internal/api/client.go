// Package api talks to the collection backend over HTTP. The server is
// an external collaborator; only the request/response contract lives
// here.
package api

import (
	"context"
	"errors"

	"github.com/mvillareal/cobraruta/internal/models"
)

var (
	// ErrUnavailable covers network failures, timeouts, 5xx responses,
	// and an open circuit breaker. Uploads hitting it stay queued.
	ErrUnavailable = errors.New("server unavailable")

	// ErrRejected covers 4xx responses: the server understood the
	// request and refused it, so retrying the same bytes is pointless.
	ErrRejected = errors.New("request rejected by server")
)

// Client is the transport consumed by the sync engine. Implementations
// must treat a duplicate upload carrying the same local id as a no-op
// (the localId field is the idempotency key).
type Client interface {
	// FetchClients pulls the authoritative client list for a collector.
	FetchClients(ctx context.Context, collectorID string) ([]*models.ClientReplica, error)

	// UploadPayment posts one payment record and returns the
	// server-assigned identifier.
	UploadPayment(ctx context.Context, rec *models.PaymentRecord) (string, error)

	// UploadDelinquencyNote posts one delinquency note and returns the
	// server-assigned identifier.
	UploadDelinquencyNote(ctx context.Context, note *models.DelinquencyNote) (string, error)

	// Ping probes reachability without touching any data.
	Ping(ctx context.Context) error
}
