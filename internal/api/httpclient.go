package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mvillareal/cobraruta/internal/logging"
	"github.com/mvillareal/cobraruta/internal/models"
)

// HTTPClient implements Client against the backend REST API. A circuit
// breaker sits in front of every call so a dead link on a rural route
// fails fast instead of burning the per-record timeout each time.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	log        logging.Logger
}

// NewHTTPClient builds a client for the backend at baseURL. timeout
// bounds every request; an unresponsive server must not hang the UI.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "collection-api",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// a 4xx means the server is alive; only availability
			// failures may open the breaker
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrRejected)
			},
		}),
		log: log,
	}
}

func (c *HTTPClient) FetchClients(ctx context.Context, collectorID string) ([]*models.ClientReplica, error) {
	q := url.Values{}
	q.Set("assignedCollectorId", collectorID)
	q.Set("full", "true")

	body, err := c.do(ctx, http.MethodGet, "/clients?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var dtos []clientDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("failed to decode client list: %w", err)
	}

	pulledAt := time.Now().UTC()
	result := make([]*models.ClientReplica, 0, len(dtos))
	for _, d := range dtos {
		c, err := d.toModel(pulledAt)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func (c *HTTPClient) UploadPayment(ctx context.Context, rec *models.PaymentRecord) (string, error) {
	payload, err := json.Marshal(paymentToRequest(rec))
	if err != nil {
		return "", fmt.Errorf("failed to encode payment %s: %w", rec.LocalID, err)
	}

	body, err := c.do(ctx, http.MethodPost, "/payments", payload)
	if err != nil {
		return "", err
	}

	var created createdResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to decode payment response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: created payment has no id", ErrRejected)
	}
	return created.ID, nil
}

func (c *HTTPClient) UploadDelinquencyNote(ctx context.Context, note *models.DelinquencyNote) (string, error) {
	payload, err := json.Marshal(noteToRequest(note))
	if err != nil {
		return "", fmt.Errorf("failed to encode note %s: %w", note.LocalID, err)
	}

	body, err := c.do(ctx, http.MethodPost, "/delinquency-notes", payload)
	if err != nil {
		return "", err
	}

	var created createdResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to decode note response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: created note has no id", ErrRejected)
	}
	return created.ID, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

// do runs one request through the circuit breaker and maps transport
// and status failures onto the package sentinels.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	result, err := c.cb.Execute(func() (any, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn(ctx, "request failed", "method", method, "path", path, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			c.log.Warn(ctx, "request rejected", "method", method, "path", path,
				"status", resp.StatusCode, "body", string(body))
			return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
		default:
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return nil, err
	}
	return result.([]byte), nil
}
