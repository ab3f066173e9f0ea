package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mvillareal/cobraruta/internal/models"
)

// clientDTO mirrors the GET /clients response shape.
type clientDTO struct {
	ID                  string      `json:"id"`
	FullName            string      `json:"fullName"`
	Phone               string      `json:"phone"`
	Address             string      `json:"address"`
	PaymentDay          string      `json:"paymentDay"`
	AgreedAmount        json.Number `json:"agreedAmount"`
	PendingBalance      json.Number `json:"pendingBalance"`
	LastPaymentAt       string      `json:"lastPaymentAt,omitempty"`
	Status              string      `json:"status"`
	AssignedCollectorID string      `json:"assignedCollectorId"`
	Notes               string      `json:"notes,omitempty"`
}

func (d clientDTO) toModel(pulledAt time.Time) (*models.ClientReplica, error) {
	day, err := models.ParsePaymentDay(d.PaymentDay)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", d.ID, err)
	}
	status, err := models.ParseAccountStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", d.ID, err)
	}
	agreed, err := decimal.NewFromString(d.AgreedAmount.String())
	if err != nil {
		return nil, fmt.Errorf("client %s: bad agreed amount %q: %w", d.ID, d.AgreedAmount, err)
	}
	balance, err := decimal.NewFromString(d.PendingBalance.String())
	if err != nil {
		return nil, fmt.Errorf("client %s: bad pending balance %q: %w", d.ID, d.PendingBalance, err)
	}

	var lastPayment time.Time
	if d.LastPaymentAt != "" {
		lastPayment, err = time.Parse(time.RFC3339, d.LastPaymentAt)
		if err != nil {
			return nil, fmt.Errorf("client %s: bad lastPaymentAt %q: %w", d.ID, d.LastPaymentAt, err)
		}
	}

	return &models.ClientReplica{
		ID:             d.ID,
		FullName:       d.FullName,
		Phone:          d.Phone,
		Address:        d.Address,
		PaymentDay:     day,
		AgreedAmount:   agreed,
		PendingBalance: balance,
		LastPaymentAt:  lastPayment,
		Status:         status,
		CollectorID:    d.AssignedCollectorID,
		Notes:          d.Notes,
		LastSync:       pulledAt,
		SyncStatus:     models.ClientSynced,
	}, nil
}

// paymentRequest is the POST /payments body. Field names are fixed by
// the server contract.
type paymentRequest struct {
	ClienteID    string      `json:"clienteId"`
	Monto        json.Number `json:"monto"`
	TipoPago     string      `json:"tipoPago"`
	Concepto     string      `json:"concepto"`
	FechaPago    string      `json:"fechaPago"`
	MetodoPago   string      `json:"metodoPago"`
	NumeroRecibo string      `json:"numeroRecibo,omitempty"`
	LocalID      string      `json:"localId"`
}

func paymentToRequest(p *models.PaymentRecord) paymentRequest {
	return paymentRequest{
		ClienteID:    p.ClientID,
		Monto:        json.Number(p.Amount.String()),
		TipoPago:     string(p.Kind),
		Concepto:     p.Concept,
		FechaPago:    p.PaidAt.UTC().Format(time.RFC3339),
		MetodoPago:   string(p.Method),
		NumeroRecibo: p.ReceiptNumber,
		LocalID:      p.LocalID,
	}
}

// noteRequest is the POST /delinquency-notes body, analogous contract.
type noteRequest struct {
	ClienteID     string `json:"clienteId"`
	Motivo        string `json:"motivo"`
	Descripcion   string `json:"descripcion"`
	FechaVisita   string `json:"fechaVisita"`
	ProximaVisita string `json:"proximaVisita,omitempty"`
	LocalID       string `json:"localId"`
}

func noteToRequest(n *models.DelinquencyNote) noteRequest {
	req := noteRequest{
		ClienteID:   n.ClientID,
		Motivo:      string(n.Reason),
		Descripcion: n.Description,
		FechaVisita: n.VisitedAt.UTC().Format(time.RFC3339),
		LocalID:     n.LocalID,
	}
	if !n.NextVisitAt.IsZero() {
		req.ProximaVisita = n.NextVisitAt.UTC().Format(time.RFC3339)
	}
	return req
}

// createdResponse is the body returned for accepted uploads.
type createdResponse struct {
	ID string `json:"id"`
}
