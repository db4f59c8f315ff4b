// AngelaMos | 2026
// dto.go

package webhook

import (
	"time"
)

type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=monthly yearly"`
}

type CaptureRequest struct {
	OrderID string `json:"orderId" validate:"required,max=64"`
}

// DeliveryResponse is what providers and the capturing client see.
type DeliveryResponse struct {
	Received bool    `json:"received"`
	Status   Outcome `json:"status"`
	UserID   string  `json:"userId,omitempty"`
}

type InvoiceResponse struct {
	InvoiceID  string `json:"invoice_id"`
	InvoiceURL string `json:"invoice_url"`
	ExternalID string `json:"external_id"`
}

type OrderResponse struct {
	OrderID    string `json:"order_id"`
	ApproveURL string `json:"approve_url"`
	Reference  string `json:"reference"`
}

type EntryResponse struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	UserID      string    `json:"user_id"`
	Action      Action    `json:"action"`
	Status      string    `json:"status"`
	Reference   string    `json:"reference"`
	ProcessedAt time.Time `json:"processed_at"`
}

func ToEntryResponseList(entries []Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse(e))
	}
	return out
}
