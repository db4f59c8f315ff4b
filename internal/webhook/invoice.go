// AngelaMos | 2026
// invoice.go

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/carterperez-dev/templates/collab-backend/internal/config"
	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
)

const (
	CallbackTokenHeader       = "callback-token"
	LegacyCallbackTokenHeader = "x-callback-token"
)

// InvoiceCallback is the push notification body sent when an invoice
// reaches a terminal status.
type InvoiceCallback struct {
	ID            string  `json:"id"`
	ExternalID    string  `json:"external_id"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method"`
	PaidAmount    float64 `json:"paid_amount"`
	PaidAt        string  `json:"paid_at"`
}

// DeliveryID is the idempotency key. Callbacks without an invoice id fall
// back to the reference plus status, which is unique per terminal state.
func (c InvoiceCallback) DeliveryID() string {
	if c.ID != "" {
		return c.ID
	}
	if c.ExternalID == "" {
		return ""
	}
	return c.ExternalID + ":" + strings.ToUpper(c.Status)
}

// VerifyCallbackToken fails closed when no token is configured.
func VerifyCallbackToken(r *http.Request, expected string) error {
	provided := r.Header.Get(CallbackTokenHeader)
	if provided == "" {
		provided = r.Header.Get(LegacyCallbackTokenHeader)
	}
	if !core.SecretsEqual(provided, expected) {
		return fmt.Errorf("invoice callback token: %w", core.ErrUnauthorized)
	}
	return nil
}

// ParseInvoiceCallback decodes body into a callback and its normalized event.
func ParseInvoiceCallback(body []byte) (InvoiceCallback, Event, error) {
	var cb InvoiceCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return cb, Event{}, fmt.Errorf("decode invoice callback: %w", ErrMalformedPayload)
	}
	if cb.ExternalID == "" || cb.Status == "" {
		return cb, Event{}, fmt.Errorf("invoice callback missing external_id or status: %w", ErrMalformedPayload)
	}

	ref, err := ParseReference(cb.ExternalID)
	if err != nil {
		return cb, Event{}, err
	}

	ev, err := newEvent(ProviderInvoice, cb.DeliveryID(), cb.Status, InvoiceAction(cb.Status), ref)
	if err != nil {
		return cb, Event{}, err
	}
	return cb, ev, nil
}

type Invoice struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoice_url"`
}

type createInvoiceRequest struct {
	ExternalID         string `json:"external_id"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
	Description        string `json:"description"`
	PayerEmail         string `json:"payer_email,omitempty"`
	SuccessRedirectURL string `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string `json:"failure_redirect_url,omitempty"`
}

// InvoiceClient creates hosted invoices, authenticating with the secret key
// as the basic auth username.
type InvoiceClient struct {
	cfg  config.InvoiceProviderConfig
	http *http.Client
}

func NewInvoiceClient(cfg config.InvoiceProviderConfig) *InvoiceClient {
	return &InvoiceClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *InvoiceClient) amount(plan entitlement.Plan) int64 {
	if plan == entitlement.PlanYearly {
		return c.cfg.YearlyAmount
	}
	return c.cfg.MonthlyAmount
}

func (c *InvoiceClient) CreateInvoice(
	ctx context.Context,
	ref Reference,
	plan entitlement.Plan,
	payerEmail string,
) (*Invoice, error) {
	payload, err := json.Marshal(createInvoiceRequest{
		ExternalID:         ref.String(),
		Amount:             c.amount(plan),
		Currency:           c.cfg.Currency,
		Description:        fmt.Sprintf("Premium subscription (%s)", plan),
		PayerEmail:         payerEmail,
		SuccessRedirectURL: c.cfg.SuccessURL,
		FailureRedirectURL: c.cfg.FailureURL,
	})
	if err != nil {
		return nil, fmt.Errorf("encode invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/v2/invoices",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("build invoice request: %w", err)
	}
	req.SetBasicAuth(c.cfg.SecretKey, "")
	req.Header.Set("Content-Type", "application/json")

	var inv Invoice
	if err := doJSON(c.http, req, &inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &inv, nil
}

// ProviderError is a non-2xx answer from a payment provider API.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider responded %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	if e.StatusCode >= http.StatusInternalServerError {
		return core.ErrUnavailable
	}
	return nil
}

const maxProviderBody = 1 << 20

func doJSON(client *http.Client, req *http.Request, dst any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, core.ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
