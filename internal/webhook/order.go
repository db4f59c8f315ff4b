// AngelaMos | 2026
// order.go

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/carterperez-dev/templates/collab-backend/internal/config"
	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
	"github.com/carterperez-dev/templates/collab-backend/internal/metrics"
)

type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Links         []Link         `json:"links"`
}

type PurchaseUnit struct {
	CustomID string `json:"custom_id"`
	Payments struct {
		Captures []Capture `json:"captures"`
	} `json:"payments"`
}

type Capture struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	CustomID string `json:"custom_id"`
}

type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// Reference returns the custom_id set at order creation, preferring the
// copy echoed on the capture.
func (o *Order) Reference() string {
	for _, pu := range o.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.CustomID != "" {
				return c.CustomID
			}
		}
	}
	for _, pu := range o.PurchaseUnits {
		if pu.CustomID != "" {
			return pu.CustomID
		}
	}
	return ""
}

// CaptureStatus is the first capture's status, or the order status when the
// order holds no captures.
func (o *Order) CaptureStatus() string {
	for _, pu := range o.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.Status != "" {
				return c.Status
			}
		}
	}
	return o.Status
}

func (o *Order) ApproveURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

// OrderEvent normalizes a captured order.
func OrderEvent(o *Order) (Event, error) {
	status := o.CaptureStatus()
	action := OrderAction(status)

	raw := o.Reference()
	if raw == "" {
		if action == ActionIgnore {
			return Event{Provider: ProviderOrder, ProviderID: o.ID, Status: status, Action: action}, nil
		}
		return Event{}, fmt.Errorf("order %s has no reference: %w", o.ID, ErrMalformedPayload)
	}

	ref, err := ParseReference(raw)
	if err != nil {
		return Event{}, err
	}
	return newEvent(ProviderOrder, o.ID, status, action, ref)
}

// countingTokenSource fetches a fresh client-credentials token on every call;
// caching is left to the ReuseTokenSource wrapping it.
type countingTokenSource struct {
	ctx context.Context //nolint:containedctx // carries the token HTTP client
	cfg *clientcredentials.Config
}

func (s *countingTokenSource) Token() (*oauth2.Token, error) {
	metrics.ProviderTokenRefreshes.Inc()
	return s.cfg.Token(s.ctx)
}

type OrderClient struct {
	cfg     config.OrderProviderConfig
	baseURL string
	http    *http.Client
}

func NewOrderClient(cfg config.OrderProviderConfig) *OrderClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	tokenClient := &http.Client{Timeout: cfg.Timeout}
	source := oauth2.ReuseTokenSourceWithExpiry(nil, &countingTokenSource{
		ctx: context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient),
		cfg: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     baseURL + "/v1/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
	}, cfg.RefreshMargin)

	return &OrderClient{
		cfg:     cfg,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: source,
				Base:   http.DefaultTransport,
			},
		},
	}
}

func (c *OrderClient) price(plan entitlement.Plan) string {
	if plan == entitlement.PlanYearly {
		return c.cfg.YearlyPrice
	}
	return c.cfg.MonthlyPrice
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type orderUnitRequest struct {
	CustomID    string      `json:"custom_id"`
	Description string      `json:"description"`
	Amount      orderAmount `json:"amount"`
}

type createOrderRequest struct {
	Intent        string             `json:"intent"`
	PurchaseUnits []orderUnitRequest `json:"purchase_units"`
}

func (c *OrderClient) CreateOrder(
	ctx context.Context,
	ref Reference,
	plan entitlement.Plan,
) (*Order, error) {
	payload, err := json.Marshal(createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []orderUnitRequest{{
			CustomID:    ref.String(),
			Description: fmt.Sprintf("Premium subscription (%s)", plan),
			Amount: orderAmount{
				CurrencyCode: c.cfg.Currency,
				Value:        c.price(plan),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// CaptureOrder captures an approved order. An order captured by an earlier
// attempt is read back instead so a retried capture still resolves.
func (c *OrderClient) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"

	var order Order
	err := c.do(ctx, http.MethodPost, path, []byte("{}"), &order)
	var perr *ProviderError
	if errors.As(err, &perr) &&
		perr.StatusCode == http.StatusUnprocessableEntity &&
		strings.Contains(perr.Body, "ORDER_ALREADY_CAPTURED") {
		return c.GetOrder(ctx, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("capture order %s: %w", orderID, err)
	}
	return &order, nil
}

func (c *OrderClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &order, nil
}

func (c *OrderClient) do(ctx context.Context, method, path string, body []byte, dst any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	err = doJSON(c.http, req, dst)
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("order provider token: %s: %w", rerr.Error(), core.ErrUnauthorized)
	}
	return err
}
