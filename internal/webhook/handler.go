// AngelaMos | 2026
// handler.go

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/collab-backend/internal/config"
	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
	"github.com/carterperez-dev/templates/collab-backend/internal/middleware"
)

type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, ref Reference, plan entitlement.Plan, payerEmail string) (*Invoice, error)
}

type OrderGateway interface {
	CreateOrder(ctx context.Context, ref Reference, plan entitlement.Plan) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*Order, error)
}

type Handler struct {
	processor     *Processor
	invoices      InvoiceCreator
	orders        OrderGateway
	callbackToken string
	maxPayload    int64
	validator     *validator.Validate
	now           func() time.Time
	logger        *slog.Logger
}

func NewHandler(
	processor *Processor,
	invoices InvoiceCreator,
	orders OrderGateway,
	cfg config.BillingConfig,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	maxPayload := cfg.MaxPayloadSize
	if maxPayload <= 0 {
		maxPayload = 1 << 20
	}
	return &Handler{
		processor:     processor,
		invoices:      invoices,
		orders:        orders,
		callbackToken: cfg.Invoice.CallbackToken,
		maxPayload:    maxPayload,
		validator:     validator.New(validator.WithRequiredStructEnabled()),
		now:           time.Now,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, checkoutLimiter func(http.Handler) http.Handler,
) {
	r.Post("/webhooks/xendit", h.InvoiceCallback)

	r.Route("/billing", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(checkoutLimiter)

		r.Post("/invoices", h.CreateInvoice)
		r.Post("/orders", h.CreateOrder)
		r.Post("/orders/capture", h.CaptureOrder)
	})
}

func (h *Handler) InvoiceCallback(w http.ResponseWriter, r *http.Request) {
	if err := VerifyCallbackToken(r, h.callbackToken); err != nil {
		h.logger.Warn("invoice callback rejected", "remote_addr", r.RemoteAddr)
		h.writeError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxPayload))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			core.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "payload too large")
			return
		}
		core.BadRequest(w, "unreadable body")
		return
	}

	_, ev, err := ParseInvoiceCallback(body)
	if err != nil {
		h.logger.Warn("malformed invoice callback", "error", err, "body", truncate(body, 512))
		h.writeError(w, err)
		return
	}

	res, err := h.processor.Handle(r.Context(), ProviderInvoice, ev.ProviderID,
		func(context.Context) (Event, error) { return ev, nil },
	)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if res.UserID == "" {
		res.UserID = ev.UserID()
	}

	core.OK(w, DeliveryResponse{Received: true, Status: res.Outcome, UserID: res.UserID})
}

func (h *Handler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.processor.Handle(r.Context(), ProviderOrder, req.OrderID,
		func(ctx context.Context) (Event, error) {
			order, err := h.orders.CaptureOrder(ctx, req.OrderID)
			if err != nil {
				return Event{}, err
			}
			return OrderEvent(order)
		},
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, DeliveryResponse{Received: true, Status: res.Outcome, UserID: res.UserID})
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan := entitlement.Plan(req.Plan)
	ref := NewReference(plan, middleware.GetUserID(r.Context()), h.now())

	inv, err := h.invoices.CreateInvoice(r.Context(), ref, plan, "")
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, InvoiceResponse{
		InvoiceID:  inv.ID,
		InvoiceURL: inv.InvoiceURL,
		ExternalID: ref.String(),
	})
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan := entitlement.Plan(req.Plan)
	ref := NewReference(plan, middleware.GetUserID(r.Context()), h.now())

	order, err := h.orders.CreateOrder(r.Context(), ref, plan)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, OrderResponse{
		OrderID:    order.ID,
		ApproveURL: order.ApproveURL(),
		Reference:  ref.String(),
	})
}

// Recent lists journaled deliveries for operators.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			core.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.processor.Recent(r.Context(), limit)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToEntryResponseList(entries))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxPayload)).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

// writeError maps failures to statuses a provider retries on (5xx, 409) or
// gives up on (other 4xx).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "invalid credentials")
	case errors.Is(err, ErrMalformedPayload):
		core.Error(w, http.StatusBadRequest, "MALFORMED_PAYLOAD", err.Error())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "entitlement")
	case errors.Is(err, ErrInFlight):
		core.Error(w, http.StatusConflict, "IN_FLIGHT", "delivery is already being processed")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrUnavailable):
		h.logger.Error("payment provider unavailable", "error", err)
		core.Error(w, http.StatusBadGateway, "PROVIDER_UNAVAILABLE", "payment provider unavailable")
	default:
		var perr *ProviderError
		if errors.As(err, &perr) {
			h.logger.Warn("payment provider rejected request", "status", perr.StatusCode, "body", perr.Body)
			core.Error(w, http.StatusBadGateway, "PROVIDER_REJECTED", "payment provider rejected the request")
			return
		}
		core.InternalServerError(w, err)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
