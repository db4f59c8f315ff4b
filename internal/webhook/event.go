// AngelaMos | 2026
// event.go

package webhook

import (
	"strings"
	"time"

	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
)

const (
	ProviderInvoice = "xendit"
	ProviderOrder   = "paypal"
)

type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionIgnore     Action = "ignore"
)

// Event is the provider-neutral form every adapter produces.
type Event struct {
	Provider   string
	ProviderID string
	Status     string
	Action     Action
	Reference  Reference
	Plan       entitlement.Plan
}

func (e Event) UserID() string {
	return e.Reference.UserID
}

// newEvent resolves the plan from the reference purpose. The plan only
// matters for activation, so other actions tolerate any purpose.
func newEvent(provider, providerID, status string, action Action, ref Reference) (Event, error) {
	ev := Event{
		Provider:   provider,
		ProviderID: providerID,
		Status:     status,
		Action:     action,
		Reference:  ref,
	}
	if action != ActionActivate {
		return ev, nil
	}
	plan, err := ref.Plan()
	if err != nil {
		return Event{}, err
	}
	ev.Plan = plan
	return ev, nil
}

func InvoiceAction(status string) Action {
	switch strings.ToUpper(status) {
	case "PAID", "COMPLETED":
		return ActionActivate
	case "EXPIRED":
		return ActionDeactivate
	default:
		return ActionIgnore
	}
}

func OrderAction(status string) Action {
	if strings.ToUpper(status) == "COMPLETED" {
		return ActionActivate
	}
	return ActionIgnore
}

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Entry is one journaled delivery.
type Entry struct {
	ID          string    `db:"id"`
	Provider    string    `db:"provider"`
	ProviderID  string    `db:"provider_id"`
	UserID      string    `db:"user_id"`
	Action      Action    `db:"action"`
	Status      string    `db:"status"`
	Reference   string    `db:"reference"`
	ProcessedAt time.Time `db:"processed_at"`
}
