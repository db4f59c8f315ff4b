// AngelaMos | 2026
// reference_test.go

package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Reference
		wantErr bool
	}{
		{
			name:  "simple user id",
			input: "premium-U1-1700000000",
			want:  Reference{Purpose: "premium", UserID: "U1", IssuedAt: 1700000000},
		},
		{
			name:  "uuid user id keeps its hyphens",
			input: "premium_yearly-0b8f5a7e-3c1d-4e5f-9a2b-7c6d5e4f3a2b-1700000000123",
			want: Reference{
				Purpose:  "premium_yearly",
				UserID:   "0b8f5a7e-3c1d-4e5f-9a2b-7c6d5e4f3a2b",
				IssuedAt: 1700000000123,
			},
		},
		{name: "two parts", input: "premium-1700000000", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "no purpose", input: "-U1-1700000000", wantErr: true},
		{name: "trailing hyphen", input: "premium-U1-", wantErr: true},
		{name: "non numeric timestamp", input: "premium-U1-yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReference(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReference_RoundTripAndPlan(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	userID := "0b8f5a7e-3c1d-4e5f-9a2b-7c6d5e4f3a2b"

	ref := NewReference(entitlement.PlanYearly, userID, now)
	parsed, err := ParseReference(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)

	plan, err := parsed.Plan()
	require.NoError(t, err)
	assert.Equal(t, entitlement.PlanYearly, plan)

	plan, err = Reference{Purpose: PurposePremium}.Plan()
	require.NoError(t, err)
	assert.Equal(t, entitlement.PlanMonthly, plan)

	_, err = Reference{Purpose: "donation"}.Plan()
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestInvoiceAction(t *testing.T) {
	assert.Equal(t, ActionActivate, InvoiceAction("PAID"))
	assert.Equal(t, ActionActivate, InvoiceAction("COMPLETED"))
	assert.Equal(t, ActionDeactivate, InvoiceAction("EXPIRED"))
	assert.Equal(t, ActionIgnore, InvoiceAction("FAILED"))
	assert.Equal(t, ActionIgnore, InvoiceAction("PENDING"))
}
