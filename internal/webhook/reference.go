// AngelaMos | 2026
// reference.go

package webhook

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
)

var ErrMalformedPayload = errors.New("malformed payload")

const (
	PurposePremium        = "premium"
	PurposePremiumMonthly = "premium_monthly"
	PurposePremiumYearly  = "premium_yearly"
)

// Reference is the opaque string handed to a provider at checkout and echoed
// back on payment: "<purpose>-<userId>-<issuedAt>". User ids may themselves
// contain hyphens, so the purpose ends at the first hyphen and the timestamp
// starts after the last one.
type Reference struct {
	Purpose  string
	UserID   string
	IssuedAt int64
}

func NewReference(plan entitlement.Plan, userID string, now time.Time) Reference {
	purpose := PurposePremiumMonthly
	if plan == entitlement.PlanYearly {
		purpose = PurposePremiumYearly
	}
	return Reference{
		Purpose:  purpose,
		UserID:   userID,
		IssuedAt: now.UnixMilli(),
	}
}

func (r Reference) String() string {
	return r.Purpose + "-" + r.UserID + "-" + strconv.FormatInt(r.IssuedAt, 10)
}

func ParseReference(s string) (Reference, error) {
	first := strings.IndexByte(s, '-')
	last := strings.LastIndexByte(s, '-')
	if first <= 0 || last == first || last == len(s)-1 {
		return Reference{}, fmt.Errorf("parse reference %q: %w", s, ErrMalformedPayload)
	}

	userID := s[first+1 : last]
	if userID == "" {
		return Reference{}, fmt.Errorf("parse reference %q: empty user: %w", s, ErrMalformedPayload)
	}

	issuedAt, err := strconv.ParseInt(s[last+1:], 10, 64)
	if err != nil {
		return Reference{}, fmt.Errorf("parse reference %q: timestamp: %w", s, ErrMalformedPayload)
	}

	return Reference{
		Purpose:  s[:first],
		UserID:   userID,
		IssuedAt: issuedAt,
	}, nil
}

func (r Reference) Plan() (entitlement.Plan, error) {
	switch r.Purpose {
	case PurposePremium, PurposePremiumMonthly:
		return entitlement.PlanMonthly, nil
	case PurposePremiumYearly:
		return entitlement.PlanYearly, nil
	default:
		return "", fmt.Errorf("unknown purpose %q: %w", r.Purpose, ErrMalformedPayload)
	}
}
