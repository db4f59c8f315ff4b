// AngelaMos | 2026
// dto.go

package entitlement

import (
	"time"
)

type StorageResponse struct {
	TotalBytes     int64 `json:"total_bytes"`
	UsedBytes      int64 `json:"used_bytes"`
	RemainingBytes int64 `json:"remaining_bytes"`
}

type ProjectsResponse struct {
	MaxCount     int `json:"max_count"`
	CurrentCount int `json:"current_count"`
	Remaining    int `json:"remaining"`
}

type EntitlementResponse struct {
	UserID     string           `json:"user_id"`
	Tier       string           `json:"tier"`
	Active     bool             `json:"active"`
	Plan       Plan             `json:"plan"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
	AutoRenew  bool             `json:"auto_renew"`
	RenewalDue bool             `json:"renewal_due"`
	Storage    StorageResponse  `json:"storage"`
	Projects   ProjectsResponse `json:"projects"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func ToEntitlementResponse(r *Record, now time.Time) EntitlementResponse {
	return EntitlementResponse{
		UserID:     r.UserID,
		Tier:       r.Tier(),
		Active:     r.Active,
		Plan:       r.Plan,
		StartedAt:  r.StartedAt,
		ExpiresAt:  r.ExpiresAt,
		AutoRenew:  r.AutoRenew,
		RenewalDue: r.RenewalDue(now),
		Storage: StorageResponse{
			TotalBytes:     r.StorageTotalBytes,
			UsedBytes:      r.StorageUsedBytes,
			RemainingBytes: max(r.StorageTotalBytes-r.StorageUsedBytes, 0),
		},
		Projects: ProjectsResponse{
			MaxCount:     r.ProjectMaxCount,
			CurrentCount: r.ProjectCurrentCount,
			Remaining:    max(r.ProjectMaxCount-r.ProjectCurrentCount, 0),
		},
		UpdatedAt: r.UpdatedAt,
	}
}
