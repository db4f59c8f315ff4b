// AngelaMos | 2026
// dto.go

package quota

import (
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
)

type StorageCheckRequest struct {
	Bytes int64 `json:"bytes" validate:"gte=0"`
}

// StorageUsageRequest is sent by the upload service on behalf of UserID.
type StorageUsageRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Delta  int64  `json:"delta" validate:"ne=0"`
}

type ProjectUsageRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Delta  int    `json:"delta" validate:"ne=0"`
}

type UsageResponse struct {
	StorageUsedBytes    int64 `json:"storage_used_bytes"`
	StorageTotalBytes   int64 `json:"storage_total_bytes"`
	ProjectCurrentCount int   `json:"project_current_count"`
	ProjectMaxCount     int   `json:"project_max_count"`
}

func ToUsageResponse(r *entitlement.Record) UsageResponse {
	return UsageResponse{
		StorageUsedBytes:    r.StorageUsedBytes,
		StorageTotalBytes:   r.StorageTotalBytes,
		ProjectCurrentCount: r.ProjectCurrentCount,
		ProjectMaxCount:     r.ProjectMaxCount,
	}
}
