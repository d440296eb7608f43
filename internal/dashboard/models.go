package dashboard

import "time"

// ComplianceStats is the admin dashboard compliance tile
type ComplianceStats struct {
	Pending              int64      `json:"pending"`
	Approved             int64      `json:"approved"`
	Rejected             int64      `json:"rejected"`
	SuspendedUsers       int64      `json:"suspended_users"`
	OldestPendingAt      *time.Time `json:"oldest_pending_at,omitempty"`
	OldestPendingSeconds int64      `json:"oldest_pending_seconds"`
	GeneratedAt          time.Time  `json:"generated_at"`
}

type statusCount struct {
	Status string `db:"status"`
	Count  int64  `db:"count"`
}
