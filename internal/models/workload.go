package models

// ManagerWorkload is the per-manager pending-request aggregate served to
// admins as an assignment aid. It is a derived read model recomputed by the
// backend on demand, never stored.
type ManagerWorkload struct {
	ManagerID    string `json:"managerId" db:"manager_id"`
	Name         string `json:"name" db:"name"`
	PendingCount int    `json:"pendingCount" db:"pending_count"`
}

// WorkloadSeverity is the three-tier overload classification shown next to
// each manager in the assignment selector.
type WorkloadSeverity string

const (
	WorkloadNormal   WorkloadSeverity = "normal"
	WorkloadWarning  WorkloadSeverity = "warning"
	WorkloadCritical WorkloadSeverity = "critical"
)

// Fixed classification thresholds. Not configurable.
const (
	workloadWarningAt  = 3
	workloadCriticalAt = 5
)

// Severity classifies the workload entry: critical at five or more pending
// requests, warning at three or four, normal below.
func (w ManagerWorkload) Severity() WorkloadSeverity {
	switch {
	case w.PendingCount >= workloadCriticalAt:
		return WorkloadCritical
	case w.PendingCount >= workloadWarningAt:
		return WorkloadWarning
	default:
		return WorkloadNormal
	}
}
