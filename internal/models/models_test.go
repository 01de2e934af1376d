package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMigrateLegacyStatus(t *testing.T) {
	assert.Equal(t, StatusOpen, MigrateLegacyStatus("pending"))
	assert.Equal(t, StatusResolved, MigrateLegacyStatus("approved"))
	assert.Equal(t, StatusOpen, MigrateLegacyStatus(StatusOpen))
	assert.Equal(t, StatusClosed, MigrateLegacyStatus(StatusClosed))
	assert.Equal(t, Status("bogus"), MigrateLegacyStatus("bogus"))
}

func TestWorkloadSeverityThresholds(t *testing.T) {
	cases := []struct {
		pending int
		want    WorkloadSeverity
	}{
		{0, WorkloadNormal},
		{2, WorkloadNormal},
		{3, WorkloadWarning},
		{4, WorkloadWarning},
		{5, WorkloadCritical},
		{11, WorkloadCritical},
	}
	for _, tc := range cases {
		w := ManagerWorkload{PendingCount: tc.pending}
		assert.Equal(t, tc.want, w.Severity(), "pending=%d", tc.pending)
	}
}

func TestRequestPendingAndTerminal(t *testing.T) {
	for _, tc := range []struct {
		status   Status
		pending  bool
		terminal bool
	}{
		{StatusOpen, true, false},
		{StatusInProgress, true, false},
		{StatusResolved, false, false},
		{StatusRejected, false, true},
		{StatusClosed, false, true},
	} {
		r := &Request{Status: tc.status}
		assert.Equal(t, tc.pending, r.Pending(), "status %s", tc.status)
		assert.Equal(t, tc.terminal, r.Terminal(), "status %s", tc.status)
	}
}

func TestDueIn(t *testing.T) {
	assert.Equal(t, 24*time.Hour, DueIn(PriorityCritical))
	assert.Equal(t, 3*24*time.Hour, DueIn(PriorityHigh))
	assert.Equal(t, 5*24*time.Hour, DueIn(PriorityMedium))
	assert.Equal(t, 7*24*time.Hour, DueIn(PriorityLow))
}
