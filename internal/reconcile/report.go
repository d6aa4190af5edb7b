package reconcile

import (
	"time"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
)

// ItemFailure records one component-level operation the engine skipped
// past. Failures never abort a run on their own; they are carried in
// the report so the operator can see exactly what was left behind.
type ItemFailure struct {
	Component flow.Component
	Op        string
	Err       error
}

// TeardownReport summarizes a teardown pass.
type TeardownReport struct {
	Deleted  flow.Statistics
	Failures []ItemFailure
}

// ImportReport summarizes a replication pass. IDMap holds the
// snapshot-id to server-assigned-id translation built as components
// were created; its size equals the number of identity-bearing
// components successfully created.
type ImportReport struct {
	Created  flow.Statistics
	Failures []ItemFailure
	IDMap    map[string]string
}

// RunResult is the full outcome of one lifecycle run. Partial results
// are populated as far as the run got before failing or being
// cancelled.
type RunResult struct {
	RunID     string
	State     State
	Cancelled bool

	RootGroupID string

	// SnapshotRef identifies the snapshot the run replayed.
	SnapshotRef   string
	SnapshotStats flow.Statistics
	LiveStats     flow.Statistics

	// PreBackupRef identifies where the safety export was stored, when
	// pre-backup was enabled.
	PreBackupRef string

	StoppedProcessors int

	Teardown *TeardownReport
	Import   *ImportReport

	StartedAt  time.Time
	FinishedAt time.Time
}

// FailureCount returns the total component-level failures across both
// phases.
func (r *RunResult) FailureCount() int {
	n := 0
	if r.Teardown != nil {
		n += len(r.Teardown.Failures)
	}
	if r.Import != nil {
		n += len(r.Import.Failures)
	}
	return n
}
