package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

// State is the lifecycle position of a reconciliation run. Transitions
// are strictly forward; Failed and Done are terminal.
type State int

const (
	StateIdle State = iota
	StateAuthenticated
	StateRootResolved
	StatePreBackedUp
	StateStopped
	StateAwaitingConfirmation
	StateTearingDown
	StateReplicating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticated:
		return "authenticated"
	case StateRootResolved:
		return "root resolved"
	case StatePreBackedUp:
		return "pre-backed up"
	case StateStopped:
		return "processors stopped"
	case StateAwaitingConfirmation:
		return "awaiting confirmation"
	case StateTearingDown:
		return "tearing down"
	case StateReplicating:
		return "replicating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SnapshotSource supplies the snapshot bytes a run replays. Ref is a
// human-readable origin (a store key or file path) used in logs and
// the confirmation prompt.
type SnapshotSource interface {
	Load(ctx context.Context) (data []byte, ref string, err error)
}

// PreBackupSink stores the safety export taken before any destructive
// step, returning a reference to where it landed.
type PreBackupSink interface {
	Save(ctx context.Context, data []byte) (ref string, err error)
}

// Confirmer gates the destructive phase. Returning false without error
// cancels the run; it is not a failure.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// DefaultSettleDelay is how long a run waits after stopping
// processors, letting in-flight data drain before anything is
// deleted.
const DefaultSettleDelay = 5 * time.Second

// Options tunes a lifecycle run.
type Options struct {
	// StopProcessors stops every running processor before
	// confirmation, quiescing the flow so fewer deletes hit busy
	// components.
	StopProcessors bool

	// SettleDelay is the pause after stopping processors. Zero means
	// DefaultSettleDelay; negative disables the pause.
	SettleDelay time.Duration

	// PreBackup exports the live root group to the sink before
	// anything is touched.
	PreBackup bool
}

func (o Options) settleDelay() time.Duration {
	switch {
	case o.SettleDelay < 0:
		return 0
	case o.SettleDelay == 0:
		return DefaultSettleDelay
	}
	return o.SettleDelay
}

// Engine sequences one reconciliation run:
//
//	Idle -> Authenticated -> RootResolved -> [PreBackedUp] ->
//	[Stopped] -> AwaitingConfirmation -> TearingDown ->
//	Replicating -> Done
//
// Any failure moves to Failed. A declined confirmation moves straight
// to Done with Cancelled set; nothing destructive has happened at that
// point.
type Engine struct {
	service   FlowService
	source    SnapshotSource
	preBackup PreBackupSink
	confirmer Confirmer
	opts      Options
	logger    *logging.Logger

	state State
}

// NewEngine wires a lifecycle engine. preBackup may be nil when
// opts.PreBackup is false.
func NewEngine(service FlowService, source SnapshotSource, preBackup PreBackupSink,
	confirmer Confirmer, opts Options, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		service:   service,
		source:    source,
		preBackup: preBackup,
		confirmer: confirmer,
		opts:      opts,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) transition(next State) {
	e.logger.Info("lifecycle transition", "from", e.state.String(), "to", next.String())
	e.state = next
}

// Run executes the full lifecycle. The returned result is always
// non-nil and reflects how far the run got.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := e.logger.With("run_id", result.RunID)
	logger.Info("reconciliation run starting")

	err := e.run(ctx, result)
	result.FinishedAt = time.Now().UTC()
	result.State = e.state
	if err != nil {
		e.state = StateFailed
		result.State = StateFailed
		logger.Error("reconciliation run failed", "state", e.state.String(), "error", err.Error())
		return result, err
	}
	if result.Cancelled {
		logger.Info("reconciliation run cancelled by operator")
	} else {
		logger.Info("reconciliation run complete",
			"deleted", result.Teardown.Deleted.Total(),
			"created", result.Import.Created.Total(),
			"failures", result.FailureCount())
	}
	return result, nil
}

func (e *Engine) run(ctx context.Context, result *RunResult) error {
	// Authenticate.
	if err := e.service.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	e.transition(StateAuthenticated)

	// Resolve the root group.
	rootID, err := e.service.RootGroupID(ctx)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	result.RootGroupID = rootID
	e.transition(StateRootResolved)

	// Load and validate the snapshot before touching anything live.
	data, ref, err := e.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	result.SnapshotRef = ref
	snapshot, err := flow.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("decode snapshot %s: %w", ref, err)
	}
	result.SnapshotStats = flow.Aggregate(snapshot)

	// Survey the live tree for the confirmation prompt.
	live, err := FetchSubtree(ctx, e.service, rootID)
	if err != nil {
		return err
	}
	result.LiveStats = flow.Aggregate(live)

	if e.opts.PreBackup {
		export, err := e.service.ExportGroup(ctx, rootID)
		if err != nil {
			return fmt.Errorf("pre-backup export: %w", err)
		}
		saved, err := e.preBackup.Save(ctx, export)
		if err != nil {
			return fmt.Errorf("pre-backup save: %w", err)
		}
		result.PreBackupRef = saved
		e.transition(StatePreBackedUp)
	}

	if e.opts.StopProcessors {
		stopped, err := e.stopRunningProcessors(ctx, live)
		if err != nil {
			return err
		}
		result.StoppedProcessors = stopped
		e.transition(StateStopped)

		if delay := e.opts.settleDelay(); delay > 0 {
			e.logger.Info("waiting for the flow to settle", "delay", delay.String())
			time.Sleep(delay)
		}
	}

	// The last exit without consequences.
	e.transition(StateAwaitingConfirmation)
	confirmed, err := e.confirmer.Confirm(ctx, e.confirmationPrompt(ref, result))
	if err != nil {
		return fmt.Errorf("confirmation: %w", err)
	}
	if !confirmed {
		result.Cancelled = true
		e.transition(StateDone)
		return nil
	}

	e.transition(StateTearingDown)
	teardownReport, err := NewTeardown(e.service, e.logger).Run(ctx, rootID)
	result.Teardown = teardownReport
	if err != nil {
		return err
	}

	e.transition(StateReplicating)
	importReport, err := NewReplicate(e.service, e.logger).Run(ctx, rootID, snapshot)
	result.Import = importReport
	if err != nil {
		return err
	}

	e.transition(StateDone)
	return nil
}

// stopRunningProcessors quiesces the live tree, stopping every
// processor whose run status reports it active. A processor that
// refuses to stop is logged and left for teardown to report; it never
// blocks the run.
func (e *Engine) stopRunningProcessors(ctx context.Context, live *flow.Group) (int, error) {
	stopped := 0
	stack := []*flow.Group{live}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return stopped, fmt.Errorf("stop processors: %w", err)
		}
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, processor := range current.Processors {
			if !strings.EqualFold(processor.RunStatus, "Running") &&
				!strings.EqualFold(processor.RunStatus, "Validating") {
				continue
			}
			if _, err := e.service.StopProcessor(ctx, processor); err != nil {
				e.logger.Warn("could not stop processor",
					"processor", processor.DisplayName(), "error", err.Error())
				continue
			}
			stopped++
		}
		stack = append(stack, current.Groups...)
	}
	e.logger.Info("processors stopped", "count", stopped)
	return stopped, nil
}

func (e *Engine) confirmationPrompt(snapshotRef string, result *RunResult) string {
	return fmt.Sprintf(
		"About to DELETE %d live components under root group %s and replace them with %d components from snapshot %s.",
		result.LiveStats.Total(), result.RootGroupID,
		result.SnapshotStats.Total(), snapshotRef)
}
