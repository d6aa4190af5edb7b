package reconcile

import (
	"context"
	"fmt"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/nifi"
	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

// Teardown deletes every component under a root group, leaving the
// root itself in place.
//
// Deletion order within each group follows the dependency chain:
// connections first (they pin their endpoints), then processors,
// input ports, output ports and funnels. Child groups are emptied
// recursively and deleted only after their own contents are gone.
//
// Each level is re-listed immediately before its components are
// deleted, so revisions are as fresh as a single pass allows. A stale
// revision, busy component, rejected delete or already-deleted
// component is recorded and skipped, and a group that cannot be
// listed is recorded with its subtree left in place; only auth and
// transport failures abort the pass. Once started, a pass runs to the
// end: there is no mid-pass abort on context cancellation, since a
// half-deleted graph is worse than a late one.
type Teardown struct {
	service FlowService
	logger  *logging.Logger
}

// NewTeardown creates a teardown pass over service.
func NewTeardown(service FlowService, logger *logging.Logger) *Teardown {
	if logger == nil {
		logger = logging.Default()
	}
	return &Teardown{service: service, logger: logger}
}

type teardownFrame struct {
	groupID string
	// self is the group's own component for deletion after its
	// children are gone. Zero for the root, which is never deleted.
	self     flow.Component
	expanded bool
}

// Run empties the subtree under rootID. The returned report is valid
// even when err is non-nil and describes everything deleted before the
// abort.
func (t *Teardown) Run(ctx context.Context, rootID string) (*TeardownReport, error) {
	report := &TeardownReport{}

	stack := []teardownFrame{{groupID: rootID}}
	for len(stack) > 0 {
		frame := &stack[len(stack)-1]

		if !frame.expanded {
			frame.expanded = true

			listing, err := t.service.ListGroup(ctx, frame.groupID)
			if err != nil {
				// The subtree stays in place; siblings still get their
				// turn.
				self := frame.self
				if self.ID == "" {
					self = flow.Component{ID: frame.groupID, Kind: flow.KindProcessGroup}
				}
				t.logger.Warn("skipping unreadable group",
					"group", self.DisplayName(), "error", err.Error())
				report.Failures = append(report.Failures, ItemFailure{
					Component: self,
					Op:        "list",
					Err:       err,
				})
				stack = stack[:len(stack)-1]
				continue
			}
			if err := t.deleteLevel(ctx, listing, report); err != nil {
				return report, err
			}
			for _, child := range listing.Groups {
				stack = append(stack, teardownFrame{groupID: child.ID, self: child.Component})
			}
			continue
		}

		// Children handled; the group itself goes last.
		self := frame.self
		stack = stack[:len(stack)-1]
		if self.ID == "" {
			continue
		}
		if err := t.deleteOne(ctx, self, report); err != nil {
			return report, err
		}
	}

	t.logger.Info("teardown finished",
		"deleted", report.Deleted.Total(),
		"failures", len(report.Failures))
	return report, nil
}

// deleteLevel removes the non-group children of one freshly listed
// group, connections before the components they attach to.
func (t *Teardown) deleteLevel(ctx context.Context, g *flow.Group, report *TeardownReport) error {
	ordered := [][]flow.Component{
		g.Connections,
		g.Processors,
		g.InputPorts,
		g.OutputPorts,
		g.Funnels,
	}
	for _, components := range ordered {
		for _, component := range components {
			if err := t.deleteOne(ctx, component, report); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Teardown) deleteOne(ctx context.Context, component flow.Component, report *TeardownReport) error {
	err := t.service.DeleteComponent(ctx, component)
	switch {
	case err == nil:
	case nifi.IsKind(err, nifi.KindNotFound):
		// Vanished between listing and delete; the goal state holds.
		t.logger.Debug("already deleted",
			"kind", component.Kind.String(), "component", component.DisplayName())
	case nifi.Recoverable(err):
		t.logger.Warn("skipping component",
			"kind", component.Kind.String(),
			"component", component.DisplayName(),
			"error", err.Error())
		report.Failures = append(report.Failures, ItemFailure{
			Component: component,
			Op:        "delete",
			Err:       err,
		})
		return nil
	default:
		return fmt.Errorf("teardown: %w", err)
	}

	countKind(&report.Deleted, component.Kind)
	return nil
}

func countKind(stats *flow.Statistics, kind flow.Kind) {
	switch kind {
	case flow.KindProcessGroup:
		stats.ProcessGroups++
	case flow.KindProcessor:
		stats.Processors++
	case flow.KindConnection:
		stats.Connections++
	case flow.KindInputPort:
		stats.InputPorts++
	case flow.KindOutputPort:
		stats.OutputPorts++
	case flow.KindFunnel:
		stats.Funnels++
	}
}
