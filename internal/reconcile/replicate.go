package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/nifi"
	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

// ErrUnmappedEndpoint marks a connection whose source or destination
// was never created, usually because that component itself failed.
var ErrUnmappedEndpoint = errors.New("connection endpoint has no created counterpart")

// Replicate recreates a snapshot subtree inside a live target group.
// Snapshot ids are never reused: every creation is sent with revision
// zero and no id, the server assigns fresh identities, and the
// old-to-new translation is accumulated in the report's IDMap.
//
// Creation runs in two passes. The first builds structure: process
// groups and non-connection leaves, top-down. The second creates
// connections, so every endpoint they reference, including ports
// inside nested groups, already exists under its new id.
//
// A rejected creation is recorded against that one component and the
// pass moves on; only auth and transport failures abort. Like
// teardown, a started pass runs to the end regardless of context
// cancellation.
type Replicate struct {
	service FlowService
	logger  *logging.Logger
}

// NewReplicate creates a replication pass over service.
func NewReplicate(service FlowService, logger *logging.Logger) *Replicate {
	if logger == nil {
		logger = logging.Default()
	}
	return &Replicate{service: service, logger: logger}
}

type replicateFrame struct {
	src      *flow.Group
	parentID string
}

// Run replays snapshot into the live group targetID. The snapshot's
// root group is identified with the target; its children are created
// inside it. The returned report is valid even when err is non-nil.
func (r *Replicate) Run(ctx context.Context, targetID string, snapshot *flow.Group) (*ImportReport, error) {
	report := &ImportReport{IDMap: make(map[string]string)}
	if snapshot == nil {
		return report, nil
	}
	if snapshot.ID != "" {
		report.IDMap[snapshot.ID] = targetID
	}

	if err := r.createStructure(ctx, targetID, snapshot, report); err != nil {
		return report, err
	}
	if err := r.createConnections(ctx, targetID, snapshot, report); err != nil {
		return report, err
	}

	r.logger.Info("replication finished",
		"created", report.Created.Total(),
		"failures", len(report.Failures))
	return report, nil
}

// createStructure creates groups and non-connection leaves top-down. A
// failed group creation skips its whole subtree; the failure entry is
// the only trace of it.
func (r *Replicate) createStructure(ctx context.Context, targetID string, snapshot *flow.Group, report *ImportReport) error {
	stack := []replicateFrame{{src: snapshot, parentID: targetID}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		leafKinds := []struct {
			components []flow.Component
		}{
			{frame.src.Processors},
			{frame.src.InputPorts},
			{frame.src.OutputPorts},
			{frame.src.Funnels},
		}
		for _, lk := range leafKinds {
			for _, component := range lk.components {
				if err := r.createOne(ctx, frame.parentID, component, report); err != nil {
					return err
				}
			}
		}

		for _, child := range frame.src.Groups {
			newID, err := r.service.CreateComponent(ctx, frame.parentID,
				flow.KindProcessGroup, scrubAttributes(child.Attributes, child.Name))
			if err != nil {
				if !nifi.Recoverable(err) {
					return fmt.Errorf("replicate: %w", err)
				}
				r.logger.Warn("skipping group subtree",
					"group", child.DisplayName(), "error", err.Error())
				report.Failures = append(report.Failures, ItemFailure{
					Component: child.Component, Op: "create", Err: err,
				})
				continue
			}
			if child.ID != "" {
				report.IDMap[child.ID] = newID
			}
			report.Created.ProcessGroups++
			stack = append(stack, replicateFrame{src: child, parentID: newID})
		}
	}
	return nil
}

// createConnections walks the snapshot again and creates every
// connection whose group was created, rewriting endpoint ids through
// the accumulated map.
func (r *Replicate) createConnections(ctx context.Context, targetID string, snapshot *flow.Group, report *ImportReport) error {
	stack := []*flow.Group{snapshot}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		parentID := targetID
		if current != snapshot {
			mapped, ok := report.IDMap[current.ID]
			if !ok {
				// Group was skipped during structure creation.
				continue
			}
			parentID = mapped
		}

		for _, connection := range current.Connections {
			attrs, err := rewriteConnection(connection.Attributes, report.IDMap)
			if err != nil {
				report.Failures = append(report.Failures, ItemFailure{
					Component: connection, Op: "create", Err: err,
				})
				continue
			}
			rewritten := connection
			rewritten.Attributes = attrs
			if err := r.createOne(ctx, parentID, rewritten, report); err != nil {
				return err
			}
		}

		stack = append(stack, current.Groups...)
	}
	return nil
}

func (r *Replicate) createOne(ctx context.Context, parentID string, component flow.Component, report *ImportReport) error {
	newID, err := r.service.CreateComponent(ctx, parentID, component.Kind,
		scrubAttributes(component.Attributes, component.Name))
	if err != nil {
		if !nifi.Recoverable(err) {
			return fmt.Errorf("replicate: %w", err)
		}
		r.logger.Warn("skipping component",
			"kind", component.Kind.String(),
			"component", component.DisplayName(),
			"error", err.Error())
		report.Failures = append(report.Failures, ItemFailure{
			Component: component, Op: "create", Err: err,
		})
		return nil
	}

	if component.ID != "" {
		report.IDMap[component.ID] = newID
	}
	countKind(&report.Created, component.Kind)
	return nil
}

// scrubAttributes copies a snapshot component payload, dropping the
// fields the server must assign itself and the child containers that
// are created separately.
func scrubAttributes(attrs map[string]any, name string) map[string]any {
	out := make(map[string]any, len(attrs))
	for key, value := range attrs {
		switch key {
		case "id", "identifier", "contents", "parentGroupId",
			"versionedComponentId", "processors", "connections",
			"inputPorts", "outputPorts", "funnels", "labels",
			"processGroups":
			continue
		}
		out[key] = value
	}
	if name != "" {
		out["name"] = name
	}
	return out
}

// rewriteConnection deep-copies the payload with source and
// destination ids translated to their created counterparts. Group
// references on endpoints are translated too when known.
func rewriteConnection(attrs map[string]any, idMap map[string]string) (map[string]any, error) {
	out := scrubAttributes(attrs, "")
	for _, side := range []string{"source", "destination"} {
		endpoint, ok := out[side].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrUnmappedEndpoint, side)
		}
		oldID, _ := endpoint["id"].(string)
		newID, ok := idMap[oldID]
		if !ok {
			return nil, fmt.Errorf("%w: %s %q", ErrUnmappedEndpoint, side, oldID)
		}

		copied := make(map[string]any, len(endpoint))
		for key, value := range endpoint {
			copied[key] = value
		}
		copied["id"] = newID
		if groupID, ok := copied["groupId"].(string); ok {
			if newGroupID, ok := idMap[groupID]; ok {
				copied["groupId"] = newGroupID
			}
		}
		out[side] = copied
	}
	return out, nil
}
