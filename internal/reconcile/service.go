// Package reconcile implements the reconciliation engine: fetching
// live graphs, tearing them down in dependency order, replicating
// snapshots with fresh identities, and the lifecycle that sequences
// those phases behind an operator confirmation gate.
package reconcile

import (
	"context"
	"fmt"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
)

// FlowService is the server surface the engine drives. It is satisfied
// by nifi.Client; tests substitute an in-memory implementation.
type FlowService interface {
	Authenticate(ctx context.Context) error
	RootGroupID(ctx context.Context) (string, error)
	ListGroup(ctx context.Context, groupID string) (*flow.Group, error)
	ExportGroup(ctx context.Context, groupID string) ([]byte, error)
	StopProcessor(ctx context.Context, c flow.Component) (flow.Component, error)
	DeleteComponent(ctx context.Context, c flow.Component) error
	CreateComponent(ctx context.Context, parentID string, kind flow.Kind, attrs map[string]any) (string, error)
}

// FetchSubtree materializes the full live tree under groupID by
// repeated one-level listings, driven by an explicit work stack. Every
// component carries its live revision from the listing that reported
// it.
//
// Any read failure is fatal: a partially fetched tree must never feed
// a teardown or a statistics report.
func FetchSubtree(ctx context.Context, service FlowService, groupID string) (*flow.Group, error) {
	root, err := service.ListGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("fetch subtree %s: %w", groupID, err)
	}

	stack := []*flow.Group{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch subtree %s: %w", groupID, err)
		}
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for i, child := range current.Groups {
			full, err := service.ListGroup(ctx, child.ID)
			if err != nil {
				return nil, fmt.Errorf("fetch subtree %s: %w", child.ID, err)
			}
			// The one-level listing does not report the group's own
			// revision; keep the identity the parent listing gave us.
			full.Component = child.Component
			current.Groups[i] = full
			stack = append(stack, full)
		}
	}
	return root, nil
}
