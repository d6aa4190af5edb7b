package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func leafComponents(kind Kind, n int) []Component {
	out := make([]Component, n)
	for i := range out {
		out[i] = Component{Kind: kind}
	}
	return out
}

func TestAggregateEmptyGroup(t *testing.T) {
	stats := Aggregate(&Group{})
	assert.Equal(t, Statistics{}, stats)
	assert.Equal(t, 0, stats.Total())
}

func TestAggregateNilGroup(t *testing.T) {
	assert.Equal(t, Statistics{}, Aggregate(nil))
}

func TestAggregateCountsAllKinds(t *testing.T) {
	g := &Group{
		Processors:  leafComponents(KindProcessor, 3),
		Connections: leafComponents(KindConnection, 2),
		InputPorts:  leafComponents(KindInputPort, 1),
		OutputPorts: leafComponents(KindOutputPort, 1),
		Funnels:     leafComponents(KindFunnel, 4),
		LabelCount:  2,
	}

	stats := Aggregate(g)

	assert.Equal(t, Statistics{
		Processors:  3,
		Connections: 2,
		InputPorts:  1,
		OutputPorts: 1,
		Funnels:     4,
		Labels:      2,
	}, stats)
	assert.Equal(t, 11, stats.Total(), "labels are excluded from the total")
}

func TestAggregateRootNotCounted(t *testing.T) {
	g := &Group{
		Groups: []*Group{{}, {}},
	}
	assert.Equal(t, 2, Aggregate(g).ProcessGroups)
}

// Counts must depend only on what components exist, not on how they are
// nested: flattening a tree into a single level yields the same totals.
func TestAggregateNestingInvariance(t *testing.T) {
	nested := &Group{
		Processors: leafComponents(KindProcessor, 1),
		Groups: []*Group{
			{
				Processors:  leafComponents(KindProcessor, 2),
				Connections: leafComponents(KindConnection, 1),
				Groups: []*Group{
					{
						Processors: leafComponents(KindProcessor, 3),
						Funnels:    leafComponents(KindFunnel, 1),
					},
				},
			},
			{
				InputPorts:  leafComponents(KindInputPort, 2),
				OutputPorts: leafComponents(KindOutputPort, 1),
			},
		},
	}

	flat := &Group{
		Processors:  leafComponents(KindProcessor, 6),
		Connections: leafComponents(KindConnection, 1),
		InputPorts:  leafComponents(KindInputPort, 2),
		OutputPorts: leafComponents(KindOutputPort, 1),
		Funnels:     leafComponents(KindFunnel, 1),
		Groups:      []*Group{{}, {}, {}},
	}

	nestedStats := Aggregate(nested)
	flatStats := Aggregate(flat)

	assert.Equal(t, nestedStats, flatStats)
	assert.Equal(t, 14, nestedStats.Total())
}

func TestAggregateDeepNesting(t *testing.T) {
	root := &Group{}
	current := root
	for i := 0; i < 10_000; i++ {
		child := &Group{Processors: leafComponents(KindProcessor, 1)}
		current.Groups = []*Group{child}
		current = child
	}

	stats := Aggregate(root)
	assert.Equal(t, 10_000, stats.ProcessGroups)
	assert.Equal(t, 10_000, stats.Processors)
}

func TestKindPlural(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindProcessGroup, "process-groups"},
		{KindProcessor, "processors"},
		{KindConnection, "connections"},
		{KindInputPort, "input-ports"},
		{KindOutputPort, "output-ports"},
		{KindFunnel, "funnels"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.Plural())
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name      string
		component Component
		want      string
	}{
		{"named", Component{Name: "Ingest", ID: "abcd1234-ffff"}, "Ingest"},
		{"id only", Component{ID: "abcd1234-ffff", Kind: KindProcessor}, "abcd1234"},
		{"short id", Component{ID: "ab12", Kind: KindProcessor}, "ab12"},
		{"nothing", Component{Kind: KindFunnel}, "(unnamed funnel)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.component.DisplayName())
		})
	}
}
