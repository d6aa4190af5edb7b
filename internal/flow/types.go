// Package flow holds the in-memory model of a NiFi process group tree.
//
// The model is shared by two producers: the live flow endpoint (one
// level at a time, with revisions) and snapshot decoding (a fully
// materialized subtree, where ids and revisions are advisory only and
// must never be reused against a target server).
package flow

// Kind identifies one of the component kinds a process group can hold.
type Kind int

const (
	KindProcessGroup Kind = iota
	KindProcessor
	KindConnection
	KindInputPort
	KindOutputPort
	KindFunnel
)

// String returns the singular, human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindProcessGroup:
		return "process group"
	case KindProcessor:
		return "processor"
	case KindConnection:
		return "connection"
	case KindInputPort:
		return "input port"
	case KindOutputPort:
		return "output port"
	case KindFunnel:
		return "funnel"
	default:
		return "unknown"
	}
}

// Plural returns the REST path segment for the kind, e.g.
// "process-groups" or "input-ports".
func (k Kind) Plural() string {
	switch k {
	case KindProcessGroup:
		return "process-groups"
	case KindProcessor:
		return "processors"
	case KindConnection:
		return "connections"
	case KindInputPort:
		return "input-ports"
	case KindOutputPort:
		return "output-ports"
	case KindFunnel:
		return "funnels"
	default:
		return "unknown"
	}
}

// Component is one node of the graph.
//
// ID and Revision are only meaningful for live components: every
// mutating call against the server must carry the component's current
// revision, and a revision read earlier in a long walk may already be
// stale. On snapshot components both fields are advisory.
//
// Attributes is the component's configuration payload, carried verbatim
// and treated as opaque except where replication must rewrite
// connection endpoint references.
type Component struct {
	ID         string
	Revision   int64
	Name       string
	Kind       Kind
	RunStatus  string
	Attributes map[string]any
}

// DisplayName returns the best human-readable identifier available.
func (c Component) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.ID) > 8 {
		return c.ID[:8]
	}
	if c.ID != "" {
		return c.ID
	}
	return "(unnamed " + c.Kind.String() + ")"
}

// Group is a process group together with its direct children. Nesting
// depth is server-defined and unbounded.
type Group struct {
	Component

	Processors  []Component
	Connections []Component
	InputPorts  []Component
	OutputPorts []Component
	Funnels     []Component
	Groups      []*Group

	// LabelCount is the number of label annotations at this level.
	// Labels are counted for snapshot metadata but never replicated.
	LabelCount int
}

// DirectChildCount returns the number of deletable components directly
// inside the group (labels excluded).
func (g *Group) DirectChildCount() int {
	return len(g.Processors) + len(g.Connections) + len(g.InputPorts) +
		len(g.OutputPorts) + len(g.Funnels) + len(g.Groups)
}

// Statistics maps component kinds to counts, additive across the whole
// subtree. ProcessGroups excludes the root group being counted.
type Statistics struct {
	ProcessGroups int `json:"process_groups"`
	Processors    int `json:"processors"`
	Connections   int `json:"connections"`
	InputPorts    int `json:"input_ports"`
	OutputPorts   int `json:"output_ports"`
	Funnels       int `json:"funnels"`
	Labels        int `json:"labels"`
}

// Total returns the number of counted components, labels excluded.
func (s Statistics) Total() int {
	return s.ProcessGroups + s.Processors + s.Connections +
		s.InputPorts + s.OutputPorts + s.Funnels
}
