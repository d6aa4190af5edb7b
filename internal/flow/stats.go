package flow

// Aggregate computes per-kind counts over the whole subtree rooted at
// g. The root group itself is not counted, so ProcessGroups equals the
// number of nested groups at any depth.
//
// The walk uses an explicit stack rather than native recursion: the
// nesting depth is controlled by the server, not by us.
func Aggregate(g *Group) Statistics {
	var stats Statistics
	if g == nil {
		return stats
	}

	stack := []*Group{g}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		stats.Processors += len(current.Processors)
		stats.Connections += len(current.Connections)
		stats.InputPorts += len(current.InputPorts)
		stats.OutputPorts += len(current.OutputPorts)
		stats.Funnels += len(current.Funnels)
		stats.Labels += current.LabelCount

		for _, child := range current.Groups {
			stats.ProcessGroups++
			stack = append(stack, child)
		}
	}
	return stats
}
