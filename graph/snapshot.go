// ABOUTME: Point-in-time copy of the thread graph for the renderer.
// ABOUTME: Preserves insertion order per column and deep-copies every node and edge.
package graph

// Snapshot is a renderable copy of the graph. All slices hold copies; the
// model retains sole ownership of the live nodes.
type Snapshot struct {
	Messages   []MessageNode
	Threads    []ThreadNode
	Pending    []PendingNode
	Edges      []Edge
	Structural []StructuralEdge
	Anomalies  []string
}

// Snapshot copies the current graph, column by column in insertion order.
// Removed pending nodes leave gaps in the row numbering; the layout never
// backfills them.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		Messages:   make([]MessageNode, 0, len(m.messageOrder)),
		Threads:    make([]ThreadNode, 0, len(m.threadOrder)),
		Pending:    make([]PendingNode, 0, len(m.pending)),
		Edges:      make([]Edge, 0, len(m.edges)),
		Structural: append([]StructuralEdge(nil), m.structural...),
		Anomalies:  append([]string(nil), m.anomalies...),
	}

	for _, id := range m.messageOrder {
		node := *m.messages[id]
		if node.Assignment != nil {
			assignment := *node.Assignment
			node.Assignment = &assignment
		}
		s.Messages = append(s.Messages, node)
	}
	for _, id := range m.threadOrder {
		node := *m.threads[id]
		node.Keywords = append([]string(nil), node.Keywords...)
		node.Participants = append([]string(nil), node.Participants...)
		s.Threads = append(s.Threads, node)
	}
	for _, id := range m.pendingOrder {
		if node, ok := m.pending[id]; ok {
			s.Pending = append(s.Pending, *node)
		}
	}
	for _, id := range m.messageOrder {
		if edge, ok := m.edges[id]; ok {
			s.Edges = append(s.Edges, *edge)
		}
	}

	return s
}
