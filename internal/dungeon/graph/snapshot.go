package graph

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
)

// NodeRecord is the plain-data form of a RoomNode used by serializers.
// Editor-only flags (selection, dragging) are not recorded.
type NodeRecord struct {
	ID        string
	TypeID    string
	Rect      Rect
	ParentIDs []string
	ChildIDs  []string
}

// Snapshot is the plain-data form of a Graph.
type Snapshot struct {
	ID    string
	Name  string
	Nodes []NodeRecord
}

// Record returns the plain-data form of n.
func (n *RoomNode) Record() NodeRecord {
	rec := NodeRecord{
		ID:        n.ID,
		Rect:      n.Rect,
		ParentIDs: slices.Clone(n.ParentIDs),
		ChildIDs:  slices.Clone(n.ChildIDs),
	}
	if n.Type != nil {
		rec.TypeID = n.Type.ID
	}
	if rec.ParentIDs == nil {
		rec.ParentIDs = []string{}
	}
	if rec.ChildIDs == nil {
		rec.ChildIDs = []string{}
	}
	return rec
}

// Snapshot captures the graph's nodes and edges in insertion order.
func (g *Graph) Snapshot() Snapshot {
	snap := Snapshot{
		ID:    g.ID,
		Name:  g.Name,
		Nodes: make([]NodeRecord, 0, len(g.nodes)),
	}
	for _, n := range g.nodes {
		snap.Nodes = append(snap.Nodes, n.Record())
	}
	return snap
}

// FromSnapshot rebuilds a Graph from plain data. Edges are restored verbatim
// rather than replayed through the connection rules, so a layout saved by an
// older rule set still loads; structural invariants are checked.
//
// Precondition: registry must be non-nil.
// Postcondition: Returns a Graph satisfying CheckInvariants, or a non-nil error.
// Hooks passed in opts are not invoked for restored nodes.
func FromSnapshot(snap Snapshot, registry *roomtype.Registry, opts ...Option) (*Graph, error) {
	g := New(snap.ID, snap.Name, registry, opts...)
	for i, rec := range snap.Nodes {
		if rec.ID == "" {
			return nil, fmt.Errorf("node %d: id must not be empty", i)
		}
		if _, dup := g.index[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", rec.ID)
		}
		typ, ok := registry.Lookup(rec.TypeID)
		if !ok {
			return nil, fmt.Errorf("node %q: unknown room type %q", rec.ID, rec.TypeID)
		}
		n := &RoomNode{
			ID:        rec.ID,
			Rect:      rec.Rect,
			Type:      typ,
			ParentIDs: slices.Clone(rec.ParentIDs),
			ChildIDs:  slices.Clone(rec.ChildIDs),
		}
		if n.ParentIDs == nil {
			n.ParentIDs = []string{}
		}
		if n.ChildIDs == nil {
			n.ChildIDs = []string{}
		}
		g.insert(n)
	}
	if err := g.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("restoring graph %q: %w", snap.ID, err)
	}
	return g, nil
}
