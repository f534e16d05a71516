package graph

import (
	"errors"
	"fmt"
)

// ErrInvariant wraps every structural violation reported by CheckInvariants.
// A violation indicates a programming error, never a user mistake.
var ErrInvariant = errors.New("graph invariant violated")

// CheckInvariants verifies the graph's structural invariants:
//   - the index is exactly the id-keyed view of the node list
//   - no node lists itself as parent or child
//   - no parent or child id repeats within one node's list
//   - every parent and child id names a node in the graph
//   - every edge is recorded on both ends
//
// Postcondition: Returns nil, or an error wrapping ErrInvariant describing the first violation.
func (g *Graph) CheckInvariants() error {
	if len(g.index) != len(g.nodes) {
		return fmt.Errorf("%w: index holds %d nodes, list holds %d", ErrInvariant, len(g.index), len(g.nodes))
	}
	for i, n := range g.nodes {
		if indexed, ok := g.index[n.ID]; !ok || indexed != n {
			return fmt.Errorf("%w: node %d (%q) missing from index", ErrInvariant, i, n.ID)
		}
	}
	for _, n := range g.nodes {
		if id, ok := firstRepeat(n.ParentIDs); ok {
			return fmt.Errorf("%w: node %q lists parent %q twice", ErrInvariant, n.ID, id)
		}
		if id, ok := firstRepeat(n.ChildIDs); ok {
			return fmt.Errorf("%w: node %q lists child %q twice", ErrInvariant, n.ID, id)
		}
		for _, pid := range n.ParentIDs {
			if pid == n.ID {
				return fmt.Errorf("%w: node %q is its own parent", ErrInvariant, n.ID)
			}
			parent, ok := g.index[pid]
			if !ok {
				return fmt.Errorf("%w: node %q has unknown parent %q", ErrInvariant, n.ID, pid)
			}
			if !parent.HasChild(n.ID) {
				return fmt.Errorf("%w: parent %q does not list child %q", ErrInvariant, pid, n.ID)
			}
		}
		for _, cid := range n.ChildIDs {
			if cid == n.ID {
				return fmt.Errorf("%w: node %q is its own child", ErrInvariant, n.ID)
			}
			child, ok := g.index[cid]
			if !ok {
				return fmt.Errorf("%w: node %q has unknown child %q", ErrInvariant, n.ID, cid)
			}
			if !child.HasParent(n.ID) {
				return fmt.Errorf("%w: child %q does not list parent %q", ErrInvariant, cid, n.ID)
			}
		}
	}
	return nil
}

func firstRepeat(ids []string) (string, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return "", false
}
