package graph

import (
	"errors"
	"fmt"
)

// Connection rule violations, in the order they are evaluated.
var (
	ErrSelfLink         = errors.New("a node cannot be linked to itself")
	ErrDuplicateEdge    = errors.New("parent already links to this child")
	ErrCycle            = errors.New("child is already a parent of this node")
	ErrHasParent        = errors.New("child already has a parent")
	ErrNoneType         = errors.New("child has no room type")
	ErrEntranceChild    = errors.New("an entrance cannot be a child")
	ErrCorridorPairing  = errors.New("corridors must link to rooms and rooms to corridors")
	ErrCorridorLimit    = errors.New("parent has reached its corridor limit")
	ErrCorridorOccupied = errors.New("corridor already leads to a room")
	ErrBossConnected    = errors.New("a boss room is already connected")
)

// TryConnect links parentID to childID if every connection rule allows it.
//
// Postcondition: Returns true and records the edge on both nodes, or returns
// false and leaves the graph unchanged.
func (g *Graph) TryConnect(parentID, childID string) bool {
	return g.Connect(parentID, childID) == nil
}

// Connect links parentID to childID, reporting which rule refused the link.
//
// Postcondition: Returns nil and records the edge on both nodes, or returns a
// rule error (testable with errors.Is) and leaves the graph unchanged.
func (g *Graph) Connect(parentID, childID string) error {
	if err := g.CanConnect(parentID, childID); err != nil {
		return err
	}
	parent := g.index[parentID]
	child := g.index[childID]
	parent.ChildIDs = append(parent.ChildIDs, childID)
	child.ParentIDs = append(child.ParentIDs, parentID)
	return nil
}

// CanConnect evaluates the connection rules without mutating the graph.
// The first failing rule is reported.
func (g *Graph) CanConnect(parentID, childID string) error {
	parent, ok := g.index[parentID]
	if !ok {
		return fmt.Errorf("parent %w: %q", ErrNodeNotFound, parentID)
	}
	child, ok := g.index[childID]
	if !ok {
		return fmt.Errorf("child %w: %q", ErrNodeNotFound, childID)
	}

	if parentID == childID {
		return ErrSelfLink
	}
	if parent.HasChild(childID) {
		return ErrDuplicateEdge
	}
	if parent.HasParent(childID) {
		return ErrCycle
	}
	if child.Connected() {
		return ErrHasParent
	}
	if child.Type == nil || child.Type.IsNone {
		return ErrNoneType
	}
	if child.Type.IsEntrance {
		return ErrEntranceChild
	}

	parentCorridor := parent.Type != nil && parent.Type.IsCorridor
	childCorridor := child.Type.IsCorridor
	if parentCorridor == childCorridor {
		return ErrCorridorPairing
	}
	if childCorridor && len(parent.ChildIDs) >= g.maxChildCorridors {
		return ErrCorridorLimit
	}
	if !childCorridor && len(parent.ChildIDs) > 0 {
		return ErrCorridorOccupied
	}
	if child.Type.IsBossRoom && g.otherConnectedBoss(childID) {
		return ErrBossConnected
	}
	return nil
}

func (g *Graph) otherConnectedBoss(id string) bool {
	for _, n := range g.nodes {
		if n.ID != id && n.Type != nil && n.Type.IsBossRoom && n.Connected() {
			return true
		}
	}
	return false
}
