package graph

import (
	"slices"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
)

// RoomNode is a single room or corridor in a dungeon graph.
// Nodes are owned by exactly one Graph and must be mutated through it.
type RoomNode struct {
	// ID is assigned at creation and never changes.
	ID string
	// Rect is the node's position and size on the canvas.
	Rect Rect
	// Type is the node's room type. It is never nil for nodes created by a Graph.
	Type *roomtype.Descriptor
	// ParentIDs lists incoming edges in insertion order.
	ParentIDs []string
	// ChildIDs lists outgoing edges in insertion order.
	ChildIDs []string
	// Selected marks the node as part of the editor selection.
	Selected bool
	// Dragging is set while a drag gesture is moving the node.
	Dragging bool
}

// HasParent reports whether id is one of n's parents.
func (n *RoomNode) HasParent(id string) bool {
	return slices.Contains(n.ParentIDs, id)
}

// HasChild reports whether id is one of n's children.
func (n *RoomNode) HasChild(id string) bool {
	return slices.Contains(n.ChildIDs, id)
}

// Connected reports whether n has at least one parent.
func (n *RoomNode) Connected() bool {
	return len(n.ParentIDs) > 0
}

// Center returns the midpoint of the node's rectangle.
func (n *RoomNode) Center() Point {
	return n.Rect.Center()
}

func removeID(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}
