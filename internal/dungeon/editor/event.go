package editor

import "github.com/cory-johannsen/roomgraph/internal/dungeon/graph"

// Button identifies a pointer button.
type Button int

// Pointer buttons understood by the session.
const (
	Primary Button = iota
	Secondary
)

// String returns the button name.
func (b Button) String() string {
	switch b {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// EventKind is the type of a pointer event.
type EventKind int

// Pointer event kinds.
const (
	PointerDown EventKind = iota
	PointerDrag
	PointerUp
)

// Event is a single pointer input. Position is used by down and up events;
// Delta by drag events.
type Event struct {
	Kind     EventKind
	Button   Button
	Position graph.Point
	Delta    graph.Point
}

// State is the session's interaction mode.
type State int

// Interaction modes.
const (
	Idle State = iota
	DraggingNode
	DrawingConnection
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DraggingNode:
		return "dragging_node"
	case DrawingConnection:
		return "drawing_connection"
	default:
		return "unknown"
	}
}
