// Package editor provides the interactive editing session for a dungeon room
// graph: selection, node dragging, connection drawing, and bulk commands.
//
// A Session processes one event at a time to completion and is not safe for
// concurrent use.
package editor

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/graph"
	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
)

// Default node dimensions for nodes created from the canvas.
const (
	DefaultNodeWidth  = 160.0
	DefaultNodeHeight = 75.0
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNodeSize sets the size of nodes created from the canvas.
//
// Precondition: w > 0 and h > 0; other values are ignored.
func WithNodeSize(w, h float64) Option {
	return func(s *Session) {
		if w > 0 && h > 0 {
			s.nodeW, s.nodeH = w, h
		}
	}
}

// Session is the editing state machine wrapped around one active graph.
type Session struct {
	registry *roomtype.Registry
	logger   *zap.Logger
	nodeW    float64
	nodeH    float64

	graph   *graph.Graph
	state   State
	dragged string
	pressed string

	graphObservers []func(old, current *graph.Graph)
	menuObservers  []func(pos graph.Point, items []MenuItem)
}

// New creates a Session with no active graph.
//
// Precondition: registry must be non-nil.
func New(registry *roomtype.Registry, opts ...Option) *Session {
	s := &Session{
		registry: registry,
		logger:   zap.NewNop(),
		nodeW:    DefaultNodeWidth,
		nodeH:    DefaultNodeHeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the room type catalog.
func (s *Session) Registry() *roomtype.Registry {
	return s.registry
}

// ActiveGraph returns the graph being edited, or nil.
func (s *Session) ActiveGraph() *graph.Graph {
	return s.graph
}

// OnActiveGraphChanged registers fn to be called whenever SetActiveGraph
// replaces the active graph.
func (s *Session) OnActiveGraphChanged(fn func(old, current *graph.Graph)) {
	s.graphObservers = append(s.graphObservers, fn)
}

// OnContextMenu registers fn to be called when the canvas context menu opens.
func (s *Session) OnContextMenu(fn func(pos graph.Point, items []MenuItem)) {
	s.menuObservers = append(s.menuObservers, fn)
}

// SetActiveGraph makes g the graph being edited. Any gesture in progress on
// the previous graph is abandoned.
//
// Postcondition: State() is Idle.
func (s *Session) SetActiveGraph(g *graph.Graph) {
	old := s.graph
	s.reset()
	s.graph = g
	if old == g {
		return
	}
	for _, fn := range s.graphObservers {
		fn(old, g)
	}
	if g != nil {
		s.logger.Debug("active graph changed", zap.String("graph_id", g.ID), zap.Int("nodes", g.Len()))
	}
}

// State returns the current interaction mode.
func (s *Session) State() State {
	return s.state
}

// DraggedNodeID returns the id of the node being dragged, if any.
func (s *Session) DraggedNodeID() (string, bool) {
	if s.state != DraggingNode {
		return "", false
	}
	return s.dragged, true
}

// reset abandons any gesture and returns to Idle.
func (s *Session) reset() {
	if s.graph != nil {
		if n, ok := s.graph.Lookup(s.dragged); ok {
			n.Dragging = false
		}
		s.graph.ClearPendingConnection()
	}
	s.state = Idle
	s.dragged = ""
	s.pressed = ""
}

// HitTest returns the topmost node under pos. Later nodes are drawn above
// earlier ones, so the search runs in reverse insertion order.
func (s *Session) HitTest(pos graph.Point) (*graph.RoomNode, bool) {
	if s.graph == nil {
		return nil, false
	}
	nodes := s.graph.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].Rect.Contains(pos) {
			return nodes[i], true
		}
	}
	return nil, false
}

// Handle dispatches a pointer event.
func (s *Session) Handle(ev Event) {
	switch ev.Kind {
	case PointerDown:
		s.PointerDown(ev.Button, ev.Position)
	case PointerDrag:
		s.PointerDrag(ev.Button, ev.Delta)
	case PointerUp:
		s.PointerUp(ev.Button, ev.Position)
	}
}

// PointerDown handles a button press at pos.
func (s *Session) PointerDown(button Button, pos graph.Point) {
	if s.graph == nil {
		return
	}
	node, over := s.HitTest(pos)
	switch button {
	case Primary:
		if over {
			node.Selected = !node.Selected
			s.pressed = node.ID
			return
		}
		s.ClearSelection()
		s.reset()
	case Secondary:
		if over {
			s.reset()
			s.graph.SetPendingConnection(node.ID, node.Center())
			s.state = DrawingConnection
			s.logger.Debug("drawing connection", zap.String("source_id", node.ID))
			return
		}
		s.openContextMenu(pos)
	}
}

// PointerDrag handles pointer motion by delta with button held.
func (s *Session) PointerDrag(button Button, delta graph.Point) {
	if s.graph == nil {
		return
	}
	switch button {
	case Primary:
		s.dragNode(delta)
	case Secondary:
		if s.state == DrawingConnection {
			s.graph.MovePendingCursor(delta)
		}
	}
}

func (s *Session) dragNode(delta graph.Point) {
	switch s.state {
	case Idle:
		n, ok := s.graph.Lookup(s.pressed)
		if !ok || !n.Selected || n.Dragging {
			return
		}
		n.Dragging = true
		s.dragged = n.ID
		s.state = DraggingNode
		n.Rect = n.Rect.Translate(delta)
	case DraggingNode:
		n, ok := s.graph.Lookup(s.dragged)
		if !ok {
			s.reset()
			return
		}
		n.Rect = n.Rect.Translate(delta)
	}
}

// PointerUp handles a button release at pos.
func (s *Session) PointerUp(button Button, pos graph.Point) {
	if s.graph == nil {
		return
	}
	switch button {
	case Primary:
		if s.state == DraggingNode {
			s.reset()
			return
		}
		s.pressed = ""
	case Secondary:
		if s.state != DrawingConnection {
			return
		}
		pending, ok := s.graph.PendingConnection()
		if target, over := s.HitTest(pos); ok && over {
			if err := s.graph.Connect(pending.SourceID, target.ID); err != nil {
				s.logger.Debug("connection rejected",
					zap.String("parent_id", pending.SourceID),
					zap.String("child_id", target.ID),
					zap.Error(err),
				)
			}
		}
		s.reset()
	}
}
