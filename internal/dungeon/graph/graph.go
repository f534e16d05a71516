// Package graph provides the dungeon room graph: typed room nodes joined by
// directed parent/child edges, with the connection rules that keep a layout
// well formed.
//
// A Graph is owned by a single editing session and is not safe for
// concurrent use.
package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
)

// DefaultMaxChildCorridors is the number of corridor branches a room may spawn
// when no override is configured.
const DefaultMaxChildCorridors = 3

// ErrNodeNotFound is returned when an operation names an id absent from the graph.
var ErrNodeNotFound = errors.New("room node not found")

// Hooks receives node lifecycle notifications so external storage can mirror the graph.
type Hooks interface {
	// NodeCreated is called after n has been added to g.
	NodeCreated(g *Graph, n *RoomNode)
	// NodeDestroyed is called after the node with the given id has been removed from g.
	NodeDestroyed(g *Graph, id string)
}

// HookFuncs adapts plain functions to Hooks. Nil fields are skipped.
type HookFuncs struct {
	Created   func(g *Graph, n *RoomNode)
	Destroyed func(g *Graph, id string)
}

// NodeCreated calls Created if set.
func (h HookFuncs) NodeCreated(g *Graph, n *RoomNode) {
	if h.Created != nil {
		h.Created(g, n)
	}
}

// NodeDestroyed calls Destroyed if set.
func (h HookFuncs) NodeDestroyed(g *Graph, id string) {
	if h.Destroyed != nil {
		h.Destroyed(g, id)
	}
}

// Option configures a Graph.
type Option func(*Graph)

// WithMaxChildCorridors sets the corridor fan-out limit per room.
//
// Precondition: n >= 1; smaller values are ignored.
func WithMaxChildCorridors(n int) Option {
	return func(g *Graph) {
		if n >= 1 {
			g.maxChildCorridors = n
		}
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(g *Graph) {
		g.hooks = h
	}
}

// Pending describes a connection being drawn from a source node toward the cursor.
type Pending struct {
	SourceID string
	Cursor   Point
}

// Edge is a directed parent to child link.
type Edge struct {
	ParentID string
	ChildID  string
}

// Graph is a directed graph of room nodes.
type Graph struct {
	// ID identifies the graph in external storage.
	ID string
	// Name is the human-readable graph name.
	Name string

	registry          *roomtype.Registry
	nodes             []*RoomNode
	index             map[string]*RoomNode
	pending           *Pending
	maxChildCorridors int
	hooks             Hooks
}

// New creates an empty Graph that interprets node types through registry.
//
// Precondition: registry must be non-nil.
// Postcondition: Returns an empty Graph; an empty id is replaced with a fresh UUID.
func New(id, name string, registry *roomtype.Registry, opts ...Option) *Graph {
	if id == "" {
		id = uuid.NewString()
	}
	g := &Graph{
		ID:                id,
		Name:              name,
		registry:          registry,
		index:             make(map[string]*RoomNode),
		maxChildCorridors: DefaultMaxChildCorridors,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Registry returns the room type catalog used by the graph.
func (g *Graph) Registry() *roomtype.Registry {
	return g.registry
}

// MaxChildCorridors returns the configured corridor fan-out limit.
func (g *Graph) MaxChildCorridors() int {
	return g.maxChildCorridors
}

// SetHooks replaces the lifecycle hooks. A nil value disables notifications.
func (g *Graph) SetHooks(h Hooks) {
	g.hooks = h
}

// CreateNode adds a node with a fresh id at the end of the node list.
// The first node of an empty graph is always given the entrance type, and a
// nil typ is replaced by the registry's placeholder type.
//
// Postcondition: Returns the new node, which is registered in the index.
func (g *Graph) CreateNode(rect Rect, typ *roomtype.Descriptor) *RoomNode {
	if typ == nil {
		if none, ok := g.registry.None(); ok {
			typ = none
		}
	}
	if len(g.nodes) == 0 {
		if entrance, ok := g.registry.Entrance(); ok {
			typ = entrance
		}
	}
	n := &RoomNode{
		ID:        uuid.NewString(),
		Rect:      rect,
		Type:      typ,
		ParentIDs: []string{},
		ChildIDs:  []string{},
	}
	g.insert(n)
	if g.hooks != nil {
		g.hooks.NodeCreated(g, n)
	}
	return n
}

func (g *Graph) insert(n *RoomNode) {
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = n
}

// DeleteNode removes a node and severs every edge touching it.
// Missing ids and entrance nodes are left untouched.
//
// Postcondition: Returns true if the node was removed.
func (g *Graph) DeleteNode(id string) bool {
	n, ok := g.index[id]
	if !ok || isEntrance(n) {
		return false
	}

	for _, childID := range n.ChildIDs {
		if child, ok := g.index[childID]; ok {
			child.ParentIDs = removeID(child.ParentIDs, id)
		}
	}
	for _, parentID := range n.ParentIDs {
		if parent, ok := g.index[parentID]; ok {
			parent.ChildIDs = removeID(parent.ChildIDs, id)
		}
	}

	g.nodes = slices.DeleteFunc(g.nodes, func(x *RoomNode) bool { return x.ID == id })
	delete(g.index, id)

	if g.pending != nil && g.pending.SourceID == id {
		g.pending = nil
	}
	if g.hooks != nil {
		g.hooks.NodeDestroyed(g, id)
	}
	return true
}

// Disconnect removes the edge from parentID to childID if present.
func (g *Graph) Disconnect(parentID, childID string) {
	if parent, ok := g.index[parentID]; ok {
		parent.ChildIDs = removeID(parent.ChildIDs, childID)
	}
	if child, ok := g.index[childID]; ok {
		child.ParentIDs = removeID(child.ParentIDs, parentID)
	}
}

// Lookup returns the node with the given id.
func (g *Graph) Lookup(id string) (*RoomNode, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Nodes returns the nodes in insertion order. The slice is a copy; the nodes are not.
func (g *Graph) Nodes() []*RoomNode {
	out := make([]*RoomNode, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Edges returns every parent to child edge, ordered by parent insertion order
// then by the parent's child order.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, n := range g.nodes {
		for _, childID := range n.ChildIDs {
			if _, ok := g.index[childID]; ok {
				edges = append(edges, Edge{ParentID: n.ID, ChildID: childID})
			}
		}
	}
	return edges
}

// SetNodeType changes a node's room type. Only parentless, non-entrance nodes
// may change type, and only to a displayable type. A node that already has
// children keeps its corridor kind and cannot become untyped, so its child
// links still pair corridors with rooms.
//
// Postcondition: Returns nil on success or an error describing the refusal; the node is unchanged on error.
func (g *Graph) SetNodeType(id, typeID string) error {
	n, ok := g.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	if isEntrance(n) {
		return fmt.Errorf("node %q: entrance type is fixed", id)
	}
	if n.Connected() {
		return fmt.Errorf("node %q: type is fixed once the node has a parent", id)
	}
	typ, ok := g.registry.Lookup(typeID)
	if !ok {
		return fmt.Errorf("unknown room type %q", typeID)
	}
	if !typ.Displayable {
		return fmt.Errorf("room type %q is not selectable", typeID)
	}
	if len(n.ChildIDs) > 0 && (typ.IsNone || typ.IsCorridor != isCorridor(n)) {
		return fmt.Errorf("node %q: type %q does not fit its child links: %w", id, typeID, ErrCorridorPairing)
	}
	n.Type = typ
	return nil
}

// SetPendingConnection starts a connection drawn from sourceID.
//
// Postcondition: Returns false and leaves state unchanged if sourceID is absent.
func (g *Graph) SetPendingConnection(sourceID string, cursor Point) bool {
	if _, ok := g.index[sourceID]; !ok {
		return false
	}
	g.pending = &Pending{SourceID: sourceID, Cursor: cursor}
	return true
}

// MovePendingCursor moves the cursor end of the pending connection by delta.
func (g *Graph) MovePendingCursor(delta Point) {
	if g.pending != nil {
		g.pending.Cursor = g.pending.Cursor.Add(delta)
	}
}

// ClearPendingConnection drops any in-progress connection.
func (g *Graph) ClearPendingConnection() {
	g.pending = nil
}

// PendingConnection returns the in-progress connection, if any.
func (g *Graph) PendingConnection() (Pending, bool) {
	if g.pending == nil {
		return Pending{}, false
	}
	return *g.pending, true
}

// ConnectedBossID returns the id of the first boss room that has a parent.
func (g *Graph) ConnectedBossID() (string, bool) {
	for _, n := range g.nodes {
		if n.Type != nil && n.Type.IsBossRoom && n.Connected() {
			return n.ID, true
		}
	}
	return "", false
}

func isEntrance(n *RoomNode) bool {
	return n.Type != nil && n.Type.IsEntrance
}

func isCorridor(n *RoomNode) bool {
	return n.Type != nil && n.Type.IsCorridor
}
