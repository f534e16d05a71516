package editor

import (
	"errors"
	"slices"

	"github.com/zyedidia/generic/mapset"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/graph"
)

var errNoActiveGraph = errors.New("no active graph")

// Command names a canvas context menu action.
type Command string

// Context menu commands.
const (
	CmdCreateRoomNode      Command = "create_room_node"
	CmdSelectAll           Command = "select_all"
	CmdClearSelection      Command = "clear_selection"
	CmdDeleteSelectedLinks Command = "delete_selected_links"
	CmdDeleteSelectedNodes Command = "delete_selected_nodes"
)

// MenuItem is one entry of the canvas context menu.
type MenuItem struct {
	Label   string
	Command Command
}

// MenuItems returns the canvas context menu in display order.
func MenuItems() []MenuItem {
	return []MenuItem{
		{Label: "Create Room Node", Command: CmdCreateRoomNode},
		{Label: "Select All Room Nodes", Command: CmdSelectAll},
		{Label: "Clear Selection", Command: CmdClearSelection},
		{Label: "Delete Selected Room Node Links", Command: CmdDeleteSelectedLinks},
		{Label: "Delete Selected Room Nodes", Command: CmdDeleteSelectedNodes},
	}
}

func (s *Session) openContextMenu(pos graph.Point) {
	items := MenuItems()
	for _, fn := range s.menuObservers {
		fn(pos, items)
	}
}

// Execute runs a context menu command. pos is the canvas position the menu
// was opened at and is only used by CmdCreateRoomNode.
//
// Postcondition: Returns false for unknown commands or when no graph is active.
func (s *Session) Execute(cmd Command, pos graph.Point) bool {
	if s.graph == nil {
		return false
	}
	switch cmd {
	case CmdCreateRoomNode:
		s.CreateNodeAt(pos)
	case CmdSelectAll:
		s.SelectAll()
	case CmdClearSelection:
		s.ClearSelection()
	case CmdDeleteSelectedLinks:
		s.DeleteSelectedLinks()
	case CmdDeleteSelectedNodes:
		s.DeleteSelectedNodes()
	default:
		return false
	}
	return true
}

// CreateNodeAt adds a placeholder-typed node with its top-left corner at pos.
// The first node of an empty graph becomes the entrance.
//
// Postcondition: Returns the new node, or nil when no graph is active.
func (s *Session) CreateNodeAt(pos graph.Point) *graph.RoomNode {
	if s.graph == nil {
		return nil
	}
	n := s.graph.CreateNode(graph.Rect{X: pos.X, Y: pos.Y, W: s.nodeW, H: s.nodeH}, nil)
	s.logger.Debug("room node created", zap.String("node_id", n.ID), zap.String("type", typeID(n)))
	return n
}

// SetSelected sets the selection flag of one node.
//
// Postcondition: Returns false if the node is not in the active graph.
func (s *Session) SetSelected(id string, selected bool) bool {
	if s.graph == nil {
		return false
	}
	n, ok := s.graph.Lookup(id)
	if !ok {
		return false
	}
	n.Selected = selected
	return true
}

// SelectAll selects every node.
func (s *Session) SelectAll() {
	if s.graph == nil {
		return
	}
	for _, n := range s.graph.Nodes() {
		n.Selected = true
	}
}

// ClearSelection deselects every node.
func (s *Session) ClearSelection() {
	if s.graph == nil {
		return
	}
	for _, n := range s.graph.Nodes() {
		n.Selected = false
	}
}

// Selection returns the ids of the selected nodes in insertion order.
func (s *Session) Selection() []string {
	if s.graph == nil {
		return nil
	}
	var ids []string
	for _, n := range s.graph.Nodes() {
		if n.Selected {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func (s *Session) selectionSet() mapset.Set[string] {
	set := mapset.New[string]()
	for _, id := range s.Selection() {
		set.Put(id)
	}
	return set
}

// DeleteSelectedLinks removes every edge whose parent and child are both
// selected, then clears the selection.
//
// Postcondition: Returns the number of edges removed.
func (s *Session) DeleteSelectedLinks() int {
	if s.graph == nil {
		return 0
	}
	selected := s.selectionSet()
	removed := 0
	for _, n := range s.graph.Nodes() {
		if !selected.Has(n.ID) {
			continue
		}
		for _, childID := range slices.Clone(n.ChildIDs) {
			if selected.Has(childID) {
				s.graph.Disconnect(n.ID, childID)
				removed++
			}
		}
	}
	s.ClearSelection()
	s.logger.Debug("selected links deleted", zap.Int("links", removed))
	return removed
}

// DeleteSelectedNodes removes every selected node except entrances, which stay selected.
//
// Postcondition: Returns the number of nodes removed.
func (s *Session) DeleteSelectedNodes() int {
	if s.graph == nil {
		return 0
	}
	selected := s.selectionSet()
	removed := 0
	for _, n := range s.graph.Nodes() {
		if !selected.Has(n.ID) || (n.Type != nil && n.Type.IsEntrance) {
			continue
		}
		if s.graph.DeleteNode(n.ID) {
			removed++
		}
	}
	if _, ok := s.graph.Lookup(s.dragged); s.state == DraggingNode && !ok {
		s.reset()
	}
	if _, ok := s.graph.PendingConnection(); s.state == DrawingConnection && !ok {
		s.reset()
	}
	if _, ok := s.graph.Lookup(s.pressed); !ok {
		s.pressed = ""
	}
	s.logger.Debug("selected nodes deleted", zap.Int("nodes", removed), zap.Int("selected", selected.Size()))
	return removed
}

// SetNodeType changes a node's type through the active graph.
func (s *Session) SetNodeType(id, typeID string) error {
	if s.graph == nil {
		return errNoActiveGraph
	}
	return s.graph.SetNodeType(id, typeID)
}

func typeID(n *graph.RoomNode) string {
	if n.Type == nil {
		return ""
	}
	return n.Type.ID
}
