package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/editor"
	"github.com/cory-johannsen/roomgraph/internal/dungeon/graph"
)

// RegisterModules installs the dungeon table into L. Every function acts on
// the session's active graph and goes through the same rules as pointer edits.
//
// Precondition: L must be from NewSandboxedState; session and logger must be non-nil.
// Postcondition: dungeon global is defined in L.
func RegisterModules(L *lua.LState, session *editor.Session, logger *zap.Logger) {
	d := &dungeonModule{session: session, logger: logger}

	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"create_node":           d.createNode,
		"connect":               d.connect,
		"disconnect":            d.disconnect,
		"delete_node":           d.deleteNode,
		"set_type":              d.setType,
		"select":                d.selectNode,
		"select_all":            d.selectAll,
		"clear_selection":       d.clearSelection,
		"delete_selected_nodes": d.deleteSelectedNodes,
		"delete_selected_links": d.deleteSelectedLinks,
		"node_count":            d.nodeCount,
		"nodes":                 d.nodes,
		"type_of":               d.typeOf,
	})

	logMod := L.NewTable()
	L.SetFuncs(logMod, map[string]lua.LGFunction{
		"debug": logFunc(logger.Debug),
		"info":  logFunc(logger.Info),
		"warn":  logFunc(logger.Warn),
		"error": logFunc(logger.Error),
	})
	L.SetField(mod, "log", logMod)

	L.SetGlobal("dungeon", mod)
}

type dungeonModule struct {
	session *editor.Session
	logger  *zap.Logger
}

func (d *dungeonModule) active(L *lua.LState) *graph.Graph {
	g := d.session.ActiveGraph()
	if g == nil {
		L.RaiseError("dungeon: no active graph")
	}
	return g
}

// create_node(type_id, x, y) -> id [, err]
// An empty or "none" type_id leaves the placeholder type.
func (d *dungeonModule) createNode(L *lua.LState) int {
	d.active(L)
	typeID := L.OptString(1, "")
	x := float64(L.CheckNumber(2))
	y := float64(L.CheckNumber(3))

	n := d.session.CreateNodeAt(graph.Point{X: x, Y: y})
	L.Push(lua.LString(n.ID))
	if typeID == "" || (n.Type != nil && (n.Type.IsEntrance || n.Type.ID == typeID)) {
		return 1
	}
	if err := d.session.SetNodeType(n.ID, typeID); err != nil {
		L.Push(lua.LString(err.Error()))
		return 2
	}
	return 1
}

// connect(parent, child) -> ok, reason
func (d *dungeonModule) connect(L *lua.LState) int {
	g := d.active(L)
	parent, child := L.CheckString(1), L.CheckString(2)
	if err := g.Connect(parent, child); err != nil {
		d.logger.Debug("script connection rejected",
			zap.String("parent_id", parent),
			zap.String("child_id", child),
			zap.Error(err),
		)
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// disconnect(parent, child)
func (d *dungeonModule) disconnect(L *lua.LState) int {
	d.active(L).Disconnect(L.CheckString(1), L.CheckString(2))
	return 0
}

// delete_node(id) -> bool
func (d *dungeonModule) deleteNode(L *lua.LState) int {
	L.Push(lua.LBool(d.active(L).DeleteNode(L.CheckString(1))))
	return 1
}

// set_type(id, type_id) -> ok, err
func (d *dungeonModule) setType(L *lua.LState) int {
	d.active(L)
	if err := d.session.SetNodeType(L.CheckString(1), L.CheckString(2)); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// select(id [, selected]) -> bool
func (d *dungeonModule) selectNode(L *lua.LState) int {
	d.active(L)
	L.Push(lua.LBool(d.session.SetSelected(L.CheckString(1), L.OptBool(2, true))))
	return 1
}

func (d *dungeonModule) selectAll(L *lua.LState) int {
	d.active(L)
	d.session.SelectAll()
	return 0
}

func (d *dungeonModule) clearSelection(L *lua.LState) int {
	d.active(L)
	d.session.ClearSelection()
	return 0
}

func (d *dungeonModule) deleteSelectedNodes(L *lua.LState) int {
	d.active(L)
	L.Push(lua.LNumber(d.session.DeleteSelectedNodes()))
	return 1
}

func (d *dungeonModule) deleteSelectedLinks(L *lua.LState) int {
	d.active(L)
	L.Push(lua.LNumber(d.session.DeleteSelectedLinks()))
	return 1
}

func (d *dungeonModule) nodeCount(L *lua.LState) int {
	L.Push(lua.LNumber(d.active(L).Len()))
	return 1
}

// nodes() -> {id, ...} in insertion order
func (d *dungeonModule) nodes(L *lua.LState) int {
	tbl := L.NewTable()
	for _, n := range d.active(L).Nodes() {
		tbl.Append(lua.LString(n.ID))
	}
	L.Push(tbl)
	return 1
}

// type_of(id) -> type_id or nil
func (d *dungeonModule) typeOf(L *lua.LState) int {
	n, ok := d.active(L).Lookup(L.CheckString(1))
	if !ok || n.Type == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(n.Type.ID))
	return 1
}

func logFunc(fn func(string, ...zap.Field)) lua.LGFunction {
	return func(L *lua.LState) int {
		fn(L.CheckString(1), zap.String("source", "lua"))
		return 0
	}
}
