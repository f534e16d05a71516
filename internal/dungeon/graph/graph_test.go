package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
)

var testRect = Rect{X: 10, Y: 20, W: 160, H: 75}

func newTestGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	return New("test", "Test Graph", roomtype.Default(), opts...)
}

func mustType(t *testing.T, g *Graph, id string) *roomtype.Descriptor {
	t.Helper()
	d, ok := g.Registry().Lookup(id)
	require.True(t, ok, "room type %q", id)
	return d
}

// newRooted returns a graph whose first node is the entrance.
func newRooted(t *testing.T, opts ...Option) (*Graph, *RoomNode) {
	t.Helper()
	g := newTestGraph(t, opts...)
	e := g.CreateNode(testRect, nil)
	return g, e
}

func TestNew_GeneratesID(t *testing.T) {
	g := New("", "", roomtype.Default())
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, DefaultMaxChildCorridors, g.MaxChildCorridors())
}

func TestWithMaxChildCorridors_IgnoresInvalid(t *testing.T) {
	g := newTestGraph(t, WithMaxChildCorridors(0))
	assert.Equal(t, DefaultMaxChildCorridors, g.MaxChildCorridors())
	g = newTestGraph(t, WithMaxChildCorridors(5))
	assert.Equal(t, 5, g.MaxChildCorridors())
}

func TestCreateNode_FirstNodeForcedToEntrance(t *testing.T) {
	g := newTestGraph(t)
	n := g.CreateNode(testRect, mustType(t, g, "none"))

	assert.True(t, n.Type.IsEntrance)
	assert.Equal(t, []string{}, n.ParentIDs)
	assert.Equal(t, []string{}, n.ChildIDs)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, testRect, n.Rect)

	got, ok := g.Lookup(n.ID)
	require.True(t, ok)
	assert.Same(t, n, got)
}

func TestCreateNode_LaterNodesKeepType(t *testing.T) {
	g, _ := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	assert.Equal(t, "corridor", c.Type.ID)

	none := g.CreateNode(testRect, nil)
	assert.Equal(t, "none", none.Type.ID, "nil type falls back to the placeholder")

	assert.Equal(t, 3, g.Len())
	nodes := g.Nodes()
	assert.Equal(t, c.ID, nodes[1].ID)
	assert.Equal(t, none.ID, nodes[2].ID)
}

func TestCreateNode_UniqueIDs(t *testing.T) {
	g, _ := newRooted(t)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := g.CreateNode(testRect, nil)
		assert.False(t, seen[n.ID])
		seen[n.ID] = true
	}
}

func TestDeleteNode_EntranceIsNoOp(t *testing.T) {
	g, e := newRooted(t)
	before := g.Snapshot()
	assert.False(t, g.DeleteNode(e.ID))
	assert.Equal(t, before, g.Snapshot())
}

func TestDeleteNode_Missing(t *testing.T) {
	g, _ := newRooted(t)
	assert.False(t, g.DeleteNode("missing"))
	assert.Equal(t, 1, g.Len())
}

func TestDeleteNode_SeversNeighbours(t *testing.T) {
	g, e := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	r := g.CreateNode(testRect, mustType(t, g, "small_room"))
	require.True(t, g.TryConnect(e.ID, c.ID))
	require.True(t, g.TryConnect(c.ID, r.ID))

	assert.True(t, g.DeleteNode(c.ID))

	_, ok := g.Lookup(c.ID)
	assert.False(t, ok)
	assert.Empty(t, e.ChildIDs)
	assert.Empty(t, r.ParentIDs)
	assert.Equal(t, 2, g.Len())
	assert.NoError(t, g.CheckInvariants())
}

func TestDeleteNode_ClearsPendingFromSource(t *testing.T) {
	g, _ := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	require.True(t, g.SetPendingConnection(c.ID, c.Center()))

	g.DeleteNode(c.ID)
	_, ok := g.PendingConnection()
	assert.False(t, ok)
}

func TestDisconnect(t *testing.T) {
	g, e := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	require.True(t, g.TryConnect(e.ID, c.ID))

	g.Disconnect(e.ID, c.ID)
	assert.Empty(t, e.ChildIDs)
	assert.Empty(t, c.ParentIDs)

	g.Disconnect(e.ID, c.ID)
	g.Disconnect("missing", c.ID)
	assert.NoError(t, g.CheckInvariants())
}

func TestHooks(t *testing.T) {
	var created, destroyed []string
	g := newTestGraph(t, WithHooks(HookFuncs{
		Created:   func(_ *Graph, n *RoomNode) { created = append(created, n.ID) },
		Destroyed: func(_ *Graph, id string) { destroyed = append(destroyed, id) },
	}))

	e := g.CreateNode(testRect, nil)
	r := g.CreateNode(testRect, nil)
	g.DeleteNode(e.ID)
	g.DeleteNode(r.ID)

	assert.Equal(t, []string{e.ID, r.ID}, created)
	assert.Equal(t, []string{r.ID}, destroyed)

	g.SetHooks(nil)
	g.CreateNode(testRect, nil)
	assert.Len(t, created, 2)
}

func TestHookFuncs_NilFields(t *testing.T) {
	var h HookFuncs
	assert.NotPanics(t, func() {
		h.NodeCreated(nil, nil)
		h.NodeDestroyed(nil, "")
	})
}

func TestEdges(t *testing.T) {
	g, e := newRooted(t)
	c1 := g.CreateNode(testRect, mustType(t, g, "corridor"))
	c2 := g.CreateNode(testRect, mustType(t, g, "corridor"))
	r := g.CreateNode(testRect, mustType(t, g, "small_room"))
	require.True(t, g.TryConnect(e.ID, c1.ID))
	require.True(t, g.TryConnect(e.ID, c2.ID))
	require.True(t, g.TryConnect(c1.ID, r.ID))

	assert.Equal(t, []Edge{
		{ParentID: e.ID, ChildID: c1.ID},
		{ParentID: e.ID, ChildID: c2.ID},
		{ParentID: c1.ID, ChildID: r.ID},
	}, g.Edges())
}

func TestSetNodeType(t *testing.T) {
	g, e := newRooted(t)
	n := g.CreateNode(testRect, nil)

	require.NoError(t, g.SetNodeType(n.ID, "corridor"))
	assert.Equal(t, "corridor", n.Type.ID)

	assert.Error(t, g.SetNodeType(e.ID, "small_room"), "entrance type is fixed")
	assert.Error(t, g.SetNodeType(n.ID, "entrance"), "entrance is not displayable")
	assert.Error(t, g.SetNodeType(n.ID, "nope"))
	assert.ErrorIs(t, g.SetNodeType("missing", "corridor"), ErrNodeNotFound)

	require.True(t, g.TryConnect(e.ID, n.ID))
	assert.Error(t, g.SetNodeType(n.ID, "small_room"), "connected nodes keep their type")
	assert.Equal(t, "corridor", n.Type.ID)
}

func TestSetNodeType_KeepsChildLinksPaired(t *testing.T) {
	g, _ := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	r := g.CreateNode(testRect, mustType(t, g, "small_room"))
	require.True(t, g.TryConnect(c.ID, r.ID))

	assert.ErrorIs(t, g.SetNodeType(c.ID, "small_room"), ErrCorridorPairing)
	assert.ErrorIs(t, g.SetNodeType(c.ID, "none"), ErrCorridorPairing)
	assert.Equal(t, "corridor", c.Type.ID)

	room := g.CreateNode(testRect, mustType(t, g, "medium_room"))
	c2 := g.CreateNode(testRect, mustType(t, g, "corridor"))
	require.True(t, g.TryConnect(room.ID, c2.ID))
	assert.ErrorIs(t, g.SetNodeType(room.ID, "corridor"), ErrCorridorPairing)
	assert.ErrorIs(t, g.SetNodeType(room.ID, "none"), ErrCorridorPairing)
	require.NoError(t, g.SetNodeType(room.ID, "chest_room"), "room to room keeps the pairing")
	assert.Equal(t, "chest_room", room.Type.ID)

	g.Disconnect(c.ID, r.ID)
	require.NoError(t, g.SetNodeType(c.ID, "small_room"), "childless nodes retype freely")
}

func TestFromSnapshot_RejectsRepeatedLinks(t *testing.T) {
	reg := roomtype.Default()
	snap := Snapshot{
		ID: "dup",
		Nodes: []NodeRecord{
			{ID: "e", TypeID: "entrance", Rect: testRect, ChildIDs: []string{"c", "c"}},
			{ID: "c", TypeID: "corridor", Rect: testRect, ParentIDs: []string{"e", "e"}},
		},
	}
	_, err := FromSnapshot(snap, reg)
	assert.ErrorIs(t, err, ErrInvariant)

	snap.Nodes[0].ChildIDs = []string{"c"}
	_, err = FromSnapshot(snap, reg)
	assert.ErrorIs(t, err, ErrInvariant, "repeated parent alone")

	snap.Nodes[1].ParentIDs = []string{"e"}
	g, err := FromSnapshot(snap, reg)
	require.NoError(t, err)
	assert.Len(t, g.Edges(), 1)
}

func TestPendingConnection(t *testing.T) {
	g, e := newRooted(t)
	_, ok := g.PendingConnection()
	assert.False(t, ok)

	assert.False(t, g.SetPendingConnection("missing", Point{}))
	require.True(t, g.SetPendingConnection(e.ID, Point{X: 1, Y: 2}))
	g.MovePendingCursor(Point{X: 3, Y: 4})

	p, ok := g.PendingConnection()
	require.True(t, ok)
	assert.Equal(t, Pending{SourceID: e.ID, Cursor: Point{X: 4, Y: 6}}, p)

	g.ClearPendingConnection()
	g.MovePendingCursor(Point{X: 1})
	_, ok = g.PendingConnection()
	assert.False(t, ok)
}

func TestRect(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 10, H: 4}
	assert.Equal(t, Point{X: 5, Y: 2}, r.Center())
	assert.True(t, r.Contains(Point{X: 0, Y: 0}))
	assert.True(t, r.Contains(Point{X: 9.5, Y: 3.9}))
	assert.False(t, r.Contains(Point{X: 10, Y: 1}))
	assert.False(t, r.Contains(Point{X: -1, Y: 1}))
	assert.Equal(t, Rect{X: 2, Y: -1, W: 10, H: 4}, r.Translate(Point{X: 2, Y: -1}))
	assert.Equal(t, Point{X: 2, Y: -1}, r.Translate(Point{X: 2, Y: -1}).Position())
}

func TestCheckInvariants_DetectsCorruption(t *testing.T) {
	g, e := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	require.NoError(t, g.CheckInvariants())

	e.ChildIDs = append(e.ChildIDs, c.ID)
	assert.ErrorIs(t, g.CheckInvariants(), ErrInvariant, "one-sided edge")
	e.ChildIDs = nil

	c.ParentIDs = []string{"ghost"}
	assert.ErrorIs(t, g.CheckInvariants(), ErrInvariant, "dangling parent")
	c.ParentIDs = nil

	c.ChildIDs = []string{c.ID}
	assert.ErrorIs(t, g.CheckInvariants(), ErrInvariant, "self child")
	c.ChildIDs = nil

	require.True(t, g.TryConnect(e.ID, c.ID))
	e.ChildIDs = append(e.ChildIDs, c.ID)
	c.ParentIDs = append(c.ParentIDs, e.ID)
	assert.ErrorIs(t, g.CheckInvariants(), ErrInvariant, "repeated link")
	e.ChildIDs = e.ChildIDs[:1]
	c.ParentIDs = c.ParentIDs[:1]
	require.NoError(t, g.CheckInvariants())

	delete(g.index, c.ID)
	assert.ErrorIs(t, g.CheckInvariants(), ErrInvariant, "index drift")
}
