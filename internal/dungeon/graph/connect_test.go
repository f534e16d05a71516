package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
)

func TestConnect_EntranceCorridorRoomChain(t *testing.T) {
	g, e := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	r1 := g.CreateNode(testRect, mustType(t, g, "small_room"))

	assert.True(t, g.TryConnect(e.ID, c.ID))
	assert.True(t, g.TryConnect(c.ID, r1.ID))
	assert.False(t, g.TryConnect(e.ID, r1.ID))
	assert.ErrorIs(t, g.Connect(e.ID, r1.ID), ErrHasParent)

	assert.Equal(t, []string{c.ID}, e.ChildIDs)
	assert.Equal(t, []string{e.ID}, c.ParentIDs)
	assert.Equal(t, []string{r1.ID}, c.ChildIDs)
	assert.Equal(t, []string{c.ID}, r1.ParentIDs)
}

func TestConnect_SelfLink(t *testing.T) {
	g, e := newRooted(t)
	assert.False(t, g.TryConnect(e.ID, e.ID))
	assert.ErrorIs(t, g.Connect(e.ID, e.ID), ErrSelfLink)
}

func TestConnect_DuplicateEdge(t *testing.T) {
	g, e := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	require.True(t, g.TryConnect(e.ID, c.ID))
	assert.False(t, g.TryConnect(e.ID, c.ID))
	assert.ErrorIs(t, g.Connect(e.ID, c.ID), ErrDuplicateEdge)
	assert.Len(t, e.ChildIDs, 1)
}

func TestConnect_TwoCycle(t *testing.T) {
	g, e := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	require.True(t, g.TryConnect(e.ID, c.ID))
	assert.ErrorIs(t, g.Connect(c.ID, e.ID), ErrCycle)
}

func TestConnect_NoneChild(t *testing.T) {
	g, e := newRooted(t)
	n := g.CreateNode(testRect, nil)
	assert.ErrorIs(t, g.Connect(e.ID, n.ID), ErrNoneType)
}

func TestConnect_EntranceChild(t *testing.T) {
	g, _ := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	e2 := g.CreateNode(testRect, mustType(t, g, "entrance"))
	assert.ErrorIs(t, g.Connect(c.ID, e2.ID), ErrEntranceChild)
}

func TestConnect_CorridorPairing(t *testing.T) {
	g, e := newRooted(t)
	c1 := g.CreateNode(testRect, mustType(t, g, "corridor"))
	c2 := g.CreateNode(testRect, mustType(t, g, "corridor_ns"))
	r1 := g.CreateNode(testRect, mustType(t, g, "small_room"))
	r2 := g.CreateNode(testRect, mustType(t, g, "large_room"))

	assert.ErrorIs(t, g.Connect(c1.ID, c2.ID), ErrCorridorPairing)
	assert.ErrorIs(t, g.Connect(r1.ID, r2.ID), ErrCorridorPairing)
	assert.ErrorIs(t, g.Connect(e.ID, r1.ID), ErrCorridorPairing)
}

func TestConnect_CorridorLimit(t *testing.T) {
	g, e := newRooted(t)
	for i := 0; i < DefaultMaxChildCorridors; i++ {
		c := g.CreateNode(testRect, mustType(t, g, "corridor"))
		require.True(t, g.TryConnect(e.ID, c.ID), "corridor %d", i)
	}
	extra := g.CreateNode(testRect, mustType(t, g, "corridor"))
	assert.ErrorIs(t, g.Connect(e.ID, extra.ID), ErrCorridorLimit)
	assert.Len(t, e.ChildIDs, DefaultMaxChildCorridors)
}

func TestConnect_CorridorLimitConfigured(t *testing.T) {
	g, e := newRooted(t, WithMaxChildCorridors(1))
	c1 := g.CreateNode(testRect, mustType(t, g, "corridor"))
	c2 := g.CreateNode(testRect, mustType(t, g, "corridor"))
	require.True(t, g.TryConnect(e.ID, c1.ID))
	assert.ErrorIs(t, g.Connect(e.ID, c2.ID), ErrCorridorLimit)
}

func TestConnect_CorridorLeadsToOneRoom(t *testing.T) {
	g, e := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	r1 := g.CreateNode(testRect, mustType(t, g, "small_room"))
	r2 := g.CreateNode(testRect, mustType(t, g, "medium_room"))
	require.True(t, g.TryConnect(e.ID, c.ID))
	require.True(t, g.TryConnect(c.ID, r1.ID))
	assert.ErrorIs(t, g.Connect(c.ID, r2.ID), ErrCorridorOccupied)
}

func TestConnect_SingleConnectedBoss(t *testing.T) {
	g, e := newRooted(t)
	c1 := g.CreateNode(testRect, mustType(t, g, "corridor"))
	c2 := g.CreateNode(testRect, mustType(t, g, "corridor"))
	b1 := g.CreateNode(testRect, mustType(t, g, "boss_room"))
	b2 := g.CreateNode(testRect, mustType(t, g, "boss_room"))
	require.True(t, g.TryConnect(e.ID, c1.ID))
	require.True(t, g.TryConnect(e.ID, c2.ID))

	_, ok := g.ConnectedBossID()
	assert.False(t, ok, "unconnected boss rooms coexist")

	require.True(t, g.TryConnect(c1.ID, b1.ID))
	id, ok := g.ConnectedBossID()
	require.True(t, ok)
	assert.Equal(t, b1.ID, id)

	assert.ErrorIs(t, g.Connect(c2.ID, b2.ID), ErrBossConnected)

	g.Disconnect(c1.ID, b1.ID)
	assert.True(t, g.TryConnect(c2.ID, b2.ID))
	id, _ = g.ConnectedBossID()
	assert.Equal(t, b2.ID, id)
}

func TestConnect_UnknownNodes(t *testing.T) {
	g, e := newRooted(t)
	assert.ErrorIs(t, g.Connect(e.ID, "missing"), ErrNodeNotFound)
	assert.ErrorIs(t, g.Connect("missing", e.ID), ErrNodeNotFound)
	assert.False(t, g.TryConnect("missing", "missing"))
}

func TestCanConnect_DoesNotMutate(t *testing.T) {
	g, e := newRooted(t)
	c := g.CreateNode(testRect, mustType(t, g, "corridor"))
	assert.NoError(t, g.CanConnect(e.ID, c.ID))
	assert.Empty(t, e.ChildIDs)
	assert.Empty(t, c.ParentIDs)
}

var ruleErrors = []error{
	ErrNodeNotFound, ErrSelfLink, ErrDuplicateEdge, ErrCycle, ErrHasParent, ErrNoneType,
	ErrEntranceChild, ErrCorridorPairing, ErrCorridorLimit, ErrCorridorOccupied, ErrBossConnected,
}

func isRuleError(err error) bool {
	for _, r := range ruleErrors {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

// genGraph builds a graph through a random sequence of public operations.
func genGraph(t *rapid.T, reg *roomtype.Registry) *Graph {
	g := New("gen", "Generated", reg, WithMaxChildCorridors(rapid.IntRange(1, 4).Draw(t, "max_corridors")))
	types := reg.All()
	steps := rapid.IntRange(0, 60).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		ids := make([]string, 0, g.Len())
		for _, n := range g.Nodes() {
			ids = append(ids, n.ID)
		}
		op := rapid.IntRange(0, 3).Draw(t, "op")
		if len(ids) == 0 {
			op = 0
		}
		switch op {
		case 0:
			typ := rapid.SampledFrom(types).Draw(t, "type")
			g.CreateNode(Rect{W: 160, H: 75}, typ)
		case 1:
			g.DeleteNode(rapid.SampledFrom(ids).Draw(t, "delete"))
		case 2:
			err := g.Connect(rapid.SampledFrom(ids).Draw(t, "parent"), rapid.SampledFrom(ids).Draw(t, "child"))
			if err != nil && !isRuleError(err) {
				t.Fatalf("unexpected connect error: %v", err)
			}
		case 3:
			g.Disconnect(rapid.SampledFrom(ids).Draw(t, "parent"), rapid.SampledFrom(ids).Draw(t, "child"))
		}
	}
	return g
}

func TestPropertyInvariantsHoldUnderRandomEdits(t *testing.T) {
	reg := roomtype.Default()
	rapid.Check(t, func(t *rapid.T) {
		g := genGraph(t, reg)
		if err := g.CheckInvariants(); err != nil {
			t.Fatalf("invariant violated: %v", err)
		}
		keys := make(map[string]bool, len(g.index))
		for id := range g.index {
			keys[id] = true
		}
		for _, n := range g.Nodes() {
			if !keys[n.ID] {
				t.Fatalf("node %q missing from index", n.ID)
			}
			delete(keys, n.ID)
		}
		if len(keys) != 0 {
			t.Fatalf("index holds %d extra ids", len(keys))
		}
	})
}

func TestPropertyStructuralRulesHold(t *testing.T) {
	reg := roomtype.Default()
	rapid.Check(t, func(t *rapid.T) {
		g := genGraph(t, reg)
		bosses := 0
		for _, n := range g.Nodes() {
			if len(n.ParentIDs) > 1 {
				t.Fatalf("node %q has %d parents", n.ID, len(n.ParentIDs))
			}
			if n.Type.IsEntrance && n.Connected() {
				t.Fatalf("entrance %q has a parent", n.ID)
			}
			if n.Type.IsBossRoom && n.Connected() {
				bosses++
			}
			rooms, corridors := 0, 0
			for _, cid := range n.ChildIDs {
				child, _ := g.Lookup(cid)
				if child.Type.IsCorridor == n.Type.IsCorridor {
					t.Fatalf("edge %q -> %q pairs like with like", n.ID, cid)
				}
				if child.Type.IsCorridor {
					corridors++
				} else {
					rooms++
				}
			}
			if corridors > g.MaxChildCorridors() {
				t.Fatalf("node %q has %d corridor children", n.ID, corridors)
			}
			if rooms > 1 {
				t.Fatalf("corridor %q leads to %d rooms", n.ID, rooms)
			}
		}
		if bosses > 1 {
			t.Fatalf("%d connected boss rooms", bosses)
		}
	})
}

func TestPropertyRejectedConnectLeavesGraphUnchanged(t *testing.T) {
	reg := roomtype.Default()
	rapid.Check(t, func(t *rapid.T) {
		g := genGraph(t, reg)
		if g.Len() == 0 {
			return
		}
		nodes := g.Nodes()
		parent := rapid.SampledFrom(nodes).Draw(t, "parent")
		child := rapid.SampledFrom(nodes).Draw(t, "child")

		before := g.Snapshot()
		if err := g.Connect(parent.ID, child.ID); err != nil {
			assert.Equal(t, before, g.Snapshot())
		}
	})
}

func TestPropertySelfLinkAlwaysRejected(t *testing.T) {
	reg := roomtype.Default()
	rapid.Check(t, func(t *rapid.T) {
		g := genGraph(t, reg)
		for _, n := range g.Nodes() {
			if g.TryConnect(n.ID, n.ID) {
				t.Fatalf("self link accepted for %q", n.ID)
			}
		}
	})
}

func TestPropertyRepeatedConnectRejected(t *testing.T) {
	reg := roomtype.Default()
	rapid.Check(t, func(t *rapid.T) {
		g := genGraph(t, reg)
		if g.Len() == 0 {
			return
		}
		nodes := g.Nodes()
		parent := rapid.SampledFrom(nodes).Draw(t, "parent")
		child := rapid.SampledFrom(nodes).Draw(t, "child")
		if g.TryConnect(parent.ID, child.ID) && g.TryConnect(parent.ID, child.ID) {
			t.Fatalf("edge %q -> %q accepted twice", parent.ID, child.ID)
		}
	})
}
