// Package storagetest holds behaviour tests shared by every
// storage.GraphRepository implementation.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/graph"
	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
	"github.com/cory-johannsen/roomgraph/internal/storage"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) storage.GraphRepository

// SampleGraph builds a small connected graph: entrance -> corridor -> room,
// plus an unconnected placeholder node.
func SampleGraph(t *testing.T, id, name string) *graph.Graph {
	t.Helper()
	reg := roomtype.Default()
	g := graph.New(id, name, reg)
	lookup := func(typeID string) *roomtype.Descriptor {
		d, ok := reg.Lookup(typeID)
		require.True(t, ok, "room type %q", typeID)
		return d
	}
	e := g.CreateNode(graph.Rect{X: 0, Y: 0, W: 160, H: 75}, nil)
	c := g.CreateNode(graph.Rect{X: 200, Y: 0, W: 160, H: 75}, lookup("corridor"))
	r := g.CreateNode(graph.Rect{X: 400, Y: 0, W: 160, H: 75}, lookup("small_room"))
	g.CreateNode(graph.Rect{X: 0, Y: 200, W: 160, H: 75}, nil)
	require.NoError(t, g.Connect(e.ID, c.ID))
	require.NoError(t, g.Connect(c.ID, r.ID))
	return g
}

// Run exercises newRepo against the GraphRepository contract.
func Run(t *testing.T, newRepo Factory) {
	t.Run("LoadMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.LoadGraph(context.Background(), "missing")
		assert.ErrorIs(t, err, storage.ErrGraphNotFound)
	})

	t.Run("SaveLoadRoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		snap := SampleGraph(t, "g1", "First").Snapshot()

		require.NoError(t, repo.SaveGraph(ctx, snap))
		got, err := repo.LoadGraph(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, snap, got)

		g, err := graph.FromSnapshot(got, roomtype.Default())
		require.NoError(t, err)
		assert.NoError(t, g.CheckInvariants())
	})

	t.Run("SaveEmptyGraph", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		snap := graph.New("empty", "Empty", roomtype.Default()).Snapshot()

		require.NoError(t, repo.SaveGraph(ctx, snap))
		got, err := repo.LoadGraph(ctx, "empty")
		require.NoError(t, err)
		assert.Equal(t, "Empty", got.Name)
		assert.Empty(t, got.Nodes)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		g := SampleGraph(t, "g1", "First")
		require.NoError(t, repo.SaveGraph(ctx, g.Snapshot()))

		nodes := g.Nodes()
		require.True(t, g.DeleteNode(nodes[2].ID))
		g.Name = "Renamed"
		require.NoError(t, repo.SaveGraph(ctx, g.Snapshot()))

		got, err := repo.LoadGraph(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, g.Snapshot(), got)
	})

	t.Run("ListGraphsOrderedByName", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.SaveGraph(ctx, SampleGraph(t, "b", "Beta").Snapshot()))
		require.NoError(t, repo.SaveGraph(ctx, graph.New("a", "Alpha", roomtype.Default()).Snapshot()))
		require.NoError(t, repo.SaveGraph(ctx, graph.New("c", "Alpha", roomtype.Default()).Snapshot()))

		list, err := repo.ListGraphs(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"a", "c", "b"}, []string{list[0].ID, list[1].ID, list[2].ID})
		assert.Equal(t, 0, list[0].NodeCount)
		assert.Equal(t, 4, list[2].NodeCount)
		assert.False(t, list[2].UpdatedAt.IsZero())
	})

	t.Run("ListGraphsEmpty", func(t *testing.T) {
		repo := newRepo(t)
		list, err := repo.ListGraphs(context.Background())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("DeleteGraph", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.SaveGraph(ctx, SampleGraph(t, "g1", "First").Snapshot()))
		require.NoError(t, repo.DeleteGraph(ctx, "g1"))

		_, err := repo.LoadGraph(ctx, "g1")
		assert.ErrorIs(t, err, storage.ErrGraphNotFound)
		assert.NoError(t, repo.DeleteGraph(ctx, "g1"), "deleting a missing graph is not an error")
	})

	t.Run("PutNodeRequiresGraph", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.PutNode(context.Background(), "missing", graph.NodeRecord{ID: "n", TypeID: "none"})
		assert.ErrorIs(t, err, storage.ErrGraphNotFound)
	})

	t.Run("PutNodeAppendsAndUpdates", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		g := SampleGraph(t, "g1", "First")
		require.NoError(t, repo.SaveGraph(ctx, g.Snapshot()))

		added := graph.NodeRecord{ID: "extra", TypeID: "large_room", Rect: graph.Rect{X: 5, Y: 6, W: 7, H: 8}}
		require.NoError(t, repo.PutNode(ctx, "g1", added))

		first := g.Nodes()[1].Record()
		first.Rect = first.Rect.Translate(graph.Point{X: 1, Y: 1})
		require.NoError(t, repo.PutNode(ctx, "g1", first))

		got, err := repo.LoadGraph(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, got.Nodes, 5)
		assert.Equal(t, first, got.Nodes[1], "updated node keeps its position")
		assert.Equal(t, "extra", got.Nodes[4].ID, "new node is appended")
		assert.Equal(t, "large_room", got.Nodes[4].TypeID)
		assert.Equal(t, []string{}, got.Nodes[4].ParentIDs)
	})

	t.Run("DeleteNodeSeversNeighbours", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		g := SampleGraph(t, "g1", "First")
		require.NoError(t, repo.SaveGraph(ctx, g.Snapshot()))

		corridor := g.Nodes()[1]
		require.NoError(t, repo.DeleteNode(ctx, "g1", corridor.ID))
		require.True(t, g.DeleteNode(corridor.ID))

		got, err := repo.LoadGraph(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, g.Snapshot(), got)
	})

	t.Run("MirrorTracksEdits", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		g := SampleGraph(t, "g1", "First")
		m, err := storage.Attach(ctx, g, repo, zap.NewNop())
		require.NoError(t, err)

		added := g.CreateNode(graph.Rect{X: 9, Y: 9, W: 160, H: 75}, nil)
		require.True(t, g.DeleteNode(g.Nodes()[2].ID))
		require.NoError(t, m.Err())

		got, err := repo.LoadGraph(ctx, "g1")
		require.NoError(t, err)
		ids := make([]string, 0, len(got.Nodes))
		for _, rec := range got.Nodes {
			ids = append(ids, rec.ID)
		}
		assert.Contains(t, ids, added.ID)
		assert.Len(t, ids, g.Len())
	})
}
