// Package storage defines the persistence contract for room graphs and the
// mirror that keeps a repository in step with live graph edits.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/graph"
)

// ErrGraphNotFound is returned when a graph lookup yields no results.
var ErrGraphNotFound = errors.New("room graph not found")

// GraphSummary describes a stored graph without its nodes.
type GraphSummary struct {
	ID        string
	Name      string
	NodeCount int
	UpdatedAt time.Time
}

// GraphRepository persists room graph snapshots.
type GraphRepository interface {
	// SaveGraph replaces the stored graph with snap.
	SaveGraph(ctx context.Context, snap graph.Snapshot) error
	// LoadGraph returns the stored snapshot or ErrGraphNotFound.
	LoadGraph(ctx context.Context, id string) (graph.Snapshot, error)
	// ListGraphs returns summaries ordered by name then id.
	ListGraphs(ctx context.Context) ([]GraphSummary, error)
	// DeleteGraph removes a graph and all its nodes. Missing graphs are not an error.
	DeleteGraph(ctx context.Context, id string) error
	// PutNode inserts or replaces one node of an existing graph.
	PutNode(ctx context.Context, graphID string, rec graph.NodeRecord) error
	// DeleteNode removes one node and every link that names it.
	DeleteNode(ctx context.Context, graphID, nodeID string) error
}

// Mirror implements graph.Hooks by writing node creation and destruction
// through to a repository as they happen.
//
// Hooks cannot return errors, so write failures are logged and the first one
// is retained for Err.
type Mirror struct {
	ctx    context.Context
	repo   GraphRepository
	logger *zap.Logger

	mu  sync.Mutex
	err error
}

// NewMirror creates a Mirror that writes through repo using ctx.
//
// Precondition: ctx, repo, and logger must be non-nil.
func NewMirror(ctx context.Context, repo GraphRepository, logger *zap.Logger) *Mirror {
	return &Mirror{ctx: ctx, repo: repo, logger: logger}
}

// NodeCreated stores the new node.
func (m *Mirror) NodeCreated(g *graph.Graph, n *graph.RoomNode) {
	if err := m.repo.PutNode(m.ctx, g.ID, n.Record()); err != nil {
		m.fail(err, "mirroring created node", g.ID, n.ID)
	}
}

// NodeDestroyed removes the node from storage.
func (m *Mirror) NodeDestroyed(g *graph.Graph, id string) {
	if err := m.repo.DeleteNode(m.ctx, g.ID, id); err != nil {
		m.fail(err, "mirroring destroyed node", g.ID, id)
	}
}

// Err returns the first write failure, if any.
func (m *Mirror) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Mirror) fail(err error, msg, graphID, nodeID string) {
	m.logger.Error(msg, zap.String("graph_id", graphID), zap.String("node_id", nodeID), zap.Error(err))
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.err = err
	}
}

// Attach saves g's current state through repo and registers a Mirror on g so
// later node creation and destruction are written through.
//
// Postcondition: Returns the installed Mirror, or an error if the initial save failed.
func Attach(ctx context.Context, g *graph.Graph, repo GraphRepository, logger *zap.Logger) (*Mirror, error) {
	if err := repo.SaveGraph(ctx, g.Snapshot()); err != nil {
		return nil, err
	}
	m := NewMirror(ctx, repo, logger)
	g.SetHooks(m)
	return m, nil
}
