package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/graph"
	"github.com/cory-johannsen/roomgraph/internal/storage"
)

// GraphRepository implements storage.GraphRepository on PostgreSQL.
type GraphRepository struct {
	db *pgxpool.Pool
}

// NewGraphRepository creates a GraphRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the room graph schema applied.
func NewGraphRepository(db *pgxpool.Pool) *GraphRepository {
	return &GraphRepository{db: db}
}

// SaveGraph replaces the stored graph with snap in one transaction.
//
// Postcondition: The stored graph equals snap, or nothing changed and an error is returned.
func (r *GraphRepository) SaveGraph(ctx context.Context, snap graph.Snapshot) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO room_graphs (id, name, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()`,
			snap.ID, snap.Name,
		); err != nil {
			return fmt.Errorf("upserting graph %q: %w", snap.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM room_nodes WHERE graph_id = $1`, snap.ID); err != nil {
			return fmt.Errorf("clearing nodes: %w", err)
		}

		batch := &pgx.Batch{}
		for i, rec := range snap.Nodes {
			batch.Queue(`
				INSERT INTO room_nodes (graph_id, id, type_id, x, y, w, h, ordinal)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				snap.ID, rec.ID, rec.TypeID, rec.Rect.X, rec.Rect.Y, rec.Rect.W, rec.Rect.H, i,
			)
		}
		for _, rec := range snap.Nodes {
			queueLinks(batch, snap.ID, rec)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting nodes: %w", err)
		}
		return nil
	})
}

func queueLinks(batch *pgx.Batch, graphID string, rec graph.NodeRecord) {
	for i, other := range rec.ParentIDs {
		batch.Queue(`
			INSERT INTO room_node_links (graph_id, node_id, kind, other_id, ordinal)
			VALUES ($1, $2, 'parent', $3, $4)`, graphID, rec.ID, other, i)
	}
	for i, other := range rec.ChildIDs {
		batch.Queue(`
			INSERT INTO room_node_links (graph_id, node_id, kind, other_id, ordinal)
			VALUES ($1, $2, 'child', $3, $4)`, graphID, rec.ID, other, i)
	}
}

// LoadGraph returns the stored snapshot with nodes in their saved order.
//
// Postcondition: Returns the snapshot or storage.ErrGraphNotFound.
func (r *GraphRepository) LoadGraph(ctx context.Context, id string) (graph.Snapshot, error) {
	snap := graph.Snapshot{ID: id, Nodes: []graph.NodeRecord{}}
	err := r.db.QueryRow(ctx, `SELECT name FROM room_graphs WHERE id = $1`, id).Scan(&snap.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.Snapshot{}, storage.ErrGraphNotFound
		}
		return graph.Snapshot{}, fmt.Errorf("querying graph %q: %w", id, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, type_id, x, y, w, h FROM room_nodes
		WHERE graph_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("querying nodes: %w", err)
	}
	byID := make(map[string]int)
	for rows.Next() {
		rec := graph.NodeRecord{ParentIDs: []string{}, ChildIDs: []string{}}
		if err := rows.Scan(&rec.ID, &rec.TypeID, &rec.Rect.X, &rec.Rect.Y, &rec.Rect.W, &rec.Rect.H); err != nil {
			rows.Close()
			return graph.Snapshot{}, fmt.Errorf("scanning node: %w", err)
		}
		byID[rec.ID] = len(snap.Nodes)
		snap.Nodes = append(snap.Nodes, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return graph.Snapshot{}, fmt.Errorf("iterating nodes: %w", err)
	}

	links, err := r.db.Query(ctx, `
		SELECT node_id, kind, other_id FROM room_node_links
		WHERE graph_id = $1 ORDER BY node_id, kind, ordinal`, id)
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("querying links: %w", err)
	}
	defer links.Close()
	for links.Next() {
		var nodeID, kind, other string
		if err := links.Scan(&nodeID, &kind, &other); err != nil {
			return graph.Snapshot{}, fmt.Errorf("scanning link: %w", err)
		}
		i, ok := byID[nodeID]
		if !ok {
			continue
		}
		if kind == "parent" {
			snap.Nodes[i].ParentIDs = append(snap.Nodes[i].ParentIDs, other)
		} else {
			snap.Nodes[i].ChildIDs = append(snap.Nodes[i].ChildIDs, other)
		}
	}
	if err := links.Err(); err != nil {
		return graph.Snapshot{}, fmt.Errorf("iterating links: %w", err)
	}
	return snap, nil
}

// ListGraphs returns summaries of every stored graph ordered by name then id.
func (r *GraphRepository) ListGraphs(ctx context.Context) ([]storage.GraphSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT g.id, g.name, g.updated_at, COUNT(n.id)
		FROM room_graphs g LEFT JOIN room_nodes n ON n.graph_id = g.id
		GROUP BY g.id, g.name, g.updated_at
		ORDER BY g.name, g.id`)
	if err != nil {
		return nil, fmt.Errorf("listing graphs: %w", err)
	}
	defer rows.Close()

	out := make([]storage.GraphSummary, 0)
	for rows.Next() {
		var s storage.GraphSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.UpdatedAt, &s.NodeCount); err != nil {
			return nil, fmt.Errorf("scanning graph summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteGraph removes a graph; nodes and links go with it by cascade.
func (r *GraphRepository) DeleteGraph(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM room_graphs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting graph %q: %w", id, err)
	}
	return nil
}

// PutNode inserts or replaces one node, keeping its position in the node order.
//
// Precondition: the graph must already be stored.
// Postcondition: Returns storage.ErrGraphNotFound if it is not.
func (r *GraphRepository) PutNode(ctx context.Context, graphID string, rec graph.NodeRecord) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := touchGraph(ctx, tx, graphID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO room_nodes (graph_id, id, type_id, x, y, w, h, ordinal)
			VALUES ($1, $2, $3, $4, $5, $6, $7,
				(SELECT COALESCE(MAX(ordinal), -1) + 1 FROM room_nodes WHERE graph_id = $1))
			ON CONFLICT (graph_id, id) DO UPDATE SET
				type_id = EXCLUDED.type_id, x = EXCLUDED.x, y = EXCLUDED.y, w = EXCLUDED.w, h = EXCLUDED.h`,
			graphID, rec.ID, rec.TypeID, rec.Rect.X, rec.Rect.Y, rec.Rect.W, rec.Rect.H,
		); err != nil {
			return fmt.Errorf("upserting node %q: %w", rec.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM room_node_links WHERE graph_id = $1 AND node_id = $2`, graphID, rec.ID,
		); err != nil {
			return fmt.Errorf("clearing links of %q: %w", rec.ID, err)
		}
		batch := &pgx.Batch{}
		queueLinks(batch, graphID, rec)
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting links of %q: %w", rec.ID, err)
		}
		return nil
	})
}

// DeleteNode removes a node, its own links, and every neighbour link naming it.
func (r *GraphRepository) DeleteNode(ctx context.Context, graphID, nodeID string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := touchGraph(ctx, tx, graphID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM room_node_links WHERE graph_id = $1 AND other_id = $2`, graphID, nodeID,
		); err != nil {
			return fmt.Errorf("deleting links to %q: %w", nodeID, err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM room_nodes WHERE graph_id = $1 AND id = $2`, graphID, nodeID,
		); err != nil {
			return fmt.Errorf("deleting node %q: %w", nodeID, err)
		}
		return nil
	})
}

func touchGraph(ctx context.Context, tx pgx.Tx, graphID string) error {
	tag, err := tx.Exec(ctx, `UPDATE room_graphs SET updated_at = NOW() WHERE id = $1`, graphID)
	if err != nil {
		return fmt.Errorf("touching graph %q: %w", graphID, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrGraphNotFound
	}
	return nil
}
