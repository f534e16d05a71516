// Package sqlite provides a local, single-file room graph store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/graph"
	"github.com/cory-johannsen/roomgraph/internal/storage"
)

const (
	kindParent = "parent"
	kindChild  = "child"
)

// Repository implements storage.GraphRepository on SQLite.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database at path and applies the schema.
//
// Postcondition: Returns a ready Repository or a non-nil error.
func Open(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite serialises writers; one connection keeps pragmas and transactions simple.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return repo, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS room_graphs (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS room_nodes (
		graph_id TEXT NOT NULL REFERENCES room_graphs(id) ON DELETE CASCADE,
		id       TEXT NOT NULL,
		type_id  TEXT NOT NULL,
		x        REAL NOT NULL,
		y        REAL NOT NULL,
		w        REAL NOT NULL,
		h        REAL NOT NULL,
		ordinal  INTEGER NOT NULL,
		PRIMARY KEY (graph_id, id)
	);

	CREATE TABLE IF NOT EXISTS room_node_links (
		graph_id TEXT NOT NULL,
		node_id  TEXT NOT NULL,
		kind     TEXT NOT NULL CHECK (kind IN ('parent', 'child')),
		other_id TEXT NOT NULL,
		ordinal  INTEGER NOT NULL,
		PRIMARY KEY (graph_id, node_id, kind, other_id),
		FOREIGN KEY (graph_id, node_id) REFERENCES room_nodes(graph_id, id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_room_node_links_other ON room_node_links(graph_id, other_id);
	`
	_, err := r.db.Exec(schema)
	return err
}

// SaveGraph replaces the stored graph with snap.
//
// Postcondition: The stored graph equals snap, or nothing changed and an error is returned.
func (r *Repository) SaveGraph(ctx context.Context, snap graph.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO room_graphs (id, name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		snap.ID, snap.Name, r.now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("upserting graph %q: %w", snap.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM room_node_links WHERE graph_id = ?`, snap.ID); err != nil {
		return fmt.Errorf("clearing links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM room_nodes WHERE graph_id = ?`, snap.ID); err != nil {
		return fmt.Errorf("clearing nodes: %w", err)
	}

	for i, rec := range snap.Nodes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO room_nodes (graph_id, id, type_id, x, y, w, h, ordinal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, rec.ID, rec.TypeID, rec.Rect.X, rec.Rect.Y, rec.Rect.W, rec.Rect.H, i,
		); err != nil {
			return fmt.Errorf("inserting node %q: %w", rec.ID, err)
		}
		if err := insertLinks(ctx, tx, snap.ID, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertLinks(ctx context.Context, tx *sql.Tx, graphID string, rec graph.NodeRecord) error {
	for kind, ids := range map[string][]string{kindParent: rec.ParentIDs, kindChild: rec.ChildIDs} {
		for i, other := range ids {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO room_node_links (graph_id, node_id, kind, other_id, ordinal)
				VALUES (?, ?, ?, ?, ?)`,
				graphID, rec.ID, kind, other, i,
			); err != nil {
				return fmt.Errorf("inserting %s link %q -> %q: %w", kind, rec.ID, other, err)
			}
		}
	}
	return nil
}

// LoadGraph returns the stored snapshot with nodes in their saved order.
//
// Postcondition: Returns the snapshot or storage.ErrGraphNotFound.
func (r *Repository) LoadGraph(ctx context.Context, id string) (graph.Snapshot, error) {
	snap := graph.Snapshot{ID: id}
	err := r.db.QueryRowContext(ctx, `SELECT name FROM room_graphs WHERE id = ?`, id).Scan(&snap.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Snapshot{}, storage.ErrGraphNotFound
	}
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("querying graph %q: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type_id, x, y, w, h FROM room_nodes
		WHERE graph_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]int)
	for rows.Next() {
		rec := graph.NodeRecord{ParentIDs: []string{}, ChildIDs: []string{}}
		if err := rows.Scan(&rec.ID, &rec.TypeID, &rec.Rect.X, &rec.Rect.Y, &rec.Rect.W, &rec.Rect.H); err != nil {
			return graph.Snapshot{}, fmt.Errorf("scanning node: %w", err)
		}
		byID[rec.ID] = len(snap.Nodes)
		snap.Nodes = append(snap.Nodes, rec)
	}
	if err := rows.Err(); err != nil {
		return graph.Snapshot{}, fmt.Errorf("iterating nodes: %w", err)
	}

	links, err := r.db.QueryContext(ctx, `
		SELECT node_id, kind, other_id FROM room_node_links
		WHERE graph_id = ? ORDER BY node_id, kind, ordinal`, id)
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
		if kind == kindParent {
			snap.Nodes[i].ParentIDs = append(snap.Nodes[i].ParentIDs, other)
		} else {
			snap.Nodes[i].ChildIDs = append(snap.Nodes[i].ChildIDs, other)
		}
	}
	if err := links.Err(); err != nil {
		return graph.Snapshot{}, fmt.Errorf("iterating links: %w", err)
	}
	if snap.Nodes == nil {
		snap.Nodes = []graph.NodeRecord{}
	}
	return snap, nil
}

// ListGraphs returns summaries of every stored graph ordered by name then id.
func (r *Repository) ListGraphs(ctx context.Context) ([]storage.GraphSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
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
		var updated int64
		if err := rows.Scan(&s.ID, &s.Name, &updated, &s.NodeCount); err != nil {
			return nil, fmt.Errorf("scanning graph summary: %w", err)
		}
		s.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteGraph removes a graph with its nodes and links.
func (r *Repository) DeleteGraph(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM room_node_links WHERE graph_id = ?`,
		`DELETE FROM room_nodes WHERE graph_id = ?`,
		`DELETE FROM room_graphs WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("deleting graph %q: %w", id, err)
		}
	}
	return tx.Commit()
}

// PutNode inserts or replaces one node, keeping its position in the node order.
//
// Precondition: the graph must already be stored.
// Postcondition: Returns storage.ErrGraphNotFound if it is not.
func (r *Repository) PutNode(ctx context.Context, graphID string, rec graph.NodeRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchGraph(ctx, tx, graphID, r.now()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO room_nodes (graph_id, id, type_id, x, y, w, h, ordinal)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(ordinal), -1) + 1 FROM room_nodes WHERE graph_id = ?))
		ON CONFLICT(graph_id, id) DO UPDATE SET
			type_id = excluded.type_id, x = excluded.x, y = excluded.y, w = excluded.w, h = excluded.h`,
		graphID, rec.ID, rec.TypeID, rec.Rect.X, rec.Rect.Y, rec.Rect.W, rec.Rect.H, graphID,
	); err != nil {
		return fmt.Errorf("upserting node %q: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM room_node_links WHERE graph_id = ? AND node_id = ?`, graphID, rec.ID,
	); err != nil {
		return fmt.Errorf("clearing links of %q: %w", rec.ID, err)
	}
	if err := insertLinks(ctx, tx, graphID, rec); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNode removes a node, its own links, and every neighbour link naming it.
func (r *Repository) DeleteNode(ctx context.Context, graphID, nodeID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchGraph(ctx, tx, graphID, r.now()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM room_node_links WHERE graph_id = ? AND (node_id = ? OR other_id = ?)`,
		graphID, nodeID, nodeID,
	); err != nil {
		return fmt.Errorf("deleting links of %q: %w", nodeID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM room_nodes WHERE graph_id = ? AND id = ?`, graphID, nodeID,
	); err != nil {
		return fmt.Errorf("deleting node %q: %w", nodeID, err)
	}
	return tx.Commit()
}

func touchGraph(ctx context.Context, tx *sql.Tx, graphID string, now time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE room_graphs SET updated_at = ? WHERE id = ?`, now.UnixMilli(), graphID)
	if err != nil {
		return fmt.Errorf("touching graph %q: %w", graphID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touching graph %q: %w", graphID, err)
	}
	if n == 0 {
		return storage.ErrGraphNotFound
	}
	return nil
}
