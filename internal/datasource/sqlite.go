package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/loader"
)

// SQLiteSource reads children from a nodes table:
//
//	nodes(id TEXT PRIMARY KEY, parent_id TEXT, label TEXT, leaf INTEGER,
//	      position INTEGER, detail TEXT)
//
// Node ids are unique across the table, so the last key-path segment
// identifies the parent. Top-level rows have a NULL or empty parent_id.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// NewSQLiteSource opens the database at path read-only.
func NewSQLiteSource(path string) (*SQLiteSource, error) {
	path = expandHome(path)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening sqlite source: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("sqlite: %s failed: %v", pragma, err)
		}
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'nodes'`).Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot read schema: %w", err)
	}
	if n == 0 {
		db.Close()
		return nil, fmt.Errorf("%s has no nodes table", path)
	}

	return &SQLiteSource{db: db, path: path}, nil
}

// Name returns the database path.
func (s *SQLiteSource) Name() string { return s.path }

// Children returns one page of rows whose parent_id is the last segment of
// parent, ordered by position then id.
func (s *SQLiteSource) Children(ctx context.Context, parent forest.KeyPath, offset, limit int) (loader.Page, error) {
	if limit <= 0 {
		limit = loader.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var (
		rows *sql.Rows
		err  error
	)
	const cols = `SELECT id, label, leaf, COALESCE(detail, '') FROM nodes`
	if parent.IsRoot() {
		rows, err = s.db.QueryContext(ctx,
			cols+` WHERE parent_id IS NULL OR parent_id = '' ORDER BY position, id LIMIT ? OFFSET ?`,
			limit+1, offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			cols+` WHERE parent_id = ? ORDER BY position, id LIMIT ? OFFSET ?`,
			parent[len(parent)-1], limit+1, offset)
	}
	if err != nil {
		return loader.Page{}, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var page loader.Page
	for rows.Next() {
		var (
			e     loader.Entry
			label sql.NullString
			leaf  sql.NullInt64
		)
		if err := rows.Scan(&e.Key, &label, &leaf, &e.Detail); err != nil {
			return loader.Page{}, fmt.Errorf("scanning node: %w", err)
		}
		e.Label = e.Key
		if label.Valid && label.String != "" {
			e.Label = label.String
		}
		e.Leaf = leaf.Valid && leaf.Int64 != 0
		if len(page.Entries) == limit {
			page.HasMore = true
			break
		}
		page.Entries = append(page.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return loader.Page{}, fmt.Errorf("reading nodes: %w", err)
	}
	return page, nil
}

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateSchema creates the nodes table and its parent index.
func CreateSchema(db *sql.DB) error {
	nodesSQL := `
		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			label TEXT,
			leaf INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0,
			detail TEXT
		)
	`
	if _, err := db.Exec(nodesSQL); err != nil {
		return fmt.Errorf("create nodes table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id, position, id)`); err != nil {
		return fmt.Errorf("create nodes index: %w", err)
	}
	return nil
}

// Seed writes a complete tree with fanout children per node and depth
// levels into a new database at path. Ids are dotted positions ("1.3.2").
// It returns the number of rows written.
func Seed(path string, fanout, depth int) (int, error) {
	if fanout < 1 || depth < 1 {
		return 0, fmt.Errorf("seed needs fanout and depth of at least 1, got %d and %d", fanout, depth)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if err := CreateSchema(db); err != nil {
		return 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO nodes (id, parent_id, label, leaf, position, detail) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare seed: %w", err)
	}
	defer stmt.Close()

	count := 0
	var insert func(parent string, level int) error
	insert = func(parent string, level int) error {
		for i := 1; i <= fanout; i++ {
			id := strconv.Itoa(i)
			if parent != "" {
				id = parent + "." + id
			}
			leaf := level == depth
			var parentID any
			if parent != "" {
				parentID = parent
			}
			detail := fmt.Sprintf("level %d", level)
			if _, err := stmt.Exec(id, parentID, "Node "+id, boolToInt(leaf), i, detail); err != nil {
				return fmt.Errorf("insert %s: %w", id, err)
			}
			count++
			if !leaf {
				if err := insert(id, level+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := insert("", 1); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
