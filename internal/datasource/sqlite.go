package datasource

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/model"
)

// SQLiteReader provides read access to a tree stored in a nodes table:
//
//	CREATE TABLE nodes (
//	    id        TEXT PRIMARY KEY,
//	    label     TEXT,
//	    parent_id TEXT,
//	    position  INTEGER,
//	    disabled  INTEGER,
//	    selected  INTEGER,
//	    expanded  INTEGER
//	);
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadNodes reads every row of the nodes table as a flat spec, ordered by
// position and then insertion order.
func (r *SQLiteReader) LoadNodes() ([]model.NodeSpec, error) {
	rows, err := r.db.Query(`
		SELECT id, label, parent_id, position, disabled, selected, expanded
		FROM nodes
		ORDER BY COALESCE(position, 0), rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var specs []model.NodeSpec
	for rows.Next() {
		var (
			spec                         model.NodeSpec
			label, parent                sql.NullString
			position                     sql.NullInt64
			disabled, selected, expanded sql.NullBool
		)
		if err := rows.Scan(&spec.ID, &label, &parent, &position, &disabled, &selected, &expanded); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		spec.Label = label.String
		spec.Parent = parent.String
		spec.Position = int(position.Int64)
		spec.Disabled = disabled.Bool
		spec.Selected = selected.Bool
		spec.Expanded = expanded.Bool
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading nodes: %w", err)
	}
	debug.Log("datasource: %d nodes from %s", len(specs), r.path)
	return specs, nil
}

// CountNodes returns the number of rows in the nodes table
func (r *SQLiteReader) CountNodes() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// WriteNodes creates (or replaces) the nodes table at path and stores the
// flat specs in it.
func WriteNodes(path string, specs []model.NodeSpec) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DROP TABLE IF EXISTS nodes`,
		`CREATE TABLE nodes (
			id        TEXT PRIMARY KEY,
			label     TEXT,
			parent_id TEXT,
			position  INTEGER,
			disabled  INTEGER,
			selected  INTEGER,
			expanded  INTEGER
		)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return fmt.Errorf("creating nodes table: %w", err)
		}
	}
	insert, err := tx.Prepare(`INSERT INTO nodes (id, label, parent_id, position, disabled, selected, expanded) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer insert.Close()
	for _, s := range specs {
		var parent any
		if s.Parent != "" {
			parent = s.Parent
		}
		if _, err := insert.Exec(s.ID, s.Label, parent, s.Position, s.Disabled, s.Selected, s.Expanded); err != nil {
			return fmt.Errorf("inserting node %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}
