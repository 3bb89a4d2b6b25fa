// Package sqlite implements the catalog store on an embedded SQLite database.
//
// Write transactions start with BEGIN IMMEDIATE and the connection waits on a
// busy timeout, so concurrent imports serialise instead of failing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JonMunkholm/partflow/internal/core"
)

// BusyTimeout is how long a connection waits for a competing writer.
const BusyTimeout = 10 * time.Second

// Store implements core.Store.
type Store struct {
	db *sql.DB
}

var _ core.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
// The path ":memory:" opens a private in-memory database on a single connection.
func Open(ctx context.Context, path string) (*Store, error) {
	memory := path == ":memory:"
	if !memory {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", BusyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// DB exposes the underlying handle for tests and maintenance commands.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

// WithinTx runs fn in an immediate transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx core.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) PartExists(ctx context.Context, code string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM parts WHERE designation_code = ?`, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *sqliteTx) InsertPart(ctx context.Context, p *core.Part) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO parts (
    designation_code, product_designation, name, quantity_total, quantity_completed,
    size, material, drawing_filename, route_template_id, created_by, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.DesignationCode, p.ProductDesignation, p.Name, p.QuantityTotal, p.QuantityCompleted,
		nullString(p.Size), nullString(p.Material), nullString(p.DrawingFilename),
		p.RouteTemplateID, p.CreatedBy, formatTime(p.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("part %q: %w", p.DesignationCode, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert part %q: %w", p.DesignationCode, err)
	}
	return nil
}

func (t *sqliteTx) EnsureStage(ctx context.Context, name string) (core.Stage, error) {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO stages (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return core.Stage{}, err
	}

	st := core.Stage{}
	err := t.tx.QueryRowContext(ctx, `SELECT id, name FROM stages WHERE name = ?`, name).Scan(&st.ID, &st.Name)
	return st, err
}

func (t *sqliteTx) FindRouteTemplate(ctx context.Context, name string) (*core.RouteTemplate, error) {
	tmpl := &core.RouteTemplate{}
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, name FROM route_templates WHERE name = ?`, name).Scan(&tmpl.ID, &tmpl.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (t *sqliteTx) CreateRouteTemplate(ctx context.Context, name string, stages []core.Stage) (*core.RouteTemplate, bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO route_templates (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		name, formatTime(time.Now()))
	if err != nil {
		return nil, false, err
	}

	if n, err := res.RowsAffected(); err != nil {
		return nil, false, err
	} else if n == 0 {
		existing, err := t.FindRouteTemplate(ctx, name)
		return existing, false, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}

	for pos, st := range stages {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO route_template_stages (route_template_id, position, stage_id) VALUES (?, ?, ?)`,
			id, pos, st.ID); err != nil {
			return nil, false, fmt.Errorf("link stage %q at %d: %w", st.Name, pos, err)
		}
	}

	return &core.RouteTemplate{ID: id, Name: name, Stages: append([]core.Stage(nil), stages...)}, true, nil
}

func (t *sqliteTx) RouteTemplateExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM route_templates WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// PartProgress needs no row lock: the transaction already holds SQLite's write lock.
func (t *sqliteTx) PartProgress(ctx context.Context, code string) (core.PartProgress, error) {
	var (
		prog    core.PartProgress
		routeID sql.NullInt64
	)
	err := t.tx.QueryRowContext(ctx, `SELECT p.route_template_id,
    (SELECT COUNT(*) FROM route_template_stages rts WHERE rts.route_template_id = p.route_template_id),
    (SELECT COUNT(*) FROM part_stage_completions c WHERE c.designation_code = p.designation_code)
FROM parts p
WHERE p.designation_code = ?`, code).Scan(&routeID, &prog.RouteLength, &prog.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PartProgress{}, core.ErrNotFound
	}
	if err != nil {
		return core.PartProgress{}, err
	}

	if routeID.Valid {
		id := routeID.Int64
		prog.RouteTemplateID = &id
	}
	return prog, nil
}

func (t *sqliteTx) InsertStageCompletion(ctx context.Context, code string, c core.StageCompletion) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO part_stage_completions (
    designation_code, position, completed_by, completed_at
) VALUES (?, ?, ?, ?)`, code, c.Position, c.CompletedBy, formatTime(c.CompletedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("stage %d of %q: %w", c.Position, code, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("record stage %d of %q: %w", c.Position, code, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
