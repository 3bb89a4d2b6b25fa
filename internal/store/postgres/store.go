// Package postgres implements the catalog store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/partflow/internal/config"
	"github.com/JonMunkholm/partflow/internal/core"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DBTX is the subset of pgx shared by the pool and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements core.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Open connects a pool sized by cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// WithinTx runs fn in a read-committed transaction. Unique constraints
// settle races between concurrent imports.
func (s *Store) WithinTx(ctx context.Context, fn func(tx core.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) PartExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM parts WHERE designation_code = $1)`, code).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertPart(ctx context.Context, p *core.Part) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO parts (
    designation_code, product_designation, name, quantity_total, quantity_completed,
    size, material, drawing_filename, route_template_id, created_by, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.DesignationCode, p.ProductDesignation, p.Name, p.QuantityTotal, p.QuantityCompleted,
		nullString(p.Size), nullString(p.Material), nullString(p.DrawingFilename),
		p.RouteTemplateID, p.CreatedBy, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("part %q: %w", p.DesignationCode, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert part %q: %w", p.DesignationCode, err)
	}
	return nil
}

// EnsureStage inserts name if missing. The fallback SELECT runs as its own
// statement so it sees a row committed by a concurrent writer.
func (t *pgTx) EnsureStage(ctx context.Context, name string) (core.Stage, error) {
	st := core.Stage{Name: name}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO stages (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id`, name).Scan(&st.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = t.tx.QueryRow(ctx, `SELECT id FROM stages WHERE name = $1`, name).Scan(&st.ID)
	}
	if err != nil {
		return core.Stage{}, fmt.Errorf("ensure stage %q: %w", name, err)
	}
	return st, nil
}

func (t *pgTx) FindRouteTemplate(ctx context.Context, name string) (*core.RouteTemplate, error) {
	tmpl := &core.RouteTemplate{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, name FROM route_templates WHERE name = $1`, name).Scan(&tmpl.ID, &tmpl.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (t *pgTx) CreateRouteTemplate(ctx context.Context, name string, stages []core.Stage) (*core.RouteTemplate, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO route_templates (name, created_at) VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING
RETURNING id`, name, time.Now()).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := t.FindRouteTemplate(ctx, name)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}

	batch := &pgx.Batch{}
	for pos, st := range stages {
		batch.Queue(`INSERT INTO route_template_stages (route_template_id, position, stage_id) VALUES ($1, $2, $3)`,
			id, pos, st.ID)
	}
	if batch.Len() > 0 {
		if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, false, fmt.Errorf("link stages of %q: %w", name, err)
		}
	}

	return &core.RouteTemplate{ID: id, Name: name, Stages: append([]core.Stage(nil), stages...)}, true, nil
}

func (t *pgTx) RouteTemplateExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM route_templates WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// PartProgress locks the part row so concurrent completions of the same part
// serialise and each sees the other's step.
func (t *pgTx) PartProgress(ctx context.Context, code string) (core.PartProgress, error) {
	var prog core.PartProgress
	err := t.tx.QueryRow(ctx,
		`SELECT route_template_id FROM parts WHERE designation_code = $1 FOR UPDATE`, code).Scan(&prog.RouteTemplateID)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.PartProgress{}, core.ErrNotFound
	}
	if err != nil {
		return core.PartProgress{}, err
	}

	err = t.tx.QueryRow(ctx, `SELECT
    (SELECT COUNT(*) FROM route_template_stages WHERE route_template_id = $1),
    (SELECT COUNT(*) FROM part_stage_completions WHERE designation_code = $2)`,
		prog.RouteTemplateID, code).Scan(&prog.RouteLength, &prog.Completed)
	if err != nil {
		return core.PartProgress{}, fmt.Errorf("progress of %q: %w", code, err)
	}
	return prog, nil
}

func (t *pgTx) InsertStageCompletion(ctx context.Context, code string, c core.StageCompletion) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO part_stage_completions (
    designation_code, position, completed_by, completed_at
) VALUES ($1, $2, $3, $4)`, code, c.Position, c.CompletedBy, c.CompletedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("stage %d of %q: %w", c.Position, code, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("record stage %d of %q: %w", c.Position, code, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
