package postgres

import (
	"context"
	"fmt"
)

// Schema statements, applied in order by Migrate. Names are compared with
// the default collation's byte equality, so matching is case-sensitive.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stages (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS route_templates (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS route_template_stages (
    route_template_id BIGINT NOT NULL REFERENCES route_templates(id) ON DELETE CASCADE,
    position INTEGER NOT NULL CHECK (position >= 0),
    stage_id BIGINT NOT NULL REFERENCES stages(id),
    PRIMARY KEY (route_template_id, position)
)`,
	`CREATE TABLE IF NOT EXISTS parts (
    designation_code TEXT PRIMARY KEY,
    product_designation TEXT NOT NULL,
    name TEXT NOT NULL,
    quantity_total INTEGER NOT NULL CHECK (quantity_total > 0),
    quantity_completed INTEGER NOT NULL DEFAULT 0,
    size TEXT,
    material TEXT,
    drawing_filename TEXT,
    route_template_id BIGINT REFERENCES route_templates(id),
    created_by TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS parts_product_designation_idx ON parts (product_designation)`,
	`CREATE TABLE IF NOT EXISTS part_stage_completions (
    designation_code TEXT NOT NULL REFERENCES parts(designation_code) ON DELETE CASCADE,
    position INTEGER NOT NULL CHECK (position >= 0),
    completed_by TEXT NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (designation_code, position)
)`,
}

// Migrate creates any missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
