package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/partflow/internal/core"
)

const partColumns = `designation_code, product_designation, name, quantity_total, quantity_completed,
    size, material, drawing_filename, route_template_id, created_by, created_at`

func scanPart(row pgx.Row) (core.Part, error) {
	var (
		p                   core.Part
		size, material, dwg *string
	)
	err := row.Scan(&p.DesignationCode, &p.ProductDesignation, &p.Name, &p.QuantityTotal, &p.QuantityCompleted,
		&size, &material, &dwg, &p.RouteTemplateID, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return core.Part{}, err
	}

	p.Size, p.Material, p.DrawingFilename = deref(size), deref(material), deref(dwg)
	return p, nil
}

func (s *Store) GetPart(ctx context.Context, code string) (*core.Part, error) {
	p, err := scanPart(s.pool.QueryRow(ctx,
		`SELECT `+partColumns+` FROM parts WHERE designation_code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.RouteTemplateID != nil {
		if p.RouteTemplate, err = loadRouteTemplate(ctx, s.pool, *p.RouteTemplateID); err != nil {
			return nil, err
		}
	}

	done, err := s.completions(ctx, `WHERE c.designation_code = $1`, code)
	if err != nil {
		return nil, err
	}
	p.Completions = done[code]
	return &p, nil
}

type completionRow struct {
	code string
	core.StageCompletion
}

// completions loads stage completions matching where, keyed by designation code.
func (s *Store) completions(ctx context.Context, where string, arg any) (map[string][]core.StageCompletion, error) {
	rows, err := s.pool.Query(ctx, `SELECT c.designation_code, c.position, c.completed_by, c.completed_at
FROM part_stage_completions c
JOIN parts p ON p.designation_code = c.designation_code
`+where+`
ORDER BY c.designation_code, c.position`, arg)
	if err != nil {
		return nil, fmt.Errorf("stage completions: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (completionRow, error) {
		var r completionRow
		err := row.Scan(&r.code, &r.Position, &r.CompletedBy, &r.CompletedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("stage completions: %w", err)
	}

	done := make(map[string][]core.StageCompletion)
	for _, r := range list {
		done[r.code] = append(done[r.code], r.StageCompletion)
	}
	return done, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]core.ProductGroup, error) {
	rows, err := s.pool.Query(ctx, `SELECT product_designation, COUNT(*)
FROM parts
GROUP BY product_designation
ORDER BY product_designation`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ProductGroup, error) {
		var g core.ProductGroup
		err := row.Scan(&g.Designation, &g.PartCount)
		return g, err
	})
}

func (s *Store) ListPartsByGroup(ctx context.Context, group string) ([]core.Part, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+partColumns+` FROM parts WHERE product_designation = $1 ORDER BY designation_code`, group)
	if err != nil {
		return nil, err
	}
	parts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Part, error) {
		return scanPart(row)
	})
	if err != nil {
		return nil, err
	}

	templates := make(map[int64]*core.RouteTemplate)
	for i := range parts {
		id := parts[i].RouteTemplateID
		if id == nil {
			continue
		}
		if _, ok := templates[*id]; !ok {
			t, err := loadRouteTemplate(ctx, s.pool, *id)
			if err != nil {
				return nil, err
			}
			templates[*id] = t
		}
		parts[i].RouteTemplate = templates[*id]
	}

	done, err := s.completions(ctx, `WHERE p.product_designation = $1`, group)
	if err != nil {
		return nil, err
	}
	for i := range parts {
		parts[i].Completions = done[parts[i].DesignationCode]
	}
	return parts, nil
}

func (s *Store) ListRouteTemplates(ctx context.Context) ([]core.RouteTemplate, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM route_templates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	tmpls, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.RouteTemplate, error) {
		var t core.RouteTemplate
		err := row.Scan(&t.ID, &t.Name)
		return t, err
	})
	if err != nil {
		return nil, err
	}

	index := make(map[int64]int, len(tmpls))
	for i, t := range tmpls {
		index[t.ID] = i
	}

	links, err := s.pool.Query(ctx, `SELECT rts.route_template_id, s.id, s.name
FROM route_template_stages rts
JOIN stages s ON s.id = rts.stage_id
ORDER BY rts.route_template_id, rts.position`)
	if err != nil {
		return nil, err
	}
	defer links.Close()

	for links.Next() {
		var tmplID int64
		var st core.Stage
		if err := links.Scan(&tmplID, &st.ID, &st.Name); err != nil {
			return nil, err
		}
		if i, ok := index[tmplID]; ok {
			tmpls[i].Stages = append(tmpls[i].Stages, st)
		}
	}
	return tmpls, links.Err()
}

func (s *Store) GetRouteTemplate(ctx context.Context, id int64) (*core.RouteTemplate, error) {
	return loadRouteTemplate(ctx, s.pool, id)
}

func loadRouteTemplate(ctx context.Context, db DBTX, id int64) (*core.RouteTemplate, error) {
	t := &core.RouteTemplate{}
	err := db.QueryRow(ctx, `SELECT id, name FROM route_templates WHERE id = $1`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, `SELECT s.id, s.name
FROM route_template_stages rts
JOIN stages s ON s.id = rts.stage_id
WHERE rts.route_template_id = $1
ORDER BY rts.position`, id)
	if err != nil {
		return nil, fmt.Errorf("route template %d stages: %w", id, err)
	}
	t.Stages, err = pgx.CollectRows(rows, scanStage)
	return t, err
}

func (s *Store) ListStages(ctx context.Context) ([]core.Stage, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM stages ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanStage)
}

func scanStage(row pgx.CollectableRow) (core.Stage, error) {
	var st core.Stage
	err := row.Scan(&st.ID, &st.Name)
	return st, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
