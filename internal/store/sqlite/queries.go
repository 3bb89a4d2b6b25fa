package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JonMunkholm/partflow/internal/core"
)

const partColumns = `designation_code, product_designation, name, quantity_total, quantity_completed,
    size, material, drawing_filename, route_template_id, created_by, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPart(row rowScanner) (core.Part, error) {
	var (
		p                   core.Part
		size, material, dwg sql.NullString
		routeID             sql.NullInt64
		createdAt           string
	)
	err := row.Scan(&p.DesignationCode, &p.ProductDesignation, &p.Name, &p.QuantityTotal, &p.QuantityCompleted,
		&size, &material, &dwg, &routeID, &p.CreatedBy, &createdAt)
	if err != nil {
		return core.Part{}, err
	}

	p.Size, p.Material, p.DrawingFilename = size.String, material.String, dwg.String
	if routeID.Valid {
		id := routeID.Int64
		p.RouteTemplateID = &id
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func (s *Store) GetPart(ctx context.Context, code string) (*core.Part, error) {
	p, err := scanPart(s.db.QueryRowContext(ctx,
		`SELECT `+partColumns+` FROM parts WHERE designation_code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.RouteTemplateID != nil {
		if p.RouteTemplate, err = s.GetRouteTemplate(ctx, *p.RouteTemplateID); err != nil {
			return nil, err
		}
	}

	done, err := s.completions(ctx, `WHERE c.designation_code = ?`, code)
	if err != nil {
		return nil, err
	}
	p.Completions = done[code]
	return &p, nil
}

// completions loads stage completions matching where, keyed by designation code.
func (s *Store) completions(ctx context.Context, where string, arg any) (map[string][]core.StageCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.designation_code, c.position, c.completed_by, c.completed_at
FROM part_stage_completions c
JOIN parts p ON p.designation_code = c.designation_code
`+where+`
ORDER BY c.designation_code, c.position`, arg)
	if err != nil {
		return nil, fmt.Errorf("stage completions: %w", err)
	}
	defer rows.Close()

	done := make(map[string][]core.StageCompletion)
	for rows.Next() {
		var (
			code, at string
			c        core.StageCompletion
		)
		if err := rows.Scan(&code, &c.Position, &c.CompletedBy, &at); err != nil {
			return nil, err
		}
		c.CompletedAt = parseTime(at)
		done[code] = append(done[code], c)
	}
	return done, rows.Err()
}

func (s *Store) ListGroups(ctx context.Context) ([]core.ProductGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT product_designation, COUNT(*)
FROM parts
GROUP BY product_designation
ORDER BY product_designation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []core.ProductGroup
	for rows.Next() {
		var g core.ProductGroup
		if err := rows.Scan(&g.Designation, &g.PartCount); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) ListPartsByGroup(ctx context.Context, group string) ([]core.Part, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+partColumns+` FROM parts WHERE product_designation = ? ORDER BY designation_code`, group)
	if err != nil {
		return nil, err
	}

	var parts []core.Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		parts = append(parts, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	templates := make(map[int64]*core.RouteTemplate)
	for i := range parts {
		id := parts[i].RouteTemplateID
		if id == nil {
			continue
		}
		if _, ok := templates[*id]; !ok {
			t, err := s.GetRouteTemplate(ctx, *id)
			if err != nil {
				return nil, err
			}
			templates[*id] = t
		}
		parts[i].RouteTemplate = templates[*id]
	}

	done, err := s.completions(ctx, `WHERE p.product_designation = ?`, group)
	if err != nil {
		return nil, err
	}
	for i := range parts {
		parts[i].Completions = done[parts[i].DesignationCode]
	}
	return parts, nil
}

func (s *Store) ListRouteTemplates(ctx context.Context) ([]core.RouteTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM route_templates ORDER BY name`)
	if err != nil {
		return nil, err
	}

	var tmpls []core.RouteTemplate
	index := make(map[int64]int)
	for rows.Next() {
		var t core.RouteTemplate
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			rows.Close()
			return nil, err
		}
		index[t.ID] = len(tmpls)
		tmpls = append(tmpls, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := s.db.QueryContext(ctx, `SELECT rts.route_template_id, s.id, s.name
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
	t := &core.RouteTemplate{}
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM route_templates WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.name
FROM route_template_stages rts
JOIN stages s ON s.id = rts.stage_id
WHERE rts.route_template_id = ?
ORDER BY rts.position`, id)
	if err != nil {
		return nil, fmt.Errorf("route template %d stages: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var st core.Stage
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, err
		}
		t.Stages = append(t.Stages, st)
	}
	return t, rows.Err()
}

func (s *Store) ListStages(ctx context.Context) ([]core.Stage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM stages ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []core.Stage
	for rows.Next() {
		var st core.Stage
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}
