package core

import (
	"context"
	"fmt"
	"strings"
)

// GetPart returns a part with its route template and per-stage progress.
func (s *Service) GetPart(ctx context.Context, code string) (*Part, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("part %q: %w", code, ErrNotFound)
	}
	p, err := s.store.GetPart(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get part %q: %w", code, err)
	}
	withRouteStages(p)
	return p, nil
}

// ListGroups returns every product designation with its part count.
func (s *Service) ListGroups(ctx context.Context) ([]ProductGroup, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// ListPartsByGroup returns the parts of one product designation, ordered by
// designation code, with their route stages.
func (s *Service) ListPartsByGroup(ctx context.Context, group string) ([]Part, error) {
	parts, err := s.store.ListPartsByGroup(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("list parts of %q: %w", group, err)
	}
	for i := range parts {
		withRouteStages(&parts[i])
	}
	return parts, nil
}

// ListRouteTemplates returns all route templates with their ordered stages.
func (s *Service) ListRouteTemplates(ctx context.Context) ([]RouteTemplate, error) {
	tmpls, err := s.store.ListRouteTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list route templates: %w", err)
	}
	return tmpls, nil
}

// GetRouteTemplate returns one route template with its ordered stages.
func (s *Service) GetRouteTemplate(ctx context.Context, id int64) (*RouteTemplate, error) {
	t, err := s.store.GetRouteTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get route template %d: %w", id, err)
	}
	return t, nil
}

// ListStages returns all stages ordered by name.
func (s *Service) ListStages(ctx context.Context) ([]Stage, error) {
	stages, err := s.store.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return stages, nil
}
