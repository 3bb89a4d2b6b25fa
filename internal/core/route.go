package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// OperationSeparator splits the operations cell into stage names.
const OperationSeparator = ","

// TemplateNameSeparator joins stage names into a route template name.
const TemplateNameSeparator = " -> "

// SplitOperations turns "Ток, Фр,,Св" into ["Ток" "Фр" "Св"]. Order is kept and
// repeated names are not collapsed.
func SplitOperations(raw string) []string {
	var names []string
	for _, tok := range strings.Split(raw, OperationSeparator) {
		if tok = strings.TrimSpace(tok); tok != "" {
			names = append(names, tok)
		}
	}
	return names
}

// TemplateName derives a route template's identity from its ordered stage names.
func TemplateName(stages []string) string {
	return strings.Join(stages, TemplateNameSeparator)
}

// ResolveRoute finds or creates the route template for an operations cell
// within tx. An empty cell resolves to a nil template. Stage names match
// exactly, case included.
func ResolveRoute(ctx context.Context, tx Tx, operationsRaw string) (tmpl *RouteTemplate, created bool, err error) {
	names := SplitOperations(operationsRaw)
	if len(names) == 0 {
		return nil, false, nil
	}

	name := TemplateName(names)
	tmpl, err = tx.FindRouteTemplate(ctx, name)
	if err == nil {
		return tmpl, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("find route template %q: %w", name, err)
	}

	stages := make([]Stage, 0, len(names))
	seen := make(map[string]Stage, len(names))
	for _, n := range names {
		st, ok := seen[n]
		if !ok {
			if st, err = tx.EnsureStage(ctx, n); err != nil {
				return nil, false, fmt.Errorf("ensure stage %q: %w", n, err)
			}
			seen[n] = st
		}
		stages = append(stages, st)
	}

	tmpl, created, err = tx.CreateRouteTemplate(ctx, name, stages)
	if err != nil {
		return nil, false, fmt.Errorf("create route template %q: %w", name, err)
	}
	return tmpl, created, nil
}
