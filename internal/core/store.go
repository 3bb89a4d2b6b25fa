package core

import "context"

// Store is the transactional relational store behind the service.
// Implementations must enforce uniqueness of part designation codes, stage
// names and route template names.
type Store interface {
	// WithinTx runs fn in a transaction, committing when fn returns nil.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// GetPart and ListPartsByGroup load the route template and stage completions.
	GetPart(ctx context.Context, code string) (*Part, error)
	ListGroups(ctx context.Context) ([]ProductGroup, error)
	ListPartsByGroup(ctx context.Context, group string) ([]Part, error)
	ListRouteTemplates(ctx context.Context) ([]RouteTemplate, error)
	GetRouteTemplate(ctx context.Context, id int64) (*RouteTemplate, error)
	ListStages(ctx context.Context) ([]Stage, error)

	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of writes performed inside one row transaction.
type Tx interface {
	// PartExists reports whether a part with the designation code exists.
	PartExists(ctx context.Context, code string) (bool, error)

	// InsertPart stores a new part. It returns an error wrapping ErrConflict
	// when the designation code is taken.
	InsertPart(ctx context.Context, p *Part) error

	// EnsureStage returns the stage with the exact name, creating it if needed.
	EnsureStage(ctx context.Context, name string) (Stage, error)

	// FindRouteTemplate looks a template up by name; ErrNotFound when absent.
	FindRouteTemplate(ctx context.Context, name string) (*RouteTemplate, error)

	// CreateRouteTemplate inserts a template with stages at positions 0..n-1.
	// When another transaction created the same name first, the existing
	// template is returned and created is false.
	CreateRouteTemplate(ctx context.Context, name string, stages []Stage) (tmpl *RouteTemplate, created bool, err error)

	// RouteTemplateExists reports whether a template with the id exists.
	RouteTemplateExists(ctx context.Context, id int64) (bool, error)

	// PartProgress locks the part against concurrent progress updates and
	// reports its route length and completed step count; ErrNotFound when absent.
	PartProgress(ctx context.Context, code string) (PartProgress, error)

	// InsertStageCompletion records a completed route step. It returns an error
	// wrapping ErrConflict when the step is already recorded.
	InsertStageCompletion(ctx context.Context, code string, c StageCompletion) error
}
