package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/partflow/internal/logging"
	"github.com/JonMunkholm/partflow/internal/metrics"
)

// BuildRouteStages lays a part's completions over its route. The first step
// without a completion is next and the steps after it are pending.
func BuildRouteStages(tmpl *RouteTemplate, done []StageCompletion) []RouteStage {
	if tmpl == nil || len(tmpl.Stages) == 0 {
		return nil
	}

	byPos := make(map[int]StageCompletion, len(done))
	for _, c := range done {
		byPos[c.Position] = c
	}

	stages := make([]RouteStage, len(tmpl.Stages))
	nextMarked := false
	for i, st := range tmpl.Stages {
		rs := RouteStage{Position: i, StageID: st.ID, Name: st.Name, Status: StagePending}
		if c, ok := byPos[i]; ok {
			at := c.CompletedAt
			rs.Status, rs.CompletedBy, rs.CompletedAt = StageCompleted, c.CompletedBy, &at
		} else if !nextMarked {
			rs.Status = StageNext
			nextMarked = true
		}
		stages[i] = rs
	}
	return stages
}

func withRouteStages(p *Part) {
	p.RouteStages = BuildRouteStages(p.RouteTemplate, p.Completions)
}

// CompleteNextStage records that the part passed the next step of its route
// and returns the part with updated route stages. Steps complete strictly in
// route order.
func (s *Service) CompleteNextStage(ctx context.Context, code string, user User) (*Part, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &ValidationError{Field: "designation_code", Message: "designation code is required"}
	}

	var position int
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		prog, err := tx.PartProgress(ctx, code)
		if err != nil {
			return fmt.Errorf("part %q: %w", code, err)
		}
		if prog.RouteTemplateID == nil || prog.RouteLength == 0 {
			return fmt.Errorf("part %q: %w", code, ErrNoRoute)
		}
		if prog.Completed >= prog.RouteLength {
			return fmt.Errorf("part %q: %w", code, ErrRouteComplete)
		}

		position = prog.Completed
		return tx.InsertStageCompletion(ctx, code, StageCompletion{
			Position:    position,
			CompletedBy: user.Username,
			CompletedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.StagesCompleted.Inc()

	p, err := s.GetPart(ctx, code)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).With("part_id", code, "position", position, "user", user.Username)
	if position < len(p.RouteStages) {
		logger = logger.With("stage", p.RouteStages[position].Name)
	}
	logger.Info("route stage completed")
	return p, nil
}
