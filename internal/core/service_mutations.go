package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/partflow/internal/logging"
	"github.com/JonMunkholm/partflow/internal/metrics"
)

// CreatePart creates a single part from user-entered fields.
//
// Unlike ImportParts, a duplicate designation code is an error wrapping
// ErrConflict, and no notification is sent. The route template is taken by
// id as already chosen by the user; it is not derived from text.
func (s *Service) CreatePart(ctx context.Context, in PartInput, user User, opts CreateOptions) (*Part, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	part := &Part{
		DesignationCode:    in.DesignationCode,
		ProductDesignation: in.ProductDesignation,
		Name:               in.Name,
		QuantityTotal:      in.QuantityTotal,
		Size:               in.Size,
		Material:           in.Material,
		RouteTemplateID:    in.RouteTemplateID,
		CreatedBy:          user.Username,
		CreatedAt:          s.now(),
	}

	if opts.Drawing != nil {
		name, err := s.saveAttachment(opts.Drawing)
		if err != nil {
			return nil, fmt.Errorf("save drawing: %w", err)
		}
		part.DrawingFilename = name
	}

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		exists, err := tx.PartExists(ctx, part.DesignationCode)
		if err != nil {
			return fmt.Errorf("check part: %w", err)
		}
		if exists {
			return fmt.Errorf("part %q: %w", part.DesignationCode, ErrConflict)
		}

		if part.RouteTemplateID != nil {
			ok, err := tx.RouteTemplateExists(ctx, *part.RouteTemplateID)
			if err != nil {
				return fmt.Errorf("check route template: %w", err)
			}
			if !ok {
				return &ValidationError{
					Field:   "route_template_id",
					Message: fmt.Sprintf("route template %d does not exist", *part.RouteTemplateID),
				}
			}
		}

		return tx.InsertPart(ctx, part)
	})
	if err != nil {
		if part.DrawingFilename != "" {
			s.removeAttachment(ctx, part.DrawingFilename)
		}
		return nil, err
	}

	metrics.PartsCreated.WithLabelValues(metrics.SourceManual).Inc()
	logging.FromContext(ctx).Info("part created",
		"part_id", part.DesignationCode,
		"group", part.ProductDesignation,
		"user", user.Username,
	)
	s.notifyPartCreated(ctx, user, part.DesignationCode)

	return part, nil
}
