package core

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/partflow/internal/logging"
	"github.com/JonMunkholm/partflow/internal/metrics"
	"github.com/JonMunkholm/partflow/internal/tabular"
)

// Import statuses recorded in metrics.
const (
	importCompleted = "completed"
	importFailed    = "failed"
	importRejected  = "rejected"
)

// reasonDuplicate is the skip reason for rows whose part already exists.
const reasonDuplicate = "part already exists"

// ImportParts reads a catalog from r and creates a part for every new
// designation code, attributed to user. Existing parts are never modified;
// their rows are counted as skipped. Each created part is committed on its
// own and announced with a part_created notification.
//
// An error means the file as a whole could not be processed and no counts
// are reported. Rows committed before the failure stay committed.
func (s *Service) ImportParts(ctx context.Context, r io.Reader, user User, opts ImportOptions) (ImportResult, error) {
	if err := validateUser(user); err != nil {
		return ImportResult{}, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		metrics.ImportsTotal.WithLabelValues(importRejected).Inc()
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.opts.ImportTimeout)
	defer cancel()

	start := time.Now()
	result := ImportResult{ImportID: uuid.NewString()}
	log := logging.WithFields(ctx,
		"import_id", result.ImportID,
		"user", user.Username,
		"file", opts.FileName,
	)
	log.Info("import started")

	parser, err := tabular.NewParser(&sizeLimitReader{r: r, max: s.opts.MaxFileSize}, s.parserOptions(opts))
	if err != nil {
		return s.failImport(log, start, fmt.Errorf("import %s: %w", opts.FileName, err))
	}

	for {
		if err := ctx.Err(); err != nil {
			return s.failImport(log, start, fmt.Errorf("import %s cancelled: %w", opts.FileName, err))
		}

		rec, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s.failImport(log, start, fmt.Errorf("import %s: %w", opts.FileName, err))
		}

		routeCreated, err := s.importRecord(ctx, rec, user)
		switch {
		case err == nil:
			result.Added++
			metrics.RecordRow(metrics.RowAdded)
			metrics.PartsCreated.WithLabelValues(metrics.SourceImport).Inc()
			if routeCreated {
				metrics.RouteTemplatesCreated.Inc()
			}
			s.notifyPartCreated(ctx, user, rec.DesignationCode)

		case errors.Is(err, ErrConflict):
			metrics.RecordRow(metrics.RowDuplicate)
			result.SkippedRows = append(result.SkippedRows, SkippedRow{
				Line: rec.Line, Code: rec.DesignationCode, Reason: reasonDuplicate,
			})

		case ctx.Err() != nil:
			return s.failImport(log, start, fmt.Errorf("import %s cancelled: %w", opts.FileName, ctx.Err()))

		default:
			metrics.RecordRow(metrics.RowFailed)
			log.Warn("row rolled back", "line", rec.Line, "part_id", rec.DesignationCode, "error", err)
			result.SkippedRows = append(result.SkippedRows, SkippedRow{
				Line: rec.Line, Code: rec.DesignationCode, Reason: err.Error(),
			})
		}
	}

	invalid := parser.Skipped()
	metrics.RecordRows(metrics.RowInvalid, len(invalid))
	for _, re := range invalid {
		result.SkippedRows = append(result.SkippedRows, SkippedRow{Line: re.Line, Code: re.Code, Reason: re.Reason})
	}
	slices.SortStableFunc(result.SkippedRows, func(a, b SkippedRow) int { return cmp.Compare(a.Line, b.Line) })

	result.Skipped = len(result.SkippedRows)
	result.Duration = time.Since(start)
	metrics.RecordImport(importCompleted, result.Duration)

	log.Info("import completed",
		"added", result.Added,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return result, nil
}

// importRecord creates one part in its own transaction. It reports whether
// a new route template was created for it.
func (s *Service) importRecord(ctx context.Context, rec tabular.Record, user User) (bool, error) {
	part := &Part{
		DesignationCode:    rec.DesignationCode,
		ProductDesignation: rec.ProductGroup,
		Name:               rec.Name,
		QuantityTotal:      rec.Quantity,
		Size:               rec.Size,
		Material:           rec.Material,
		CreatedBy:          user.Username,
		CreatedAt:          s.now(),
	}

	var routeCreated bool
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		exists, err := tx.PartExists(ctx, part.DesignationCode)
		if err != nil {
			return fmt.Errorf("check part: %w", err)
		}
		if exists {
			return fmt.Errorf("part %q: %w", part.DesignationCode, ErrConflict)
		}

		tmpl, created, err := ResolveRoute(ctx, tx, rec.OperationsRaw)
		if err != nil {
			return err
		}
		if tmpl != nil {
			id := tmpl.ID
			part.RouteTemplateID = &id
		}
		routeCreated = created

		return tx.InsertPart(ctx, part)
	})
	return routeCreated, err
}

func (s *Service) parserOptions(opts ImportOptions) tabular.Options {
	po := tabular.Options{Encoding: s.opts.Encoding, GroupColumn: *s.opts.GroupColumn}
	if opts.Encoding != "" {
		po.Encoding = opts.Encoding
	}
	if opts.GroupColumn != nil {
		po.GroupColumn = *opts.GroupColumn
	}
	return po
}

func (s *Service) failImport(log *slog.Logger, start time.Time, err error) (ImportResult, error) {
	metrics.RecordImport(importFailed, time.Since(start))
	log.Error("import failed", "error", err)
	return ImportResult{}, err
}

// sizeLimitReader fails with ErrFileTooLarge once more than max bytes were read.
type sizeLimitReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *sizeLimitReader) Read(p []byte) (int, error) {
	if l.read > l.max {
		return 0, ErrFileTooLarge
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		return 0, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, l.max)
	}
	return n, err
}
