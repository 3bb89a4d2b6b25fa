// Package tabular parses loosely structured part catalogs exported from
// spreadsheets into normalized part records.
//
// A catalog has no fixed schema. Group label rows establish the product
// group for the rows that follow, header rows establish which column holds
// which field, and data rows are read positionally against the latest header.
// Rows that cannot be interpreted are skipped and tallied; only stream-level
// problems abort a parse.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
)

// Options configures a Parser.
type Options struct {
	// Encoding of the input; empty means UTF-8.
	Encoding string
	// GroupColumn is the zero-based column of group labels; negative selects DefaultGroupColumn.
	GroupColumn int
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

// DefaultOptions returns options for UTF-8, comma-separated catalogs with
// group labels in DefaultGroupColumn.
func DefaultOptions() Options {
	return Options{GroupColumn: DefaultGroupColumn}
}

// Stats tallies the rows a Parser has consumed so far.
type Stats struct {
	Rows    int
	Records int
	Skipped int
	Ignored int
	Groups  int
	Headers int
}

// Parser yields Records from a catalog in a single forward pass.
type Parser struct {
	csv     *csv.Reader
	state   *State
	stats   Stats
	skipped []RowError
	content bool
	err     error
}

// NewParser prepares r for parsing. It fails only for an unsupported encoding.
func NewParser(r io.Reader, opts Options) (*Parser, error) {
	decoded, err := decodingReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	return &Parser{csv: cr, state: NewState(opts.GroupColumn)}, nil
}

// Next returns the next record. It returns io.EOF after the last record and a
// wrapped ErrMalformedFile when the stream itself cannot be read.
// Once Next has returned an error it keeps returning it.
func (p *Parser) Next() (Record, error) {
	if p.err != nil {
		return Record{}, p.err
	}

	for {
		raw, err := p.csv.Read()
		if errors.Is(err, io.EOF) {
			p.err = p.finish()
			return Record{}, p.err
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && isRowError(perr.Err) {
				p.stats.Rows++
				p.content = true
				p.skip(RowError{Line: perr.StartLine, Reason: perr.Err.Error()})
				continue
			}
			p.err = fmt.Errorf("%w: read: %w", ErrMalformedFile, err)
			return Record{}, p.err
		}

		line, _ := p.csv.FieldPos(0)
		p.stats.Rows++

		rec, outcome, rowErr := p.state.Step(line, raw)
		if outcome != OutcomeBlank {
			p.content = true
		}

		switch outcome {
		case OutcomeRecord:
			p.stats.Records++
			return rec, nil
		case OutcomeSkipped:
			var re *RowError
			if errors.As(rowErr, &re) {
				p.skip(*re)
			} else {
				p.skip(RowError{Line: line, Reason: rowErr.Error()})
			}
		case OutcomeIgnored:
			p.stats.Ignored++
		case OutcomeGroup:
			p.stats.Groups++
		case OutcomeHeader:
			p.stats.Headers++
		}
	}
}

// isRowError reports whether a csv parse error is confined to a single row.
func isRowError(err error) bool {
	return errors.Is(err, csv.ErrQuote) || errors.Is(err, csv.ErrBareQuote) || errors.Is(err, csv.ErrFieldCount)
}

func (p *Parser) finish() error {
	switch {
	case !p.content:
		return ErrEmptyFile
	case !p.state.HeaderSeen:
		return ErrNoHeader
	}
	return io.EOF
}

func (p *Parser) skip(e RowError) {
	p.stats.Skipped++
	p.skipped = append(p.skipped, e)
}

// All returns an iterator over the remaining records. Iteration stops after
// the first error; a clean end of input is not reported as an error.
func (p *Parser) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := p.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Stats returns the tallies for the rows consumed so far.
func (p *Parser) Stats() Stats { return p.stats }

// Skipped returns the rows skipped so far, in file order.
func (p *Parser) Skipped() []RowError {
	out := make([]RowError, len(p.skipped))
	copy(out, p.skipped)
	return out
}

// State exposes the current parse context, mainly for diagnostics.
func (p *Parser) State() State { return *p.state }
