package tabular

import (
	"fmt"
	"unicode/utf8"
)

// DefaultGroupColumn is the zero-based column that carries product group labels.
const DefaultGroupColumn = 1

// Outcome classifies a row consumed by State.Step.
type Outcome int

const (
	OutcomeBlank Outcome = iota
	OutcomeGroup
	OutcomeHeader
	OutcomeRecord
	OutcomeSkipped
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBlank:
		return "blank"
	case OutcomeGroup:
		return "group"
	case OutcomeHeader:
		return "header"
	case OutcomeRecord:
		return "record"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeIgnored:
		return "ignored"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Record is one normalized part row.
type Record struct {
	Line            int
	DesignationCode string
	ProductGroup    string
	Name            string
	Quantity        int
	Size            string
	OperationsRaw   string
	Material        string
}

// State is the parse context threaded through a catalog's rows: the current
// product group and the active column mapping. Rows must be stepped in file order.
type State struct {
	Group       string
	Mapping     ColumnMapping
	HeaderSeen  bool
	GroupColumn int
	Line        int
}

// NewState returns a State that reads group labels from groupColumn.
func NewState(groupColumn int) *State {
	if groupColumn < 0 {
		groupColumn = DefaultGroupColumn
	}
	return &State{GroupColumn: groupColumn}
}

// Step consumes one row at the given 1-based line and reports what it was.
// A record is returned only with OutcomeRecord; OutcomeSkipped carries a *RowError.
//
// Rules, in order:
//   - rows without non-empty cells are blank
//   - rows with invalid UTF-8 are skipped
//   - rows matching the header vocabulary replace the column mapping
//   - a lone non-empty cell in the group column sets the current group, unless
//     a header has mapped that column to designation codes
//   - anything else before the first header is ignored
//   - data rows need a non-empty designation code
func (s *State) Step(line int, raw []string) (Record, Outcome, error) {
	s.Line = line

	row := make([]string, len(raw))
	nonEmpty, lastNonEmpty := 0, -1
	for i, cell := range raw {
		if !utf8.ValidString(cell) {
			return Record{}, OutcomeSkipped, &RowError{Line: line, Reason: fmt.Sprintf("column %d is not valid UTF-8", i+1)}
		}
		row[i] = CleanCell(cell)
		if row[i] != "" {
			nonEmpty++
			lastNonEmpty = i
		}
	}

	if nonEmpty == 0 {
		return Record{}, OutcomeBlank, nil
	}

	if m, ok := DetectHeader(row); ok {
		s.Mapping = m
		s.HeaderSeen = true
		return Record{}, OutcomeHeader, nil
	}

	if nonEmpty == 1 && lastNonEmpty == s.GroupColumn && !s.groupIsDesignation() {
		s.Group = row[s.GroupColumn]
		return Record{}, OutcomeGroup, nil
	}

	if !s.HeaderSeen {
		return Record{}, OutcomeIgnored, nil
	}

	return s.record(line, row)
}

// groupIsDesignation reports whether the active header reads codes from the
// group column. A lone cell there is then a code-only data row.
func (s *State) groupIsDesignation() bool {
	if !s.HeaderSeen {
		return false
	}
	col, ok := s.Mapping[FieldDesignation]
	return ok && col == s.GroupColumn
}

func (s *State) record(line int, row []string) (Record, Outcome, error) {
	codeCol := s.Mapping[FieldDesignation]
	if codeCol >= len(row) {
		return Record{}, OutcomeSkipped, &RowError{
			Line:   line,
			Reason: fmt.Sprintf("row has %d columns, designation is column %d", len(row), codeCol+1),
		}
	}

	code := row[codeCol]
	if code == "" {
		return Record{}, OutcomeSkipped, &RowError{Line: line, Reason: "missing designation code"}
	}

	material := s.Mapping.Cell(row, FieldMaterial)
	if material == "" {
		material = s.Mapping.Cell(row, FieldRemark)
	}

	return Record{
		Line:            line,
		DesignationCode: code,
		ProductGroup:    s.Group,
		Name:            s.Mapping.Cell(row, FieldName),
		Quantity:        ParseQuantity(s.Mapping.Cell(row, FieldQuantity)),
		Size:            s.Mapping.Cell(row, FieldSize),
		OperationsRaw:   s.Mapping.Cell(row, FieldOperations),
		Material:        material,
	}, OutcomeRecord, nil
}
