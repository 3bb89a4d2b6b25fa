package tabular

import "strings"

// Field is a logical catalog column.
type Field int

const (
	FieldNumber Field = iota
	FieldDesignation
	FieldName
	FieldQuantity
	FieldSize
	FieldOperations
	FieldRemark
	FieldMaterial
)

var fieldNames = [...]string{
	FieldNumber:      "number",
	FieldDesignation: "designation",
	FieldName:        "name",
	FieldQuantity:    "quantity",
	FieldSize:        "size",
	FieldOperations:  "operations",
	FieldRemark:      "remark",
	FieldMaterial:    "material",
}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

// headerVocabulary maps normalized header cells to fields.
var headerVocabulary = map[string]Field{
	"№":            FieldNumber,
	"#":            FieldNumber,
	"no":           FieldNumber,
	"n":            FieldNumber,
	"номер":        FieldNumber,
	"поз":          FieldNumber,
	"обозначение":  FieldDesignation,
	"designation":  FieldDesignation,
	"код":          FieldDesignation,
	"code":         FieldDesignation,
	"part_id":      FieldDesignation,
	"наименование": FieldName,
	"название":     FieldName,
	"name":         FieldName,
	"кол-во":       FieldQuantity,
	"кол":          FieldQuantity,
	"количество":   FieldQuantity,
	"qty":          FieldQuantity,
	"quantity":     FieldQuantity,
	"размер":       FieldSize,
	"size":         FieldSize,
	"операции":     FieldOperations,
	"маршрут":      FieldOperations,
	"operations":   FieldOperations,
	"route":        FieldOperations,
	"прим":         FieldRemark,
	"примечание":   FieldRemark,
	"remark":       FieldRemark,
	"note":         FieldRemark,
	"материал":     FieldMaterial,
	"material":     FieldMaterial,
}

// ColumnMapping maps fields to zero-based column positions.
type ColumnMapping map[Field]int

// Cell returns the cleaned value of field f in row, or "" when the field is
// unmapped or the row is too short.
func (m ColumnMapping) Cell(row []string, f Field) string {
	idx, ok := m[f]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// normalizeHeader lowercases a header cell and strips trailing punctuation ("Прим." -> "прим").
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".:")
	return strings.TrimSpace(s)
}

// DetectHeader reports whether row is a column header row and returns its mapping.
// A header must map the designation column and at least one other known field.
// The first occurrence of a field wins.
func DetectHeader(row []string) (ColumnMapping, bool) {
	m := make(ColumnMapping)
	for i, cell := range row {
		f, ok := headerVocabulary[normalizeHeader(cell)]
		if !ok {
			continue
		}
		if _, seen := m[f]; !seen {
			m[f] = i
		}
	}

	if _, ok := m[FieldDesignation]; !ok || len(m) < 2 {
		return nil, false
	}
	return m, true
}
