package tabular

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalogHeader = []string{"№", "Обозначение", "Наименование", "Кол-во", "Размер", "Операции", "Прим."}

func TestDetectHeader(t *testing.T) {
	tests := []struct {
		name   string
		row    []string
		want   ColumnMapping
		header bool
	}{
		{
			name: "russian catalog header",
			row:  catalogHeader,
			want: ColumnMapping{
				FieldNumber: 0, FieldDesignation: 1, FieldName: 2, FieldQuantity: 3,
				FieldSize: 4, FieldOperations: 5, FieldRemark: 6,
			},
			header: true,
		},
		{
			name:   "english header with material and case noise",
			row:    []string{" Code ", "NAME", "Qty:", "Material"},
			want:   ColumnMapping{FieldDesignation: 0, FieldName: 1, FieldQuantity: 2, FieldMaterial: 3},
			header: true,
		},
		{
			name:   "first duplicate wins",
			row:    []string{"Обозначение", "Код", "Наименование"},
			want:   ColumnMapping{FieldDesignation: 0, FieldName: 2},
			header: true,
		},
		{name: "designation alone is not a header", row: []string{"", "Обозначение", ""}},
		{name: "no designation column", row: []string{"№", "Наименование", "Кол-во"}},
		{name: "data row", row: []string{"", "АСЦБ-000475", "Палец", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectHeader(tt.row)
			require.Equal(t, tt.header, ok)
			if diff := cmp.Diff(tt.want, got); tt.header && diff != "" {
				t.Errorf("DetectHeader() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type step struct {
	row     []string
	outcome Outcome
	record  *Record
}

func TestState_Step(t *testing.T) {
	tests := []struct {
		name      string
		group     int
		steps     []step
		wantGroup string
	}{
		{
			name:  "group then header then data",
			group: 1,
			steps: []step{
				{row: []string{"", "", "", ""}, outcome: OutcomeBlank},
				{row: []string{"", "Наборка №3", "", ""}, outcome: OutcomeGroup},
				{row: catalogHeader, outcome: OutcomeHeader},
				{
					row:     []string{"", "АСЦБ-000459", "Болт осевой", "5", "S24х530", "Св,HRC", "30ХГСА"},
					outcome: OutcomeRecord,
					record: &Record{
						DesignationCode: "АСЦБ-000459", ProductGroup: "Наборка №3", Name: "Болт осевой",
						Quantity: 5, Size: "S24х530", OperationsRaw: "Св,HRC", Material: "30ХГСА",
					},
				},
			},
			wantGroup: "Наборка №3",
		},
		{
			name:  "group switch after header keeps mapping",
			group: 0,
			steps: []step{
				{row: []string{"Группа А"}, outcome: OutcomeGroup},
				{row: []string{"", "Обозначение", "Наименование", "Кол-во"}, outcome: OutcomeHeader},
				{row: []string{"", "A-1", "Вал", "2"}, outcome: OutcomeRecord, record: &Record{
					DesignationCode: "A-1", ProductGroup: "Группа А", Name: "Вал", Quantity: 2,
				}},
				{row: []string{"Группа Б", "", "", ""}, outcome: OutcomeGroup},
				{row: []string{"", "B-1", "Втулка", ""}, outcome: OutcomeRecord, record: &Record{
					DesignationCode: "B-1", ProductGroup: "Группа Б", Name: "Втулка", Quantity: 1,
				}},
			},
			wantGroup: "Группа Б",
		},
		{
			name:  "code-only row in the group column is data after a header",
			group: 1,
			steps: []step{
				{row: []string{"", "Наборка №3", "", ""}, outcome: OutcomeGroup},
				{row: catalogHeader, outcome: OutcomeHeader},
				{row: []string{"", "АСЦБ-1", "Палец", "1", "", "Ток", ""}, outcome: OutcomeRecord},
				{row: []string{"", "АСЦБ-2", "", "", "", "", ""}, outcome: OutcomeRecord, record: &Record{
					DesignationCode: "АСЦБ-2", ProductGroup: "Наборка №3", Quantity: 1,
				}},
				{row: []string{"", "АСЦБ-3", "Ось", "2", "", "Фр", ""}, outcome: OutcomeRecord, record: &Record{
					DesignationCode: "АСЦБ-3", ProductGroup: "Наборка №3", Name: "Ось", Quantity: 2, OperationsRaw: "Фр",
				}},
			},
			wantGroup: "Наборка №3",
		},
		{
			name:  "preamble before header is ignored",
			group: 1,
			steps: []step{
				{row: []string{"Спецификация", "", "лист 1"}, outcome: OutcomeIgnored},
				{row: []string{"", "X-1", "Вал", "1"}, outcome: OutcomeIgnored},
				{row: catalogHeader, outcome: OutcomeHeader},
			},
		},
		{
			name:  "missing designation is skipped",
			group: 1,
			steps: []step{
				{row: catalogHeader, outcome: OutcomeHeader},
				{row: []string{"1", "", "Палец", "1"}, outcome: OutcomeSkipped},
				{row: []string{"Итого"}, outcome: OutcomeSkipped},
			},
		},
		{
			name:  "custom group column",
			group: 0,
			steps: []step{
				{row: []string{"Узел 7", "", ""}, outcome: OutcomeGroup},
				{row: []string{"", "Узел 8", ""}, outcome: OutcomeIgnored},
			},
			wantGroup: "Узел 7",
		},
		{
			name:  "invalid utf-8 is skipped",
			group: 1,
			steps: []step{
				{row: catalogHeader, outcome: OutcomeHeader},
				{row: []string{"", "A-\xff", "Вал"}, outcome: OutcomeSkipped},
			},
		},
		{
			name:  "remark falls back when material is empty",
			group: 1,
			steps: []step{
				{row: []string{"Обозначение", "Материал", "Прим."}, outcome: OutcomeHeader},
				{row: []string{"M-1", "", "Ст3"}, outcome: OutcomeRecord, record: &Record{
					DesignationCode: "M-1", Quantity: 1, Material: "Ст3",
				}},
				{row: []string{"M-2", "Ст45", "покрытие"}, outcome: OutcomeRecord, record: &Record{
					DesignationCode: "M-2", Quantity: 1, Material: "Ст45",
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(tt.group)
			for i, st := range tt.steps {
				line := i + 1
				rec, outcome, err := s.Step(line, st.row)
				require.Equal(t, st.outcome, outcome, "line %d: %q", line, st.row)

				if outcome == OutcomeSkipped {
					var re *RowError
					require.ErrorAs(t, err, &re)
					assert.Equal(t, line, re.Line)
				} else {
					require.NoError(t, err)
				}

				if st.record != nil {
					want := *st.record
					want.Line = line
					if diff := cmp.Diff(want, rec); diff != "" {
						t.Errorf("line %d record mismatch (-want +got):\n%s", line, diff)
					}
				}
			}
			assert.Equal(t, tt.wantGroup, s.Group)
		})
	}
}

func TestState_ShortRowSkipped(t *testing.T) {
	s := NewState(DefaultGroupColumn)
	_, outcome, err := s.Step(1, []string{"Наименование", "Кол-во", "Обозначение"})
	require.NoError(t, err)
	require.Equal(t, OutcomeHeader, outcome)

	_, outcome, err = s.Step(2, []string{"Вал", "2"})
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.ErrorContains(t, err, "designation is column 3")
}
