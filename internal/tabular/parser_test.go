package tabular

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const naborka3 = `
"","","","","","",""
"","Наборка №3","","","","",""
"№","Обозначение","Наименование","Кол-во","Размер","Операции","Прим."
"","АСЦБ-000475","Палец","1","","Ток,Фр","Ст3"
"","АСЦБ-000459","Болт осевой","5","S24х530","Св,HRC","30ХГСА"
"","АСЦБ-000461","Ограничитель","4","ф12х140","Ток","Ст45"
`

func collect(t *testing.T, p *Parser) []Record {
	t.Helper()
	var out []Record
	for rec, err := range p.All() {
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestParser_WorkedExample(t *testing.T) {
	p, err := NewParser(strings.NewReader(naborka3), DefaultOptions())
	require.NoError(t, err)

	got := collect(t, p)
	want := []Record{
		{Line: 5, DesignationCode: "АСЦБ-000475", ProductGroup: "Наборка №3", Name: "Палец", Quantity: 1, OperationsRaw: "Ток,Фр", Material: "Ст3"},
		{Line: 6, DesignationCode: "АСЦБ-000459", ProductGroup: "Наборка №3", Name: "Болт осевой", Quantity: 5, Size: "S24х530", OperationsRaw: "Св,HRC", Material: "30ХГСА"},
		{Line: 7, DesignationCode: "АСЦБ-000461", ProductGroup: "Наборка №3", Name: "Ограничитель", Quantity: 4, Size: "ф12х140", OperationsRaw: "Ток", Material: "Ст45"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, Stats{Rows: 6, Records: 3, Groups: 1, Headers: 1}, p.Stats())
	assert.Empty(t, p.Skipped())

	_, err = p.Next()
	assert.ErrorIs(t, err, io.EOF, "parser is single pass")
}

func TestParser_SkipsBadRowsAndContinues(t *testing.T) {
	input := strings.Join([]string{
		`"","Наборка №1","","","","",""`,
		`"№","Обозначение","Наименование","Кол-во","Размер","Операции","Прим."`,
		`"1","","Без кода","1","","Ток",""`,
		`"2","К-2","Bad "quote" name","1","","Ток",""`,
		`"3","К-3","Втулка","много","","Фр",""`,
		`"4"`,
	}, "\n") + "\n"

	p, err := NewParser(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)

	got := collect(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, "К-3", got[0].DesignationCode)
	assert.Equal(t, 1, got[0].Quantity)

	skipped := p.Skipped()
	require.Len(t, skipped, 3)
	assert.Equal(t, []int{3, 4, 6}, []int{skipped[0].Line, skipped[1].Line, skipped[2].Line})
	assert.Contains(t, skipped[0].Reason, "missing designation")
	assert.Equal(t, 3, p.Stats().Skipped)
}

func TestParser_KeepsQuotesInsideValues(t *testing.T) {
	input := "Обозначение,Наименование,Размер\n\"'A'-1\",\"Гайка \"\"М12\"\"\",\"3/4\"\"\"\n"

	p, err := NewParser(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)

	got := collect(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, "'A'-1", got[0].DesignationCode)
	assert.Equal(t, `Гайка "М12"`, got[0].Name)
	assert.Equal(t, `3/4"`, got[0].Size)
}

func TestParser_BOMAndExcelFormulaCells(t *testing.T) {
	input := "\xEF\xBB\xBFОбозначение,Наименование,Кол-во\n\"=\"\"0042\"\"\",Шайба,\"=\"\"3\"\"\"\n"

	p, err := NewParser(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)

	got := collect(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, "0042", got[0].DesignationCode)
	assert.Equal(t, 3, got[0].Quantity)
}

func TestParser_Windows1251(t *testing.T) {
	utf8Text := "\"\",\"Узел 5\"\nОбозначение,Наименование,Операции\nУ5-01,Корпус,\"Ток,Фр\"\n"
	encoded, err := charmap.Windows1251.NewEncoder().String(utf8Text)
	require.NoError(t, err)

	p, err := NewParser(strings.NewReader(encoded), Options{Encoding: "windows-1251", GroupColumn: 1})
	require.NoError(t, err)

	got := collect(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, Record{
		Line: 3, DesignationCode: "У5-01", ProductGroup: "Узел 5", Name: "Корпус", Quantity: 1, OperationsRaw: "Ток,Фр",
	}, got[0])
}

func TestParser_InvalidUTF8RowSkipped(t *testing.T) {
	input := "Обозначение,Наименование\nA-1,\xff\xfe\nA-2,Вал\n"

	p, err := NewParser(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)

	got := collect(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, "A-2", got[0].DesignationCode)
	assert.Equal(t, 1, p.Stats().Skipped)
}

func TestParser_SemicolonDelimiter(t *testing.T) {
	input := "Обозначение;Наименование;Операции\nA-1;Вал;\"Ток, Фр\"\n"

	p, err := NewParser(strings.NewReader(input), Options{Comma: ';', GroupColumn: 1})
	require.NoError(t, err)

	got := collect(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, "Ток, Фр", got[0].OperationsRaw)
}

func TestParser_FatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		reader io.Reader
		want   error
	}{
		{"empty input", strings.NewReader(""), ErrEmptyFile},
		{"only blank cells", strings.NewReader("\"\",\"\"\n,,,\n"), ErrEmptyFile},
		{"no header", strings.NewReader("\"\",\"Наборка\"\n\"\",\"A-1\",\"Вал\"\n"), ErrNoHeader},
		{"read failure", iotest.ErrReader(errors.New("connection reset")), ErrMalformedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewParser(tt.reader, DefaultOptions())
			require.NoError(t, err)

			_, err = p.Next()
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrMalformedFile)

			_, again := p.Next()
			assert.Equal(t, err, again, "errors are sticky")
		})
	}
}

func TestParser_ReadFailureMidStream(t *testing.T) {
	r := io.MultiReader(
		strings.NewReader("Обозначение,Наименование\nA-1,Вал\n"),
		iotest.ErrReader(errors.New("disk gone")),
	)

	p, err := NewParser(r, DefaultOptions())
	require.NoError(t, err)

	var records int
	var last error
	for rec, err := range p.All() {
		if err != nil {
			last = err
			break
		}
		records++
		assert.Equal(t, "A-1", rec.DesignationCode)
	}
	assert.Equal(t, 1, records)
	assert.ErrorIs(t, last, ErrMalformedFile)
	assert.ErrorContains(t, last, "disk gone")
}

func TestNewParser_UnknownEncoding(t *testing.T) {
	_, err := NewParser(strings.NewReader(""), Options{Encoding: "klingon-8"})
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}
