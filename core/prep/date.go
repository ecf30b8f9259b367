package prep

import (
	"regexp"
	"strconv"

	"github.com/huangsam/estateprep/schema"
)

// datePattern is the only accepted date layout: four digit year, a dot, two digit month.
var datePattern = regexp.MustCompile(`^(\d{4})\.(\d{2})$`)

// DateDecomposer splits the date feature into Year and Month columns.
// It learns nothing at fit time.
type DateDecomposer struct {
	field string
}

// NewDateDecomposer creates a decomposer for the named date field.
func NewDateDecomposer(field string) *DateDecomposer {
	return &DateDecomposer{field: field}
}

// Decompose parses the record's date field as "YYYY.MM".
func (d *DateDecomposer) Decompose(rec schema.RawRecord) (year, month int, err error) {
	v, ok := rec.Get(d.field)
	if !ok {
		return 0, 0, schema.NewSchemaError(d.field, "missing field")
	}
	if v.Kind() != schema.StringValue {
		return 0, 0, schema.NewMalformedDateError(d.field, v.String())
	}
	return ParseYearMonth(d.field, v.String())
}

// ParseYearMonth parses s as "YYYY.MM" with a month between 01 and 12.
func ParseYearMonth(field, s string) (year, month int, err error) {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, schema.NewMalformedDateError(field, s)
	}
	year, _ = strconv.Atoi(m[1])
	month, _ = strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return 0, 0, schema.NewMalformedDateError(field, s)
	}
	return year, month, nil
}

// Fit checks that every training record carries a well-formed date.
func (d *DateDecomposer) Fit(batch []schema.RawRecord) error {
	if len(batch) == 0 {
		return schema.ErrEmptyBatch
	}
	for i, rec := range batch {
		if _, _, err := d.Decompose(rec); err != nil {
			return schema.AtRecord(err, i)
		}
	}
	return nil
}

// Transform emits the Year and Month block for the batch.
func (d *DateDecomposer) Transform(batch []schema.RawRecord) (Block, error) {
	rows := newRows(len(batch), 2)
	for i, rec := range batch {
		year, month, err := d.Decompose(rec)
		if err != nil {
			return Block{}, schema.AtRecord(err, i)
		}
		rows[i][0] = float64(year)
		rows[i][1] = float64(month)
	}
	return Block{Columns: d.Columns(), Rows: rows}, nil
}

// Columns returns Year and Month.
func (d *DateDecomposer) Columns() []string {
	return []string{schema.YearColumn, schema.MonthColumn}
}
