package prep

import (
	"fmt"
	"slices"

	"github.com/huangsam/estateprep/schema"
)

// FeatureAssembler concatenates stage outputs in the fixed column order:
// passthrough fields, numeric block, categorical blocks, then Year and Month.
type FeatureAssembler struct {
	desc        schema.Descriptor
	passthrough []string
	fitted      bool
}

// NewFeatureAssembler creates an unfitted assembler for a descriptor.
func NewFeatureAssembler(desc schema.Descriptor) *FeatureAssembler {
	return &FeatureAssembler{desc: desc}
}

// assemblerFromState restores a fitted assembler with known passthrough columns.
func assemblerFromState(desc schema.Descriptor, passthrough []string) *FeatureAssembler {
	return &FeatureAssembler{desc: desc, passthrough: slices.Clone(passthrough), fitted: true}
}

// Fit captures the passthrough columns from the first record's field order.
// Every other training record must carry the same passthrough fields, and every
// passthrough value must be a finite number.
func (a *FeatureAssembler) Fit(batch []schema.RawRecord) error {
	if a.fitted {
		return schema.ErrAlreadyFitted
	}
	if len(batch) == 0 {
		return schema.ErrEmptyBatch
	}

	names := a.extraFields(batch[0])
	for _, n := range names {
		if n == schema.YearColumn || n == schema.MonthColumn {
			return schema.AtRecord(schema.NewSchemaError(n, "passthrough field collides with a date output column"), 0)
		}
	}
	for i, rec := range batch[1:] {
		other := a.extraFields(rec)
		for _, n := range names {
			if !slices.Contains(other, n) {
				return schema.AtRecord(schema.NewSchemaError(n, "missing passthrough field"), i+1)
			}
		}
		for _, n := range other {
			if !slices.Contains(names, n) {
				return schema.AtRecord(schema.NewSchemaError(n, "passthrough field absent from first training record"), i+1)
			}
		}
	}
	for i, rec := range batch {
		for _, n := range names {
			if err := passthroughValue(rec, n); err != nil {
				return schema.AtRecord(err, i)
			}
		}
	}
	a.passthrough = names
	a.fitted = true
	return nil
}

// Passthrough returns the passthrough column names captured at fit.
func (a *FeatureAssembler) Passthrough() []string {
	return slices.Clone(a.passthrough)
}

// Columns returns the full output layout for the given stage column lists.
func (a *FeatureAssembler) Columns(numeric, categorical, date []string) []string {
	cols := make([]string, 0, len(a.passthrough)+len(numeric)+len(categorical)+len(date))
	cols = append(cols, a.passthrough...)
	cols = append(cols, numeric...)
	cols = append(cols, categorical...)
	return append(cols, date...)
}

// Assemble builds one output row from a record and its stage rows.
func (a *FeatureAssembler) Assemble(rec schema.RawRecord, numeric, categorical, date []float64) ([]float64, error) {
	if !a.fitted {
		return nil, schema.ErrNotFitted
	}
	if len(date) != 2 {
		return nil, fmt.Errorf("assemble: date block has %d values, want 2", len(date))
	}
	row := make([]float64, 0, len(a.passthrough)+len(numeric)+len(categorical)+len(date))
	for _, name := range a.passthrough {
		v, ok := rec.Get(name)
		if !ok {
			return nil, schema.NewSchemaError(name, "missing passthrough field")
		}
		f, missing, err := v.Float()
		if err != nil || missing {
			return nil, notNumeric(name, v)
		}
		row = append(row, f)
	}
	row = append(row, numeric...)
	row = append(row, categorical...)
	return append(row, date...), nil
}

// extraFields lists the record's fields that no stage consumes, in record order.
func (a *FeatureAssembler) extraFields(rec schema.RawRecord) []string {
	var names []string
	for _, n := range rec.Names() {
		if !a.desc.Engineered(n) {
			names = append(names, n)
		}
	}
	return names
}

// passthroughValue checks that a record's passthrough field holds a present, finite number.
func passthroughValue(rec schema.RawRecord, name string) error {
	v, ok := rec.Get(name)
	if !ok {
		return schema.NewSchemaError(name, "missing passthrough field")
	}
	if _, missing, err := v.Float(); err != nil || missing {
		return notNumeric(name, v)
	}
	return nil
}

func notNumeric(name string, v schema.Value) error {
	return schema.NewSchemaError(name, fmt.Sprintf("passthrough value %s is not numeric", v))
}
