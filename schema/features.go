package schema

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"
)

// NumericStats holds the fitted imputation and scaling parameters of one numeric feature.
type NumericStats struct {
	Name       string  `json:"name"`
	ImputeMean float64 `json:"impute_mean"` // Mean over observed fit values
	ScaleMean  float64 `json:"scale_mean"`  // Mean after imputation
	ScaleStd   float64 `json:"scale_std"`   // Population standard deviation after imputation, 0 for a constant column
	Observed   int     `json:"observed"`    // Number of non-missing fit values
}

// Vocabulary is the fitted, lexically sorted set of values of one categorical feature.
// The position of a value is its indicator column index.
type Vocabulary struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Index returns the column index of value, or false when it was never seen at fit time.
func (v Vocabulary) Index(value string) (int, bool) {
	i := sort.SearchStrings(v.Values, value)
	if i < len(v.Values) && v.Values[i] == value {
		return i, true
	}
	return 0, false
}

// ColumnName returns the indicator column name for a vocabulary value.
func (v Vocabulary) ColumnName(value string) string {
	return v.Name + "_" + value
}

// Column is a named output column and the stage that produces it.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// FittedState is everything fit learns. It is never mutated after fit.
type FittedState struct {
	Version     int            `json:"version"`
	Descriptor  Descriptor     `json:"descriptor"`
	Passthrough []string       `json:"passthrough"`
	Numeric     []NumericStats `json:"numeric"`
	Categorical []Vocabulary   `json:"categorical"`
	Records     int            `json:"records"`
	FittedAt    time.Time      `json:"fitted_at"`
}

// Columns returns the output columns in assembly order:
// passthrough, numeric, categorical indicators, then Year and Month.
func (s *FittedState) Columns() []Column {
	cols := make([]Column, 0, s.Width())
	for _, n := range s.Passthrough {
		cols = append(cols, Column{Name: n, Kind: PassthroughColumn})
	}
	for _, ns := range s.Numeric {
		cols = append(cols, Column{Name: ns.Name, Kind: NumericColumn})
	}
	for _, v := range s.Categorical {
		for _, val := range v.Values {
			cols = append(cols, Column{Name: v.ColumnName(val), Kind: CategoricalColumn})
		}
	}
	return append(cols, Column{Name: YearColumn, Kind: DateColumn}, Column{Name: MonthColumn, Kind: DateColumn})
}

// ColumnNames returns the output column names in assembly order.
func (s *FittedState) ColumnNames() []string {
	cols := s.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Width returns the number of output columns.
func (s *FittedState) Width() int {
	n := len(s.Passthrough) + len(s.Numeric) + 2
	for _, v := range s.Categorical {
		n += len(v.Values)
	}
	return n
}

// CheckAgainst verifies that a state (usually loaded from a store) is usable with a descriptor.
func (s *FittedState) CheckAgainst(d Descriptor) error {
	if s.Version != StateFormatVersion {
		return fmt.Errorf("fitted state: unsupported format version %d (want %d)", s.Version, StateFormatVersion)
	}
	if !s.Descriptor.Equal(d) {
		return fmt.Errorf("fitted state: descriptor mismatch: state was fitted with %+v", s.Descriptor)
	}
	if len(s.Numeric) != len(d.Numeric) {
		return fmt.Errorf("fitted state: %d numeric statistics for %d numeric features", len(s.Numeric), len(d.Numeric))
	}
	for i, ns := range s.Numeric {
		if ns.Name != d.Numeric[i] {
			return fmt.Errorf("fitted state: numeric statistics %d is for %q, want %q", i, ns.Name, d.Numeric[i])
		}
		if !Finite(ns.ImputeMean, ns.ScaleMean, ns.ScaleStd) || ns.ScaleStd < 0 {
			return fmt.Errorf("fitted state: invalid statistics for %q", ns.Name)
		}
	}
	if len(s.Categorical) != len(d.Categorical) {
		return fmt.Errorf("fitted state: %d vocabularies for %d categorical features", len(s.Categorical), len(d.Categorical))
	}
	for i, v := range s.Categorical {
		if v.Name != d.Categorical[i] {
			return fmt.Errorf("fitted state: vocabulary %d is for %q, want %q", i, v.Name, d.Categorical[i])
		}
		for j := 1; j < len(v.Values); j++ {
			if v.Values[j-1] >= v.Values[j] {
				return fmt.Errorf("fitted state: vocabulary %q is not strictly sorted", v.Name)
			}
		}
	}
	for _, p := range s.Passthrough {
		if d.Engineered(p) {
			return fmt.Errorf("fitted state: passthrough column %q is a declared feature", p)
		}
	}
	if err := s.CheckColumns(); err != nil {
		return fmt.Errorf("fitted state: %w", err)
	}
	return nil
}

// CheckColumns verifies that every output column name is unique, so a passthrough
// field cannot shadow a numeric, indicator or date column.
func (s *FittedState) CheckColumns() error {
	seen := make(map[string]struct{}, s.Width())
	for _, n := range s.ColumnNames() {
		if _, dup := seen[n]; dup {
			return NewSchemaError(n, "passthrough field collides with a generated output column")
		}
		seen[n] = struct{}{}
	}
	return nil
}

// Finite reports whether every value is neither NaN nor infinite.
func Finite(fs ...float64) bool {
	for _, f := range fs {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// FeatureVector is one model-ready row with its column names.
type FeatureVector struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

// FeatureMatrix holds one row per input record, in input order.
// Columns is shared by all rows and must be treated as read-only.
type FeatureMatrix struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Len returns the number of rows.
func (m FeatureMatrix) Len() int { return len(m.Rows) }

// Vector returns row i as a FeatureVector.
func (m FeatureMatrix) Vector(i int) FeatureVector {
	return FeatureVector{Columns: m.Columns, Values: slices.Clone(m.Rows[i])}
}

// TransformReport counts the sanctioned silent recoveries of one transform call.
type TransformReport struct {
	Records int            `json:"records"`
	Imputed map[string]int `json:"imputed,omitempty"` // Missing numeric values replaced by the fit mean
	Unseen  map[string]int `json:"unseen,omitempty"`  // Categorical values never seen at fit time
}
