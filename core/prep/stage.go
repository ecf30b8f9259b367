// Package prep implements the feature preprocessing pipeline: numeric imputation and
// scaling, categorical indicator encoding, date decomposition and column assembly.
//
// Every stage is fitted at most once. After fit a stage is read-only, so a fitted
// Preprocessor can be shared by any number of concurrent Transform calls.
package prep

import "github.com/huangsam/estateprep/schema"

// Block is the output of one stage for a batch: one row per record, all rows
// aligned with Columns.
type Block struct {
	Columns []string
	Rows    [][]float64
}

// fitter learns state from a training batch. The assembler is a fitter but not a
// Stage, since it combines stage blocks instead of producing one.
type fitter interface {
	Fit(batch []schema.RawRecord) error
}

// Stage is the capability every pipeline stage provides.
type Stage interface {
	fitter

	// Transform derives the stage's block from a batch using fitted state.
	Transform(batch []schema.RawRecord) (Block, error)

	// Columns returns the names of the columns the stage produces.
	Columns() []string
}

var (
	_ Stage = &NumericPipeline{}    // Compile-time check
	_ Stage = &CategoricalEncoder{} // Compile-time check
	_ Stage = &DateDecomposer{}     // Compile-time check

	_ fitter = &FeatureAssembler{} // Compile-time check
)

// newRows allocates n rows of width w backed by a single slice.
func newRows(n, w int) [][]float64 {
	backing := make([]float64, n*w)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = backing[i*w : (i+1)*w : (i+1)*w]
	}
	return rows
}
