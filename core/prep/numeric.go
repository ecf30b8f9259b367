package prep

import (
	"math"
	"slices"

	"github.com/huangsam/estateprep/schema"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NumericPipeline imputes missing numeric values with the fit mean and standardizes them.
type NumericPipeline struct {
	features []string
	stats    []schema.NumericStats
	fitted   bool
}

// NewNumericPipeline creates an unfitted pipeline for the given features, in output order.
func NewNumericPipeline(features []string) *NumericPipeline {
	return &NumericPipeline{features: slices.Clone(features)}
}

// numericFromStats restores a fitted pipeline from persisted statistics.
func numericFromStats(stats []schema.NumericStats) *NumericPipeline {
	p := &NumericPipeline{
		features: make([]string, len(stats)),
		stats:    slices.Clone(stats),
		fitted:   true,
	}
	for i, s := range stats {
		p.features[i] = s.Name
	}
	return p
}

// Fit computes per feature the mean of the observed values (the imputation value) and
// the mean and population standard deviation of the column after imputation.
func (p *NumericPipeline) Fit(batch []schema.RawRecord) error {
	if p.fitted {
		return schema.ErrAlreadyFitted
	}
	if len(batch) == 0 {
		return schema.ErrEmptyBatch
	}

	columns := make([][]float64, len(p.features))
	missing := make([][]bool, len(p.features))
	for j := range p.features {
		columns[j] = make([]float64, len(batch))
		missing[j] = make([]bool, len(batch))
	}
	for i, rec := range batch {
		for j, name := range p.features {
			f, miss, err := numericValue(rec, name)
			if err != nil {
				return schema.AtRecord(err, i)
			}
			columns[j][i] = f
			missing[j][i] = miss
		}
	}

	stats := make([]schema.NumericStats, len(p.features))
	for j, name := range p.features {
		observed := make([]float64, 0, len(batch))
		for i, f := range columns[j] {
			if !missing[j][i] {
				observed = append(observed, f)
			}
		}
		if len(observed) == 0 {
			return schema.NewSchemaError(name, "no observed values in training batch")
		}

		imputeMean := stat.Mean(observed, nil)
		for i := range columns[j] {
			if missing[j][i] {
				columns[j][i] = imputeMean
			}
		}

		mean, variance := stat.PopMeanVariance(columns[j], nil)
		std := math.Sqrt(variance)
		if floats.Min(columns[j]) == floats.Max(columns[j]) {
			std = 0
		}
		if !schema.Finite(imputeMean, mean, std) {
			return schema.NewSchemaError(name, "statistics overflow the float64 range")
		}
		stats[j] = schema.NumericStats{
			Name:       name,
			ImputeMean: imputeMean,
			ScaleMean:  mean,
			ScaleStd:   std,
			Observed:   len(observed),
		}
	}
	p.stats = stats
	p.fitted = true
	return nil
}

// Transform imputes and standardizes every numeric feature of the batch.
func (p *NumericPipeline) Transform(batch []schema.RawRecord) (Block, error) {
	return p.transform(batch, nil)
}

func (p *NumericPipeline) transform(batch []schema.RawRecord, report *schema.TransformReport) (Block, error) {
	if !p.fitted {
		return Block{}, schema.ErrNotFitted
	}
	rows := newRows(len(batch), len(p.stats))
	for i, rec := range batch {
		for j, s := range p.stats {
			f, miss, err := numericValue(rec, s.Name)
			if err != nil {
				return Block{}, schema.AtRecord(err, i)
			}
			if miss {
				f = s.ImputeMean
				if report != nil {
					countInto(&report.Imputed, s.Name)
				}
			}
			rows[i][j] = scale(f, s)
		}
	}
	return Block{Columns: p.Columns(), Rows: rows}, nil
}

// Columns returns the numeric feature names in output order.
func (p *NumericPipeline) Columns() []string {
	return slices.Clone(p.features)
}

// Stats returns the fitted statistics, or nil before fit.
func (p *NumericPipeline) Stats() []schema.NumericStats {
	return slices.Clone(p.stats)
}

// scale standardizes f. A constant column yields 0.
func scale(f float64, s schema.NumericStats) float64 {
	if s.ScaleStd == 0 {
		return 0
	}
	return (f - s.ScaleMean) / s.ScaleStd
}

// numericValue reads a nullable number from a record field.
func numericValue(rec schema.RawRecord, name string) (f float64, missing bool, err error) {
	v, ok := rec.Get(name)
	if !ok {
		return 0, false, schema.NewSchemaError(name, "missing field")
	}
	f, missing, err = v.Float()
	if err != nil {
		return 0, false, schema.NewSchemaError(name, err.Error())
	}
	return f, missing, nil
}

func countInto(m *map[string]int, key string) {
	if *m == nil {
		*m = make(map[string]int)
	}
	(*m)[key]++
}
