package prep

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/huangsam/estateprep/schema"
)

// Preprocessor is the fit-once, transform-many facade over the pipeline stages.
// The fitted pipeline is published atomically; Transform never locks.
type Preprocessor struct {
	desc     schema.Descriptor
	pipeline atomic.Pointer[pipeline]
}

// pipeline is the immutable fitted form of a Preprocessor.
type pipeline struct {
	state       *schema.FittedState
	numeric     *NumericPipeline
	categorical *CategoricalEncoder
	date        *DateDecomposer
	assembler   *FeatureAssembler
	columns     []string
}

// New creates an unfitted Preprocessor after checking the descriptor.
func New(desc schema.Descriptor) (*Preprocessor, error) {
	if err := desc.Check(); err != nil {
		return nil, err
	}
	return &Preprocessor{desc: cloneDescriptor(desc)}, nil
}

// NewFromState rebuilds a fitted Preprocessor from a persisted state.
// The state must have been fitted with an equal descriptor.
func NewFromState(desc schema.Descriptor, state *schema.FittedState) (*Preprocessor, error) {
	p, err := New(desc)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("fitted state is nil")
	}
	if err := state.CheckAgainst(p.desc); err != nil {
		return nil, err
	}
	st := cloneState(state)
	p.pipeline.Store(newPipeline(st,
		numericFromStats(st.Numeric),
		encoderFromVocabulary(st.Categorical),
		NewDateDecomposer(p.desc.Date),
		assemblerFromState(p.desc, st.Passthrough),
	))
	return p, nil
}

func newPipeline(st *schema.FittedState, num *NumericPipeline, cat *CategoricalEncoder, date *DateDecomposer, asm *FeatureAssembler) *pipeline {
	return &pipeline{
		state:       st,
		numeric:     num,
		categorical: cat,
		date:        date,
		assembler:   asm,
		columns:     asm.Columns(num.Columns(), cat.Columns(), date.Columns()),
	}
}

// Descriptor returns the descriptor the Preprocessor was built with.
func (p *Preprocessor) Descriptor() schema.Descriptor {
	return cloneDescriptor(p.desc)
}

// Fitted reports whether Fit has completed.
func (p *Preprocessor) Fitted() bool {
	return p.pipeline.Load() != nil
}

// Fit learns numeric statistics, categorical vocabularies and passthrough columns from a training batch.
// It may succeed only once per Preprocessor.
func (p *Preprocessor) Fit(batch []schema.RawRecord) error {
	if p.Fitted() {
		return schema.ErrAlreadyFitted
	}
	if len(batch) == 0 {
		return schema.ErrEmptyBatch
	}
	for i, rec := range batch {
		if err := p.desc.Validate(rec); err != nil {
			return schema.AtRecord(err, i)
		}
	}

	num := NewNumericPipeline(p.desc.Numeric)
	cat := NewCategoricalEncoder(p.desc.Categorical)
	date := NewDateDecomposer(p.desc.Date)
	asm := NewFeatureAssembler(p.desc)
	for _, stage := range []fitter{asm, date, num, cat} {
		if err := stage.Fit(batch); err != nil {
			return err
		}
	}

	st := &schema.FittedState{
		Version:     schema.StateFormatVersion,
		Descriptor:  cloneDescriptor(p.desc),
		Passthrough: asm.Passthrough(),
		Numeric:     num.Stats(),
		Categorical: cat.Vocabulary(),
		Records:     len(batch),
		FittedAt:    time.Now().UTC(),
	}
	if err := st.CheckColumns(); err != nil {
		return err
	}
	if !p.pipeline.CompareAndSwap(nil, newPipeline(st, num, cat, date, asm)) {
		return schema.ErrAlreadyFitted
	}
	return nil
}

// FitTransform fits on the batch and returns its feature matrix, the matrix a model is trained on.
func (p *Preprocessor) FitTransform(batch []schema.RawRecord) (schema.FeatureMatrix, error) {
	if err := p.Fit(batch); err != nil {
		return schema.FeatureMatrix{}, err
	}
	return p.Transform(batch)
}

// Transform produces one feature row per record, in input order.
func (p *Preprocessor) Transform(batch []schema.RawRecord) (schema.FeatureMatrix, error) {
	m, _, err := p.TransformWithReport(batch)
	return m, err
}

// TransformWithReport is Transform that also counts imputed values and unseen categories.
func (p *Preprocessor) TransformWithReport(batch []schema.RawRecord) (schema.FeatureMatrix, schema.TransformReport, error) {
	report := schema.TransformReport{Records: len(batch)}
	pl := p.pipeline.Load()
	if pl == nil {
		return schema.FeatureMatrix{}, report, schema.ErrNotFitted
	}
	for i, rec := range batch {
		if err := p.desc.Validate(rec); err != nil {
			return schema.FeatureMatrix{}, report, schema.AtRecord(err, i)
		}
	}

	dateBlock, err := pl.date.Transform(batch)
	if err != nil {
		return schema.FeatureMatrix{}, report, err
	}
	numBlock, err := pl.numeric.transform(batch, &report)
	if err != nil {
		return schema.FeatureMatrix{}, report, err
	}
	catBlock, err := pl.categorical.transform(batch, &report)
	if err != nil {
		return schema.FeatureMatrix{}, report, err
	}

	rows := make([][]float64, len(batch))
	for i, rec := range batch {
		row, err := pl.assembler.Assemble(rec, numBlock.Rows[i], catBlock.Rows[i], dateBlock.Rows[i])
		if err != nil {
			return schema.FeatureMatrix{}, report, schema.AtRecord(err, i)
		}
		rows[i] = row
	}
	return schema.FeatureMatrix{Columns: slices.Clone(pl.columns), Rows: rows}, report, nil
}

// Columns returns the output column names.
func (p *Preprocessor) Columns() ([]string, error) {
	pl := p.pipeline.Load()
	if pl == nil {
		return nil, schema.ErrNotFitted
	}
	return slices.Clone(pl.columns), nil
}

// State returns a copy of the fitted state.
func (p *Preprocessor) State() (*schema.FittedState, error) {
	pl := p.pipeline.Load()
	if pl == nil {
		return nil, schema.ErrNotFitted
	}
	return cloneState(pl.state), nil
}

func cloneDescriptor(d schema.Descriptor) schema.Descriptor {
	return schema.Descriptor{
		Numeric:     slices.Clone(d.Numeric),
		Categorical: slices.Clone(d.Categorical),
		Date:        d.Date,
	}
}

func cloneState(s *schema.FittedState) *schema.FittedState {
	c := *s
	c.Descriptor = cloneDescriptor(s.Descriptor)
	c.Passthrough = slices.Clone(s.Passthrough)
	c.Numeric = slices.Clone(s.Numeric)
	c.Categorical = make([]schema.Vocabulary, len(s.Categorical))
	for i, v := range s.Categorical {
		c.Categorical[i] = schema.Vocabulary{Name: v.Name, Values: slices.Clone(v.Values)}
	}
	return &c
}
