package prep

import (
	"maps"
	"slices"

	"github.com/huangsam/estateprep/schema"
)

// CategoricalEncoder turns categorical codes into indicator columns over a fixed fit vocabulary.
// A value never seen at fit time yields an all-zero block.
type CategoricalEncoder struct {
	features []string
	vocab    []schema.Vocabulary
	fitted   bool
}

// NewCategoricalEncoder creates an unfitted encoder for the given features, in output order.
func NewCategoricalEncoder(features []string) *CategoricalEncoder {
	return &CategoricalEncoder{features: slices.Clone(features)}
}

// encoderFromVocabulary restores a fitted encoder from persisted vocabularies.
func encoderFromVocabulary(vocab []schema.Vocabulary) *CategoricalEncoder {
	e := &CategoricalEncoder{
		features: make([]string, len(vocab)),
		vocab:    make([]schema.Vocabulary, len(vocab)),
		fitted:   true,
	}
	for i, v := range vocab {
		e.features[i] = v.Name
		e.vocab[i] = schema.Vocabulary{Name: v.Name, Values: slices.Clone(v.Values)}
	}
	return e
}

// Fit collects the distinct values of each feature and sorts them lexically.
func (e *CategoricalEncoder) Fit(batch []schema.RawRecord) error {
	if e.fitted {
		return schema.ErrAlreadyFitted
	}
	if len(batch) == 0 {
		return schema.ErrEmptyBatch
	}

	seen := make([]map[string]struct{}, len(e.features))
	for j := range e.features {
		seen[j] = make(map[string]struct{})
	}
	for i, rec := range batch {
		for j, name := range e.features {
			code, err := categoricalValue(rec, name)
			if err != nil {
				return schema.AtRecord(err, i)
			}
			seen[j][code] = struct{}{}
		}
	}

	vocab := make([]schema.Vocabulary, len(e.features))
	for j, name := range e.features {
		vocab[j] = schema.Vocabulary{Name: name, Values: slices.Sorted(maps.Keys(seen[j]))}
	}
	e.vocab = vocab
	e.fitted = true
	return nil
}

// Transform emits one indicator block per feature for every record.
func (e *CategoricalEncoder) Transform(batch []schema.RawRecord) (Block, error) {
	return e.transform(batch, nil)
}

func (e *CategoricalEncoder) transform(batch []schema.RawRecord, report *schema.TransformReport) (Block, error) {
	if !e.fitted {
		return Block{}, schema.ErrNotFitted
	}
	rows := newRows(len(batch), e.width())
	for i, rec := range batch {
		offset := 0
		for _, v := range e.vocab {
			code, err := categoricalValue(rec, v.Name)
			if err != nil {
				return Block{}, schema.AtRecord(err, i)
			}
			if idx, ok := v.Index(code); ok {
				rows[i][offset+idx] = 1
			} else if report != nil {
				countInto(&report.Unseen, v.Name)
			}
			offset += len(v.Values)
		}
	}
	return Block{Columns: e.Columns(), Rows: rows}, nil
}

// Columns returns the indicator column names, or nil before fit.
func (e *CategoricalEncoder) Columns() []string {
	if !e.fitted {
		return nil
	}
	cols := make([]string, 0, e.width())
	for _, v := range e.vocab {
		for _, val := range v.Values {
			cols = append(cols, v.ColumnName(val))
		}
	}
	return cols
}

// Vocabulary returns the fitted vocabularies, or nil before fit.
func (e *CategoricalEncoder) Vocabulary() []schema.Vocabulary {
	if !e.fitted {
		return nil
	}
	out := make([]schema.Vocabulary, len(e.vocab))
	for i, v := range e.vocab {
		out[i] = schema.Vocabulary{Name: v.Name, Values: slices.Clone(v.Values)}
	}
	return out
}

func (e *CategoricalEncoder) width() int {
	n := 0
	for _, v := range e.vocab {
		n += len(v.Values)
	}
	return n
}

// categoricalValue reads a categorical code from a record field.
func categoricalValue(rec schema.RawRecord, name string) (string, error) {
	v, ok := rec.Get(name)
	if !ok {
		return "", schema.NewSchemaError(name, "missing field")
	}
	code, ok := v.Text()
	if !ok {
		return "", schema.NewSchemaError(name, "null categorical value")
	}
	return code, nil
}
