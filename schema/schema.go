// Package schema has the data model, errors and constants shared by all parts of estateprep.
package schema

import (
	"fmt"
	"slices"
)

// Descriptor declares which raw fields feed which pipeline stage.
// The declared order of numeric and categorical features is the output column order.
type Descriptor struct {
	Numeric     []string `json:"numeric" mapstructure:"numeric" validate:"dive,required"`
	Categorical []string `json:"categorical" mapstructure:"categorical" validate:"dive,required"`
	Date        string   `json:"date" mapstructure:"date" validate:"required"`
}

// DefaultDescriptor returns the descriptor of the real-estate transaction dataset.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Numeric:     []string{"HouseAge", "DistanceToStation", "NumberOfPubs"},
		Categorical: []string{"PostCode"},
		Date:        "TransactionDate",
	}
}

// Check validates the descriptor itself: names are non-empty and no name is declared twice.
func (d Descriptor) Check() error {
	if d.Date == "" {
		return fmt.Errorf("descriptor: date feature is required")
	}
	seen := map[string]string{d.Date: "date"}
	declare := func(role string, names []string) error {
		for _, n := range names {
			if n == "" {
				return fmt.Errorf("descriptor: empty %s feature name", role)
			}
			if prev, ok := seen[n]; ok {
				return fmt.Errorf("descriptor: feature %q declared as both %s and %s", n, prev, role)
			}
			seen[n] = role
		}
		return nil
	}
	if err := declare("numeric", d.Numeric); err != nil {
		return err
	}
	return declare("categorical", d.Categorical)
}

// Validate confirms every named field is present in the record.
// It fails with a SchemaError naming the first absent field.
func (d Descriptor) Validate(r RawRecord) error {
	for _, n := range d.Names() {
		if !r.Has(n) {
			return NewSchemaError(n, "missing field")
		}
	}
	return nil
}

// Names returns all named fields: numeric, categorical, then date.
func (d Descriptor) Names() []string {
	names := make([]string, 0, len(d.Numeric)+len(d.Categorical)+1)
	names = append(names, d.Numeric...)
	names = append(names, d.Categorical...)
	return append(names, d.Date)
}

// Engineered reports whether a field is handled by a pipeline stage rather than passed through.
func (d Descriptor) Engineered(name string) bool {
	return name == d.Date || slices.Contains(d.Numeric, name) || slices.Contains(d.Categorical, name)
}

// Equal reports whether two descriptors declare the same fields in the same order.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.Date == o.Date && slices.Equal(d.Numeric, o.Numeric) && slices.Equal(d.Categorical, o.Categorical)
}
