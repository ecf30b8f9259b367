package prep

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/huangsam/estateprep/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var houseDesc = schema.Descriptor{
	Numeric:     []string{"HouseAge"},
	Categorical: []string{"PostCode"},
	Date:        "TransactionDate",
}

func houseTraining(t *testing.T) []schema.RawRecord {
	return []schema.RawRecord{
		rec(t, "HouseAge", 5.0, "PostCode", "A1", "TransactionDate", "2013.10"),
		rec(t, "HouseAge", 15.0, "PostCode", "A2", "TransactionDate", "2013.11"),
		rec(t, "HouseAge", nil, "PostCode", "A1", "TransactionDate", "2014.01"),
	}
}

func fittedHouse(t *testing.T) *Preprocessor {
	t.Helper()
	p, err := New(houseDesc)
	require.NoError(t, err)
	require.NoError(t, p.Fit(houseTraining(t)))
	return p
}

func TestPreprocessorEndToEnd(t *testing.T) {
	p := fittedHouse(t)

	state, err := p.State()
	require.NoError(t, err)
	assert.Equal(t, 10.0, state.Numeric[0].ImputeMean)
	assert.Equal(t, 10.0, state.Numeric[0].ScaleMean)
	assert.InDelta(t, math.Sqrt(50.0/3.0), state.Numeric[0].ScaleStd, 1e-12)
	assert.Equal(t, []string{"A1", "A2"}, state.Categorical[0].Values)
	assert.Equal(t, 3, state.Records)

	m, err := p.Transform([]schema.RawRecord{
		rec(t, "HouseAge", 15.0, "PostCode", "B9", "TransactionDate", "2020.06"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"HouseAge", "PostCode_A1", "PostCode_A2", "Year", "Month"}, m.Columns)
	require.Equal(t, 1, m.Len())

	row := m.Rows[0]
	assert.InDelta(t, 5.0/math.Sqrt(50.0/3.0), row[0], 1e-12)
	assert.Equal(t, []float64{0, 0, 2020, 6}, row[1:])
}

func TestPreprocessorLifecycle(t *testing.T) {
	p, err := New(houseDesc)
	require.NoError(t, err)
	assert.False(t, p.Fitted())

	_, err = p.Transform(houseTraining(t))
	assert.ErrorIs(t, err, schema.ErrNotFitted)
	_, err = p.Columns()
	assert.ErrorIs(t, err, schema.ErrNotFitted)
	_, err = p.State()
	assert.ErrorIs(t, err, schema.ErrNotFitted)

	assert.ErrorIs(t, p.Fit(nil), schema.ErrEmptyBatch)
	assert.False(t, p.Fitted(), "a failed fit leaves the preprocessor unfitted")

	require.NoError(t, p.Fit(houseTraining(t)))
	assert.True(t, p.Fitted())

	before, err := p.State()
	require.NoError(t, err)
	err = p.Fit([]schema.RawRecord{rec(t, "HouseAge", 100.0, "PostCode", "Z", "TransactionDate", "2000.01")})
	assert.ErrorIs(t, err, schema.ErrAlreadyFitted)
	after, err := p.State()
	require.NoError(t, err)
	assert.Equal(t, before, after, "a rejected re-fit must not touch the state")
}

func TestPreprocessorFailedFitCanRetry(t *testing.T) {
	p, err := New(houseDesc)
	require.NoError(t, err)

	bad := houseTraining(t)
	bad[1] = rec(t, "HouseAge", 15.0, "PostCode", "A2", "TransactionDate", "2013-11")
	err = p.Fit(bad)
	var de *schema.MalformedDateError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Record)

	require.NoError(t, p.Fit(houseTraining(t)))
}

func TestPreprocessorFitRejectsTextPassthrough(t *testing.T) {
	p, err := New(houseDesc)
	require.NoError(t, err)

	batch := []schema.RawRecord{
		rec(t, "ID", 0, "HouseAge", 5.0, "PostCode", "A1", "TransactionDate", "2013.10"),
		rec(t, "ID", 1, "HouseAge", 15.0, "PostCode", "A1", "TransactionDate", "2013.11"),
		rec(t, "ID", "abc", "HouseAge", nil, "PostCode", "A1", "TransactionDate", "2014.01"),
	}
	err = p.Fit(batch)
	var se *schema.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ID", se.Field)
	assert.Equal(t, 2, se.Record)
	assert.False(t, p.Fitted())

	batch[2] = rec(t, "ID", 2, "HouseAge", nil, "PostCode", "A1", "TransactionDate", "2014.01")
	m, err := p.FitTransform(batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "HouseAge", "PostCode_A1", "Year", "Month"}, m.Columns)
}

func TestPreprocessorFitRejectsColumnCollision(t *testing.T) {
	p, err := New(houseDesc)
	require.NoError(t, err)

	err = p.Fit([]schema.RawRecord{
		rec(t, "PostCode_A2", 1, "HouseAge", 5.0, "PostCode", "A1", "TransactionDate", "2013.10"),
		rec(t, "PostCode_A2", 2, "HouseAge", 15.0, "PostCode", "A2", "TransactionDate", "2013.11"),
	})
	var se *schema.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "PostCode_A2", se.Field)
	assert.Contains(t, se.Reason, "collides")
	assert.False(t, p.Fitted())
}

func TestNewRejectsBadDescriptor(t *testing.T) {
	_, err := New(schema.Descriptor{Numeric: []string{"a", "a"}, Date: "d"})
	assert.Error(t, err)
}

func TestPreprocessorSchemaErrors(t *testing.T) {
	p := fittedHouse(t)

	tests := []struct {
		name  string
		rec   schema.RawRecord
		field string
	}{
		{"missing numeric", rec(t, "PostCode", "A1", "TransactionDate", "2013.10"), "HouseAge"},
		{"missing categorical", rec(t, "HouseAge", 1.0, "TransactionDate", "2013.10"), "PostCode"},
		{"missing date", rec(t, "HouseAge", 1.0, "PostCode", "A1"), "TransactionDate"},
		{"unparsable numeric", rec(t, "HouseAge", "old", "PostCode", "A1", "TransactionDate", "2013.10"), "HouseAge"},
		{"null categorical", rec(t, "HouseAge", 1.0, "PostCode", nil, "TransactionDate", "2013.10"), "PostCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			good := rec(t, "HouseAge", 1.0, "PostCode", "A1", "TransactionDate", "2013.10")
			_, err := p.Transform([]schema.RawRecord{good, tt.rec})
			var se *schema.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
			assert.Equal(t, 1, se.Record)
		})
	}

	_, err := p.Transform([]schema.RawRecord{rec(t, "HouseAge", 1.0, "PostCode", "A1", "TransactionDate", "2013/10")})
	var de *schema.MalformedDateError
	assert.ErrorAs(t, err, &de)
}

func TestPreprocessorSchemaStability(t *testing.T) {
	p := fittedHouse(t)

	a, err := p.Transform([]schema.RawRecord{
		rec(t, "HouseAge", 1.0, "PostCode", "A2", "TransactionDate", "2013.10"),
	})
	require.NoError(t, err)
	b, err := p.Transform([]schema.RawRecord{
		rec(t, "HouseAge", nil, "PostCode", "Q7", "TransactionDate", "1999.12", "Noise", "x"),
		rec(t, "TransactionDate", "2001.02", "PostCode", "A1", "HouseAge", "3"),
	})
	require.NoError(t, err)

	assert.Equal(t, a.Columns, b.Columns)
	for _, row := range append(a.Rows, b.Rows...) {
		assert.Len(t, row, len(a.Columns))
	}
}

func TestPreprocessorDeterminism(t *testing.T) {
	p := fittedHouse(t)
	batch := []schema.RawRecord{
		rec(t, "HouseAge", 7.5, "PostCode", "A1", "TransactionDate", "2013.10"),
		rec(t, "HouseAge", nil, "PostCode", "B9", "TransactionDate", "2020.06"),
	}

	first, err := p.Transform(batch)
	require.NoError(t, err)
	second, err := p.Transform(batch)
	require.NoError(t, err)

	x, err := json.Marshal(first)
	require.NoError(t, err)
	y, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, x, y)
}

func TestPreprocessorPassthrough(t *testing.T) {
	p, err := New(houseDesc)
	require.NoError(t, err)

	m, err := p.FitTransform([]schema.RawRecord{
		rec(t, "Id", 1, "HouseAge", 5.0, "PostCode", "A1", "TransactionDate", "2013.10", "Rooms", "3"),
		rec(t, "Id", 2, "HouseAge", 15.0, "PostCode", "A2", "TransactionDate", "2013.11", "Rooms", 4),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Rooms", "HouseAge", "PostCode_A1", "PostCode_A2", "Year", "Month"}, m.Columns)
	assert.Equal(t, []float64{1, 3, -1, 1, 0, 2013, 10}, m.Rows[0])
	assert.Equal(t, []float64{2, 4, 1, 0, 1, 2013, 11}, m.Rows[1])

	_, err = p.Transform([]schema.RawRecord{rec(t, "HouseAge", 5.0, "PostCode", "A1", "TransactionDate", "2013.10", "Rooms", 3)})
	var se *schema.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Id", se.Field)
}

func TestTransformWithReport(t *testing.T) {
	p := fittedHouse(t)

	_, report, err := p.TransformWithReport([]schema.RawRecord{
		rec(t, "HouseAge", nil, "PostCode", "B9", "TransactionDate", "2020.06"),
		rec(t, "HouseAge", "", "PostCode", "A1", "TransactionDate", "2020.07"),
		rec(t, "HouseAge", 3.0, "PostCode", "C1", "TransactionDate", "2020.08"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, map[string]int{"HouseAge": 2}, report.Imputed)
	assert.Equal(t, map[string]int{"PostCode": 2}, report.Unseen)
}

func TestStateRoundTrip(t *testing.T) {
	p, err := New(houseDesc)
	require.NoError(t, err)
	training := houseTraining(t)
	for i := range training {
		training[i] = rec(t, "Id", i, "HouseAge", []any{5.0, 15.0, nil}[i], "PostCode", []string{"A1", "A2", "A1"}[i], "TransactionDate", "2013.10")
	}
	require.NoError(t, p.Fit(training))

	state, err := p.State()
	require.NoError(t, err)
	raw, err := json.Marshal(state)
	require.NoError(t, err)

	var loaded schema.FittedState
	require.NoError(t, json.Unmarshal(raw, &loaded))
	assert.True(t, state.FittedAt.Equal(loaded.FittedAt))
	loaded.FittedAt = state.FittedAt
	assert.Equal(t, *state, loaded)

	restored, err := NewFromState(houseDesc, &loaded)
	require.NoError(t, err)
	assert.True(t, restored.Fitted())

	batch := []schema.RawRecord{
		rec(t, "Id", 9, "HouseAge", 12.0, "PostCode", "A2", "TransactionDate", "2019.03"),
		rec(t, "Id", 10, "HouseAge", nil, "PostCode", "X", "TransactionDate", "2019.04"),
	}
	want, err := p.Transform(batch)
	require.NoError(t, err)
	got, err := restored.Transform(batch)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.ErrorIs(t, restored.Fit(batch), schema.ErrAlreadyFitted)
}

func TestNewFromStateMismatch(t *testing.T) {
	state, err := fittedHouse(t).State()
	require.NoError(t, err)

	other := schema.Descriptor{Numeric: []string{"HouseAge", "NumberOfPubs"}, Categorical: []string{"PostCode"}, Date: "TransactionDate"}
	_, err = NewFromState(other, state)
	assert.ErrorContains(t, err, "descriptor mismatch")

	_, err = NewFromState(houseDesc, nil)
	assert.Error(t, err)
}

func TestScalingFromState(t *testing.T) {
	p, err := NewFromState(schema.Descriptor{Numeric: []string{"x"}, Date: "d"}, &schema.FittedState{
		Version:    schema.StateFormatVersion,
		Descriptor: schema.Descriptor{Numeric: []string{"x"}, Date: "d"},
		Numeric:    []schema.NumericStats{{Name: "x", ImputeMean: 20, ScaleMean: 20, ScaleStd: 10}},
	})
	require.NoError(t, err)

	m, err := p.Transform([]schema.RawRecord{rec(t, "x", 30.0, "d", "2013.10")})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "Year", "Month"}, m.Columns)
	assert.Equal(t, []float64{1, 2013, 10}, m.Rows[0])
}

func TestStateIsACopy(t *testing.T) {
	p := fittedHouse(t)
	state, err := p.State()
	require.NoError(t, err)
	state.Categorical[0].Values[0] = "ZZ"
	state.Numeric[0].ScaleStd = 0

	again, err := p.State()
	require.NoError(t, err)
	assert.Equal(t, "A1", again.Categorical[0].Values[0])
	assert.NotZero(t, again.Numeric[0].ScaleStd)
}

func TestConcurrentTransform(t *testing.T) {
	p := fittedHouse(t)
	batch := []schema.RawRecord{
		rec(t, "HouseAge", 15.0, "PostCode", "A1", "TransactionDate", "2020.06"),
		rec(t, "HouseAge", nil, "PostCode", "B9", "TransactionDate", "2021.01"),
	}
	want, err := p.Transform(batch)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				got, err := p.Transform(batch)
				if err != nil {
					errs <- err
					return
				}
				if !assert.ObjectsAreEqual(want, got) {
					errs <- fmt.Errorf("concurrent transform diverged")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConcurrentFitSingleWinner(t *testing.T) {
	p, err := New(houseDesc)
	require.NoError(t, err)
	training := houseTraining(t)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- p.Fit(training)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, schema.ErrAlreadyFitted)
	}
	assert.Equal(t, 1, wins)
}
