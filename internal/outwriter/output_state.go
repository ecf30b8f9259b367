package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
	"github.com/olekukonko/tablewriter"
)

// maxVocabularyPreview caps how many vocabulary values the table shows per feature.
const maxVocabularyPreview = 8

// WriteStateResults outputs a fitted state, dispatching based on the output format configured.
func WriteStateResults(key string, state *schema.FittedState, cfg *contract.Config) error {
	if state == nil {
		return errors.New("no fitted state to describe")
	}
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Key     string              `json:"key"`
				Columns []schema.Column     `json:"columns"`
				State   *schema.FittedState `json:"state"`
			}{key, state.Columns(), state})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStateCSV(w, state)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errors.New("parquet output is only supported for feature matrices")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStateTable(w, key, state, cfg, fmtFloat)
		}, "Wrote table")
	}
}

// writeStateCSV writes the output column layout of the state.
func writeStateCSV(w io.Writer, state *schema.FittedState) error {
	return writeCSVWithHeader(w, []string{"index", "column", "kind"}, func(cw *csv.Writer) error {
		for i, c := range state.Columns() {
			if err := cw.Write([]string{strconv.Itoa(i), c.Name, string(c.Kind)}); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeStateTable prints a summary, the numeric statistics and the vocabularies of a state.
func writeStateTable(w io.Writer, key string, state *schema.FittedState, cfg *contract.Config, fmtFloat func(float64) string) error {
	title := func(s string) string {
		if cfg.UseColors {
			return contract.HeaderColor.Sprint(s)
		}
		return s
	}

	if _, err := fmt.Fprintf(w, "%s\n", title(fmt.Sprintf("Fitted state %q", key))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Fitted at %s on %d records, %d output columns\n",
		state.FittedAt.Format(contract.DateTimeFormat), state.Records, state.Width()); err != nil {
		return err
	}
	if len(state.Passthrough) > 0 {
		if _, err := fmt.Fprintf(w, "Passthrough: %s\n", strings.Join(state.Passthrough, ", ")); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Date: %s -> %s, %s\n\n", state.Descriptor.Date, schema.YearColumn, schema.MonthColumn); err != nil {
		return err
	}

	if len(state.Numeric) > 0 {
		if _, err := fmt.Fprintln(w, title("Numeric features")); err != nil {
			return err
		}
		var data [][]string
		for _, s := range state.Numeric {
			data = append(data, []string{s.Name, fmtFloat(s.ImputeMean), fmtFloat(s.ScaleMean), fmtFloat(s.ScaleStd), strconv.Itoa(s.Observed)})
		}
		if err := renderTable(w, []string{"Feature", "Impute", "Mean", "Std", "Observed"}, data); err != nil {
			return err
		}
	}

	if len(state.Categorical) > 0 {
		if _, err := fmt.Fprintln(w, title("Categorical features")); err != nil {
			return err
		}
		nameWidth := getMaxColumnWidth(cfg, 3)
		var data [][]string
		for _, v := range state.Categorical {
			data = append(data, []string{v.Name, strconv.Itoa(len(v.Values)), contract.TruncateName(previewValues(v.Values), nameWidth*2)})
		}
		if err := renderTable(w, []string{"Feature", "Values", "Vocabulary"}, data); err != nil {
			return err
		}
	}
	return nil
}

func renderTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// previewValues joins the first few vocabulary values.
func previewValues(values []string) string {
	if len(values) <= maxVocabularyPreview {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s, ... (+%d)", strings.Join(values[:maxVocabularyPreview], ", "), len(values)-maxVocabularyPreview)
}
