// Package dataload reads raw records from CSV, JSON array and JSON-lines sources.
// Field order is kept as it appears in the source: the CSV header, or the key order of each JSON object.
package dataload

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/estateprep/schema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// maxLineSize bounds a single JSON-lines record.
const maxLineSize = 4 * 1024 * 1024

// DetectFormat resolves the auto format from a file extension.
func DetectFormat(path string, format schema.InputFormat) (schema.InputFormat, error) {
	if format != "" && format != schema.AutoIn {
		return format, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return schema.CSVIn, nil
	case ".json":
		return schema.JSONIn, nil
	case ".jsonl", ".ndjson":
		return schema.JSONLIn, nil
	default:
		return "", fmt.Errorf("cannot detect input format of %q; use --input-format", path)
	}
}

// LoadFile reads all records of a file.
func LoadFile(path string, format schema.InputFormat) ([]schema.RawRecord, error) {
	format, err := DetectFormat(path, format)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var records []schema.RawRecord
	switch format {
	case schema.CSVIn:
		records, err = ReadCSV(f)
	case schema.JSONIn:
		records, err = ReadJSON(f)
	case schema.JSONLIn:
		records, err = ReadJSONLines(f)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadCSV reads a CSV stream with a header row. Every cell becomes a string value;
// the pipeline stages interpret them by role.
func ReadCSV(r io.Reader) ([]schema.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var records []schema.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		fields := make([]schema.Field, len(header))
		for i, name := range header {
			fields[i] = schema.Field{Name: name, Value: schema.String(row[i])}
		}
		rec, err := schema.NewRawRecord(fields...)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadJSON reads a JSON array of objects. A single object is accepted as a batch of one.
func ReadJSON(r io.Reader) ([]schema.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseJSONRecords(data)
}

// ParseJSONRecords parses a JSON array of objects, or a single object, into records.
func ParseJSONRecords(data []byte) ([]schema.RawRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '{' {
		rec, err := parseObject(data)
		if err != nil {
			return nil, err
		}
		return []schema.RawRecord{rec}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("expected a JSON array of objects: %w", err)
	}
	records := make([]schema.RawRecord, 0, len(items))
	for i, item := range items {
		rec, err := parseObject(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadJSONLines reads one JSON object per line. Blank lines are skipped.
func ReadJSONLines(r io.Reader) ([]schema.RawRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []schema.RawRecord
	for line := 1; scanner.Scan(); line++ {
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		rec, err := parseObject(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// parseObject decodes one JSON object keeping its key order.
func parseObject(data []byte) (schema.RawRecord, error) {
	om := orderedmap.New[string, any]()
	if err := om.UnmarshalJSON(data); err != nil {
		return schema.RawRecord{}, fmt.Errorf("expected a JSON object: %w", err)
	}
	fields := make([]schema.Field, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		v, err := toValue(pair.Value)
		if err != nil {
			return schema.RawRecord{}, fmt.Errorf("field %q: %w", pair.Key, err)
		}
		fields = append(fields, schema.Field{Name: pair.Key, Value: v})
	}
	return schema.NewRawRecord(fields...)
}

// toValue maps a decoded JSON scalar to a raw value.
func toValue(x any) (schema.Value, error) {
	switch v := x.(type) {
	case nil:
		return schema.Null(), nil
	case float64:
		return schema.Number(v), nil
	case string:
		return schema.String(v), nil
	case bool:
		if v {
			return schema.String("true"), nil
		}
		return schema.String("false"), nil
	default:
		return schema.Value{}, fmt.Errorf("unsupported value of type %T", x)
	}
}
