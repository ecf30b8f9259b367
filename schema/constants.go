package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// InputFormat represents the format of a raw record file.
	InputFormat string

	// DatabaseBackend represents the database backend for persistence.
	DatabaseBackend string

	// ColumnKind tells which pipeline stage produced a feature column.
	ColumnKind string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All input formats supported.
const (
	AutoIn  InputFormat = "auto" // default, detect from file extension
	CSVIn   InputFormat = "csv"
	JSONIn  InputFormat = "json"
	JSONLIn InputFormat = "jsonl"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Column kinds in assembly order.
const (
	PassthroughColumn ColumnKind = "passthrough"
	NumericColumn     ColumnKind = "numeric"
	CategoricalColumn ColumnKind = "categorical"
	DateColumn        ColumnKind = "date"
)

// Names of the two columns derived from the date feature.
const (
	YearColumn  = "Year"
	MonthColumn = "Month"
)

// StateFormatVersion is bumped whenever the persisted FittedState layout changes.
const StateFormatVersion = 1

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidInputFormats lists all valid input formats.
var ValidInputFormats = map[InputFormat]struct{}{
	AutoIn:  {},
	CSVIn:   {},
	JSONIn:  {},
	JSONLIn: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
