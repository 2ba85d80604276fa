package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the engine holding agent databases.
	DatabaseBackend string

	// CheckResult represents the outcome of a single check.
	CheckResult string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All agent database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
)

// Check results reported by agents.
const (
	PassedResult        CheckResult = "passed"
	FailedResult        CheckResult = "failed"
	NotApplicableResult CheckResult = "not applicable"
)

// Limits applied to every listing operation.
const (
	DefaultDatabaseLimit = 500
	MaxDatabaseLimit     = 100000
)

// Nested collections attached to check rows.
const (
	ComplianceCollection = "compliance"
	RulesCollection      = "rules"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid agent database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
}

// PolicyFields are the public policy field names in declaration order.
var PolicyFields = []string{"policy_id", "name", "description", "references", "pass", "fail", "score"}

// CheckFields are the public scalar check field names in declaration order.
var CheckFields = []string{
	"id", "policy_id", "title", "description", "rationale", "remediation",
	"file", "process", "directory", "registry", "references", "result", "condition",
}

// ComplianceFields are the keys of every compliance entry.
var ComplianceFields = []string{"key", "value"}

// RuleFields are the keys of every rule entry.
var RuleFields = []string{"type", "rule"}
