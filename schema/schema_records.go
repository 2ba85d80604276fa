package schema

import (
	"fmt"
	"strconv"
)

// PolicyRecord is one configuration-assessment policy applied to an agent,
// together with the summary of its latest scan.
type PolicyRecord struct {
	PolicyID    string `json:"policy_id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	References  string `json:"references,omitempty"`
	Pass        int64  `json:"pass"`
	Fail        int64  `json:"fail"`
	Score       int64  `json:"score"`
}

// ComplianceEntry maps a check to a control of an external compliance framework.
type ComplianceEntry struct {
	Key   string `json:"key" yaml:"key" validate:"required"`
	Value string `json:"value" yaml:"value" validate:"required"`
}

// RuleEntry is one condition that decides the result of a check.
type RuleEntry struct {
	Type string `json:"type" yaml:"type" validate:"required,oneof=file directory registry command process numeric"`
	Rule string `json:"rule" yaml:"rule" validate:"required"`
}

// CheckRecord is one evaluated check within a policy.
type CheckRecord struct {
	ID          int64             `json:"id" yaml:"id" validate:"required"`
	PolicyID    string            `json:"policy_id" yaml:"policy_id"`
	Title       string            `json:"title" yaml:"title" validate:"required"`
	Description string            `json:"description,omitempty" yaml:"description"`
	Rationale   string            `json:"rationale,omitempty" yaml:"rationale"`
	Remediation string            `json:"remediation,omitempty" yaml:"remediation"`
	File        string            `json:"file,omitempty" yaml:"file"`
	Process     string            `json:"process,omitempty" yaml:"process"`
	Directory   string            `json:"directory,omitempty" yaml:"directory"`
	Registry    string            `json:"registry,omitempty" yaml:"registry"`
	Command     string            `json:"command,omitempty" yaml:"command"`
	References  string            `json:"references,omitempty" yaml:"references"`
	Result      string            `json:"result,omitempty" yaml:"result" validate:"omitempty,oneof=passed failed 'not applicable'"`
	Reason      string            `json:"reason,omitempty" yaml:"reason"`
	Condition   string            `json:"condition,omitempty" yaml:"condition" validate:"omitempty,oneof=all any none"`
	Compliance  []ComplianceEntry `json:"compliance,omitempty" yaml:"compliance" validate:"dive"`
	Rules       []RuleEntry       `json:"rules,omitempty" yaml:"rules" validate:"dive"`
}

// ScanPolicy describes the policy section of a scan report.
type ScanPolicy struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	File        string `json:"file" yaml:"file"`
	Description string `json:"description" yaml:"description"`
	References  string `json:"references" yaml:"references"`
	HashFile    string `json:"hash_file" yaml:"hash_file"`
}

// ScanSummary describes the aggregate counters of one scan.
type ScanSummary struct {
	ID          int64  `json:"id" yaml:"id" validate:"required"`
	StartScan   int64  `json:"start_scan" yaml:"start_scan"`
	EndScan     int64  `json:"end_scan" yaml:"end_scan" validate:"gtefield=StartScan"`
	Pass        int64  `json:"pass" yaml:"pass" validate:"gte=0"`
	Fail        int64  `json:"fail" yaml:"fail" validate:"gte=0"`
	Invalid     int64  `json:"invalid" yaml:"invalid" validate:"gte=0"`
	TotalChecks int64  `json:"total_checks" yaml:"total_checks" validate:"gte=0"`
	Score       int64  `json:"score" yaml:"score" validate:"gte=0,lte=100"`
	Hash        string `json:"hash" yaml:"hash"`
}

// ScanReport is the ingest document for one policy scan on one agent.
type ScanReport struct {
	Policy ScanPolicy    `json:"policy" yaml:"policy" validate:"required"`
	Scan   ScanSummary   `json:"scan" yaml:"scan" validate:"required"`
	Checks []CheckRecord `json:"checks" yaml:"checks" validate:"dive"`
}

// PolicyFromRow decodes a shaped policy row. Missing fields stay zero.
func PolicyFromRow(row Row) PolicyRecord {
	return PolicyRecord{
		PolicyID:    AsString(row["policy_id"]),
		Name:        AsString(row["name"]),
		Description: AsString(row["description"]),
		References:  AsString(row["references"]),
		Pass:        AsInt(row["pass"]),
		Fail:        AsInt(row["fail"]),
		Score:       AsInt(row["score"]),
	}
}

// CheckFromRow decodes a shaped check row including nested collections.
func CheckFromRow(row Row) CheckRecord {
	rec := CheckRecord{
		ID:          AsInt(row["id"]),
		PolicyID:    AsString(row["policy_id"]),
		Title:       AsString(row["title"]),
		Description: AsString(row["description"]),
		Rationale:   AsString(row["rationale"]),
		Remediation: AsString(row["remediation"]),
		File:        AsString(row["file"]),
		Process:     AsString(row["process"]),
		Directory:   AsString(row["directory"]),
		Registry:    AsString(row["registry"]),
		References:  AsString(row["references"]),
		Result:      AsString(row["result"]),
		Condition:   AsString(row["condition"]),
	}
	if entries, ok := row[ComplianceCollection].([]Row); ok {
		for _, e := range entries {
			rec.Compliance = append(rec.Compliance, ComplianceEntry{Key: AsString(e["key"]), Value: AsString(e["value"])})
		}
	}
	if entries, ok := row[RulesCollection].([]Row); ok {
		for _, e := range entries {
			rec.Rules = append(rec.Rules, RuleEntry{Type: AsString(e["type"]), Rule: AsString(e["rule"])})
		}
	}
	return rec
}

// AsString renders a scanned column value as a string.
func AsString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// AsInt converts a scanned column value to an int64, returning 0 when it is not numeric.
func AsInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(val), 10, 64)
		return n
	default:
		return 0
	}
}
