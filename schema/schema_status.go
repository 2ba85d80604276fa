package schema

// AgentDBStatus represents the status of one agent database.
type AgentDBStatus struct {
	Backend    string           `json:"backend"`
	AgentID    string           `json:"agent_id"`
	Connected  bool             `json:"connected"`
	Version    uint             `json:"version"`
	Dirty      bool             `json:"dirty"`
	Policies   int64            `json:"policies"`
	TableSizes map[string]int64 `json:"table_sizes"`
}

// SCA tables held by every agent database.
const (
	PolicyTableName     = "sca_policy"
	ScanInfoTableName   = "sca_scan_info"
	CheckTableName      = "sca_check"
	ComplianceTableName = "sca_check_compliance"
	RulesTableName      = "sca_check_rules"
)

// SCATables lists the agent database tables in dependency order.
var SCATables = []string{PolicyTableName, ScanInfoTableName, CheckTableName, ComplianceTableName, RulesTableName}
