package agentdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/sca/schema"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadReport reads a scan report from a JSON or YAML file and validates it.
func LoadReport(path string) (*schema.ScanReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scan report %q", path)
	}
	var report schema.ScanReport
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &report)
	case ".json":
		err = json.Unmarshal(data, &report)
	default:
		return nil, errors.Errorf("unsupported scan report format %q. Use .json, .yaml or .yml", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse scan report %q", path)
	}
	if err := ValidateReport(&report); err != nil {
		return nil, errors.Wrapf(err, "invalid scan report %q", path)
	}
	return &report, nil
}

// ValidateReport checks the struct tags of a report and fills the policy id of its checks.
func ValidateReport(report *schema.ScanReport) error {
	if err := validate.Struct(report); err != nil {
		return err
	}
	for i := range report.Checks {
		if report.Checks[i].PolicyID == "" {
			report.Checks[i].PolicyID = report.Policy.ID
		}
		if report.Checks[i].PolicyID != report.Policy.ID {
			return errors.Errorf("check %d belongs to policy %q, not %q", report.Checks[i].ID, report.Checks[i].PolicyID, report.Policy.ID)
		}
	}
	return nil
}

// Ingest writes a scan report into an agent database in one transaction,
// replacing every row previously stored for the same policy.
func Ingest(ctx context.Context, store *Store, agentID string, report *schema.ScanReport) error {
	if err := ValidateReport(report); err != nil {
		return err
	}
	db, err := store.open(ctx, agentID, false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin ingest transaction")
	}
	w := &reportWriter{ctx: ctx, tx: tx, store: store}
	if err := w.write(report); err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(err, "failed to ingest policy %s for agent %s", report.Policy.ID, agentID)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit ingest transaction")
	}
	slog.Info("Ingested scan report", "agent", agentID, "policy", report.Policy.ID, "checks", len(report.Checks))
	return nil
}

// reportWriter issues the statements of one ingest transaction.
type reportWriter struct {
	ctx   context.Context
	tx    *sql.Tx
	store *Store
}

func (w *reportWriter) exec(query string, args ...any) error {
	_, err := w.tx.ExecContext(w.ctx, w.store.dialect.Rebind(query), args...)
	return err
}

// insert renders an INSERT with quoted columns.
func (w *reportWriter) insert(table string, columns []string, args ...any) error {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = w.store.dialect.Quote(c)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	return w.exec(query, args...)
}

func (w *reportWriter) write(report *schema.ScanReport) error {
	p := report.Policy
	checksOfPolicy := fmt.Sprintf("SELECT id FROM %s WHERE policy_id = ?", schema.CheckTableName)
	deletes := []string{
		fmt.Sprintf("DELETE FROM %s WHERE id_check IN (%s)", schema.RulesTableName, checksOfPolicy),
		fmt.Sprintf("DELETE FROM %s WHERE id_check IN (%s)", schema.ComplianceTableName, checksOfPolicy),
		fmt.Sprintf("DELETE FROM %s WHERE policy_id = ?", schema.CheckTableName),
		fmt.Sprintf("DELETE FROM %s WHERE policy_id = ?", schema.ScanInfoTableName),
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", schema.PolicyTableName),
	}
	for _, query := range deletes {
		if err := w.exec(query, p.ID); err != nil {
			return err
		}
	}

	if err := w.insert(schema.PolicyTableName,
		[]string{"id", "name", "file", "description", "references", "hash_file"},
		p.ID, p.Name, nullable(p.File), nullable(p.Description), nullable(p.References), nullable(p.HashFile)); err != nil {
		return err
	}

	s := report.Scan
	if err := w.insert(schema.ScanInfoTableName,
		[]string{"id", "start_scan", "end_scan", "policy_id", "pass", "fail", "invalid", "total_checks", "score", "hash"},
		s.ID, s.StartScan, s.EndScan, p.ID, s.Pass, s.Fail, s.Invalid, s.TotalChecks, s.Score, nullable(s.Hash)); err != nil {
		return err
	}

	for _, c := range report.Checks {
		if err := w.insert(schema.CheckTableName,
			[]string{"id", "scan_id", "policy_id", "title", "description", "rationale", "remediation",
				"file", "directory", "process", "registry", "references", "result", "reason", "condition", "command"},
			c.ID, s.ID, c.PolicyID, c.Title, nullable(c.Description), nullable(c.Rationale), nullable(c.Remediation),
			nullable(c.File), nullable(c.Directory), nullable(c.Process), nullable(c.Registry), nullable(c.References),
			nullable(c.Result), nullable(c.Reason), nullable(c.Condition), nullable(c.Command)); err != nil {
			return err
		}
		seen := map[string]struct{}{}
		for _, e := range c.Compliance {
			if _, dup := seen["c\x00"+e.Key+"\x00"+e.Value]; dup {
				continue
			}
			seen["c\x00"+e.Key+"\x00"+e.Value] = struct{}{}
			if err := w.insert(schema.ComplianceTableName, []string{"id_check", "key", "value"}, c.ID, e.Key, e.Value); err != nil {
				return err
			}
		}
		for _, r := range c.Rules {
			if _, dup := seen["r\x00"+r.Type+"\x00"+r.Rule]; dup {
				continue
			}
			seen["r\x00"+r.Type+"\x00"+r.Rule] = struct{}{}
			if err := w.insert(schema.RulesTableName, []string{"id_check", "type", "rule"}, c.ID, r.Type, r.Rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// nullable stores empty strings as NULL so they are stripped from query results.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
