package agentdb

import (
	"context"

	"github.com/huangsam/sca/schema"
)

// Policy ids of the sample reports.
const (
	SampleDebianPolicy = "cis_debian10"
	SampleUnixPolicy   = "sca_unix_audit"
)

// SampleReports returns two scan reports for seeding demo and test databases.
// The Debian policy has checks with and without compliance mappings and rules of
// several types; the Unix policy has no references.
func SampleReports() []*schema.ScanReport {
	return []*schema.ScanReport{
		{
			Policy: schema.ScanPolicy{
				ID:          SampleDebianPolicy,
				Name:        "CIS benchmark for Debian/Linux 10",
				File:        "cis_debian10.yml",
				Description: "This document provides prescriptive guidance for establishing a secure configuration posture for Debian Linux 10.",
				References:  "https://www.cisecurity.org/cis-benchmarks/",
				HashFile:    "6f2d8d5b1c3e",
			},
			Scan: schema.ScanSummary{
				ID: 1001, StartScan: 1700000000, EndScan: 1700000060,
				Pass: 2, Fail: 1, Invalid: 1, TotalChecks: 4, Score: 66, Hash: "a1b2c3",
			},
			Checks: []schema.CheckRecord{
				{
					ID:          3000,
					Title:       "Ensure separate partition exists for /tmp",
					Description: "The /tmp directory is a world-writable directory used for temporary storage.",
					Rationale:   "Making /tmp its own file system allows an administrator to set the noexec option.",
					Remediation: "Configure /etc/fstab as appropriate.",
					File:        "/etc/fstab",
					References:  "https://tldp.org/HOWTO/LVM-HOWTO/",
					Result:      string(schema.FailedResult),
					Condition:   "all",
					Compliance: []schema.ComplianceEntry{
						{Key: "cis", Value: "1.1.2"},
						{Key: "pci_dss", Value: "2.2.4"},
					},
					Rules: []schema.RuleEntry{
						{Type: "file", Rule: "f:/etc/fstab -> r:/tmp"},
					},
				},
				{
					ID:          3001,
					Title:       "Ensure nodev option set on /tmp partition",
					Description: "The nodev mount option specifies that the filesystem cannot contain special devices.",
					Rationale:   "Users cannot create block or character special devices in /tmp.",
					Remediation: "Edit /etc/fstab and add nodev to the fourth field of the /tmp partition.",
					File:        "/etc/fstab",
					Command:     "mount",
					Result:      string(schema.PassedResult),
					Condition:   "all",
					Compliance: []schema.ComplianceEntry{
						{Key: "cis", Value: "1.1.3"},
					},
					Rules: []schema.RuleEntry{
						{Type: "command", Rule: `c:mount -> r:\s/tmp\s && r:nodev`},
						{Type: "file", Rule: "f:/etc/fstab -> r:nodev"},
					},
				},
				{
					ID:          3002,
					Title:       "Ensure SSH root login is disabled",
					Description: "The PermitRootLogin parameter specifies if the root user can log in using ssh.",
					Rationale:   "Disallowing root logins over SSH requires administrators to authenticate with their own account.",
					Remediation: "Set PermitRootLogin no in /etc/ssh/sshd_config.",
					Command:     "sshd -T",
					Result:      string(schema.PassedResult),
					Condition:   "all",
					Compliance: []schema.ComplianceEntry{
						{Key: "cis", Value: "5.2.8"},
						{Key: "pci_dss", Value: "2.2.4"},
						{Key: "nist_800_53", Value: "AC.6"},
					},
					Rules: []schema.RuleEntry{
						{Type: "command", Rule: "c:sshd -T -> r:permitrootlogin no"},
					},
				},
				{
					ID:          3003,
					Title:       "Ensure auditd service is running",
					Description: "Turn on the auditd daemon to record system events.",
					Process:     "auditd",
					Result:      string(schema.NotApplicableResult),
					Reason:      "Process auditd could not be inspected",
					Condition:   "any",
					Rules: []schema.RuleEntry{
						{Type: "process", Rule: "p:auditd"},
					},
				},
			},
		},
		{
			Policy: schema.ScanPolicy{
				ID:          SampleUnixPolicy,
				Name:        "System audit for Unix based systems",
				File:        "sca_unix_audit.yml",
				Description: "Guidance for establishing a secure configuration for Unix based systems.",
			},
			Scan: schema.ScanSummary{
				ID: 1002, StartScan: 1700000100, EndScan: 1700000130,
				Pass: 1, Fail: 1, TotalChecks: 2, Score: 50,
			},
			Checks: []schema.CheckRecord{
				{
					ID:        4000,
					Title:     "Ensure SSH Protocol is set to 2",
					File:      "/etc/ssh/sshd_config",
					Result:    string(schema.PassedResult),
					Condition: "all",
					Compliance: []schema.ComplianceEntry{
						{Key: "pci_dss", Value: "4.1"},
					},
					Rules: []schema.RuleEntry{
						{Type: "file", Rule: `f:/etc/ssh/sshd_config -> r:^Protocol\s+2`},
					},
				},
				{
					ID:        4001,
					Title:     "Ensure password authentication is disabled",
					Directory: "/etc/ssh",
					Result:    string(schema.FailedResult),
					Condition: "all",
					Rules: []schema.RuleEntry{
						{Type: "command", Rule: "c:sshd -T -> r:passwordauthentication no"},
					},
				},
			},
		},
	}
}

// Seed migrates the database of an agent and ingests the given reports.
func Seed(ctx context.Context, store *Store, agentID string, reports ...*schema.ScanReport) error {
	if err := Migrate(ctx, store, agentID, -1); err != nil {
		return err
	}
	for _, report := range reports {
		if err := Ingest(ctx, store, agentID, report); err != nil {
			return err
		}
	}
	return nil
}
