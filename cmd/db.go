package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/huangsam/sca/internal/agentdb"
	"github.com/huangsam/sca/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// dbCmd groups agent database maintenance.
//
// Note: db subcommands use minimal initialization (dbSetup) instead of the full
// sharedSetup used by the listing commands.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage agent databases",
	Long: `Manage the per-agent databases holding SCA results.

Supported backends: SQLite (default, one file per agent), MySQL, PostgreSQL

Subcommands:
  migrate - Run schema migrations on agent databases
  ingest  - Load scan reports into an agent database
  seed    - Load the bundled sample reports into an agent database
  status  - Show schema version and table sizes`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate <agent>...",
	Short: "Run schema migrations on agent databases",
	Long: `Migrate the schema of each agent database to the latest version, or to the
version given by --target-version. A missing SQLite database is created.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		store, err := dbSetup()
		if err != nil {
			contract.LogFatal("Cannot set up agent database", err)
		}
		target := viper.GetInt("target-version")
		for _, agentID := range agentArgs(args) {
			if err := agentdb.Migrate(rootCtx, store, agentID, target); err != nil {
				contract.LogFatal(fmt.Sprintf("Cannot migrate agent %s", agentID), err)
			}
			slog.Info("Agent database migrated", "agent", agentID, "target", target)
		}
	},
}

var dbIngestCmd = &cobra.Command{
	Use:   "ingest <agent> <report>...",
	Short: "Load scan reports into an agent database",
	Long: `Load SCA scan reports (YAML or JSON) into the database of one agent.
Each report replaces every stored row of its policy.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		store, err := dbSetup()
		if err != nil {
			contract.LogFatal("Cannot set up agent database", err)
		}
		agentID := args[0]
		for _, path := range args[1:] {
			report, err := agentdb.LoadReport(path)
			if err != nil {
				contract.LogFatal(fmt.Sprintf("Cannot load report %s", path), err)
			}
			if err := agentdb.Ingest(rootCtx, store, agentID, report); err != nil {
				contract.LogFatal(fmt.Sprintf("Cannot ingest report %s", path), err)
			}
			slog.Info("Report ingested", "agent", agentID, "policy", report.Policy.ID, "checks", len(report.Checks))
		}
	},
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed <agent>...",
	Short: "Load the bundled sample reports into agent databases",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		store, err := dbSetup()
		if err != nil {
			contract.LogFatal("Cannot set up agent database", err)
		}
		for _, agentID := range agentArgs(args) {
			if err := agentdb.Seed(rootCtx, store, agentID, agentdb.SampleReports()...); err != nil {
				contract.LogFatal(fmt.Sprintf("Cannot seed agent %s", agentID), err)
			}
			slog.Info("Agent database seeded", "agent", agentID)
		}
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status <agent>...",
	Short: "Show schema version and table sizes of agent databases",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		store, err := dbSetup()
		if err != nil {
			contract.LogFatal("Cannot set up agent database", err)
		}
		for _, agentID := range agentArgs(args) {
			status, err := agentdb.Status(rootCtx, store, agentID)
			if err != nil {
				contract.LogWarn(fmt.Sprintf("Cannot read status of agent %s", agentID), err)
			}
			agentdb.PrintStatus(os.Stdout, status)
		}
	},
}

// agentArgs flattens space- and comma-separated agent arguments.
func agentArgs(args []string) []string {
	var agents []string
	for _, arg := range args {
		agents = append(agents, contract.ParseList(arg)...)
	}
	return agents
}
