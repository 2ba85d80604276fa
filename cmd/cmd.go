// Package cmd defines the command-line interface for sca.
package cmd

import (
	"github.com/huangsam/sca/core"
	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(policiesCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the db subcommands to the parent db command
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbIngestCmd)
	dbCmd.AddCommand(dbSeedCmd)
	dbCmd.AddCommand(dbStatusCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().Int("offset", 0, "First element to return")
	rootCmd.PersistentFlags().IntP("limit", "l", schema.DefaultDatabaseLimit, "Maximum number of elements to return")
	rootCmd.PersistentFlags().StringP("sort", "s", "", "Comma-separated sort fields, each optionally prefixed with + or -")
	rootCmd.PersistentFlags().String("search", "", "Substring to look for in any field; prefix with - to exclude matches")
	rootCmd.PersistentFlags().String("select", "", "Comma-separated fields to return")
	rootCmd.PersistentFlags().String("q", "", "Query expression, e.g. 'score>50;name~debian'")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored results in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("backend", string(schema.SQLiteBackend), "Agent database backend: sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("db-connect", "", "Agent database directory (sqlite) or DSN template with {agent} (mysql/postgresql)")
	rootCmd.PersistentFlags().Bool("wait-for-complete", false, "Disable the request timeout")
	rootCmd.PersistentFlags().String("timeout", contract.DefaultTimeout.String(), "Request timeout")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Filter flags are read per command in sharedSetup, so they are not bound to Viper
	addFilterFlags(policiesCmd, contract.PolicyFilterFields)
	addFilterFlags(checksCmd, contract.CheckFilterFields)

	// Bind all flags of checksCmd to Viper
	checksCmd.Flags().StringP("policy-id", "p", "", "Policy whose checks are listed")
	if err := viper.BindPFlag("policy-id", checksCmd.Flags().Lookup("policy-id")); err != nil {
		contract.LogFatal("Error binding checks flags", err)
	}

	// Bind all flags of dbMigrateCmd to Viper
	dbMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(dbMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding db migrate flags", err)
	}
}

// addFilterFlags declares one exact-match filter flag per field.
func addFilterFlags(cmd *cobra.Command, fields []string) {
	for _, field := range fields {
		cmd.Flags().String(field, "", "Only return items whose "+field+" equals this value")
	}
}

// runListing adapts a listing executor to a cobra Run function.
func runListing(execute core.ExecutorFunc, failure string) func(*cobra.Command, []string) {
	return func(_ *cobra.Command, _ []string) {
		if err := execute(rootCtx, cfg); err != nil {
			contract.LogFatal(failure, err)
		}
	}
}
