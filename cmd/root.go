package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/sca/internal/agentdb"
	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "sca",
	Short:              "Query security configuration assessment results of agents.",
	Long:               `SCA lists the configuration assessment policies and checks recorded in per-agent databases.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env file is fine; values then come from the real environment.
	_ = godotenv.Load()

	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".sca")  // Name of config file (without extension)
		viper.SetConfigType("yaml")  // We'll use YAML format
		viper.AddConfigPath(".")     // Look in the current directory
		viper.AddConfigPath("$HOME") // Look in the home directory
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("SCA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("limit", schema.DefaultDatabaseLimit)
	viper.SetDefault("output", string(schema.TextOut))
	viper.SetDefault("backend", string(schema.SQLiteBackend))
	viper.SetDefault("db-connect", "")
	viper.SetDefault("timeout", contract.DefaultTimeout.String())
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("color", "yes")
}

// readConfigFile merges the config file into viper when one exists.
func readConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config and runs validation for the listing commands.
// filterFields names the per-command filter flags read from cmd.
func sharedSetup(cmd *cobra.Command, args []string, filterFields []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := readConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments and per-command filters (which Viper doesn't do).
	input.Agents = nil
	for _, arg := range args {
		input.Agents = append(input.Agents, contract.ParseList(arg)...)
	}
	filters := make(map[string]string, len(filterFields))
	for _, field := range filterFields {
		value, err := cmd.Flags().GetString(field)
		if err != nil {
			return fmt.Errorf("unable to read --%s: %w", field, err)
		}
		filters[field] = value
	}
	input.Filters = filters

	// 4. Run all validation and complex parsing.
	// This function populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	contract.InitLogger(os.Stderr, cfg.LogLevel)
	return nil
}

// dbSetup loads the minimal configuration needed for agent database maintenance
// and opens the configured store.
func dbSetup() (*agentdb.Store, error) {
	if err := readConfigFile(); err != nil {
		return nil, err
	}

	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("backend")))
	connStr := viper.GetString("db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return nil, err
	}

	level, err := contract.ParseLogLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	contract.InitLogger(os.Stderr, level)

	cfg.Backend = backend
	cfg.DBConnect = connStr
	return agentdb.Open(backend, connStr)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
