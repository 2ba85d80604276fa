package cmd

import (
	"github.com/huangsam/sca/core"
	"github.com/huangsam/sca/internal/contract"
	"github.com/spf13/cobra"
)

// checksCmd lists the checks of one policy on one or more agents.
var checksCmd = &cobra.Command{
	Use:   "checks <agent>... --policy-id <policy>",
	Short: "List the checks of an SCA policy on agents.",
	Long: `List the checks evaluated by one policy on each agent, with their
compliance mappings and rules.

Compliance and rules can be selected and queried with dotted names such as
compliance.key or rules.type.

Examples:
  # Every check of the CIS Debian policy on agent 001
  sca checks 001 --policy-id cis_debian10

  # Failed checks only
  sca checks 001 --policy-id cis_debian10 --result failed

  # Checks mapped to PCI DSS, showing their compliance entries
  sca checks 001 -p cis_debian10 --q 'compliance.key=pci_dss' --select id,title,compliance

  # Export to Parquet
  sca checks 001 -p cis_debian10 --output parquet --output-file checks.parquet`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return sharedSetup(cmd, args, contract.CheckFilterFields)
	},
	Run: runListing(core.ExecuteChecks, "Cannot list checks"),
}
