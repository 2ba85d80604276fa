package cmd

import (
	"github.com/huangsam/sca/core"
	"github.com/huangsam/sca/internal/contract"
	"github.com/spf13/cobra"
)

// policiesCmd lists the SCA policies of one or more agents.
var policiesCmd = &cobra.Command{
	Use:   "policies <agent>...",
	Short: "List the SCA policies applied to agents.",
	Long: `List the security configuration assessment policies of each agent,
together with the pass/fail counters and score of their latest scan.

Agents are given as arguments, separated by spaces or commas. Agents that
cannot be queried are reported under failed items and do not abort the listing.

Examples:
  # All policies of agent 001
  sca policies 001

  # Policies of several agents, worst score first
  sca policies 001,002 --sort -score

  # Only Debian policies, as JSON
  sca policies 001 --search debian --output json

  # Policies scoring below 50 with only a few fields
  sca policies 001 --q 'score<50' --select policy_id,name,score`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return sharedSetup(cmd, args, contract.PolicyFilterFields)
	},
	Run: runListing(core.ExecutePolicies, "Cannot list policies"),
}
