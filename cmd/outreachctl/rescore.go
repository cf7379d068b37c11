package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignite/outreach-engine/internal/service/contact"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute every stored ICP score with the server's rule table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var sum contact.RescoreSummary
		if err := client.do(cmd.Context(), "POST", "/api/scoring/rescore", nil, &sum); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(sum)
		}
		fmt.Printf("Rescored %d contacts: %d changed, %d failed\n", sum.Checked, sum.Changed, sum.Failed)
		return nil
	},
}
