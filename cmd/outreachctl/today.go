package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ignite/outreach-engine/internal/domain"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "List the actions due today (or on --date)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		path := "/api/actions/today"
		if date != "" {
			path += "?date=" + url.QueryEscape(date)
		}
		var list domain.TodayActions
		if err := client.do(cmd.Context(), "GET", path, nil, &list); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(list)
		}
		printToday(os.Stdout, &list)
		return nil
	},
}

func init() {
	todayCmd.Flags().String("date", "", "reference date YYYY-MM-DD in the engine timezone")
}

func printToday(out io.Writer, list *domain.TodayActions) {
	fmt.Fprintf(out, "%s: %d actions (%d email, %d call, %d other)\n",
		list.Date, list.TotalActions, list.EmailActions, list.CallActions, list.OtherActions)
	if len(list.Actions) == 0 {
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIER\tCONTACT\tCOMPANY\tSEQUENCE\tSTEP\tTYPE\tDUE\tDETAIL")
	for _, a := range list.Actions {
		due := a.DueAt.Format("2006-01-02 15:04")
		if a.Overdue {
			due += " (overdue)"
		}
		detail := a.SubjectPreview
		if detail == "" {
			detail = a.Description
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			a.EnrollmentID, a.ICPTier, a.ContactName, a.ContactCompany, a.SequenceName,
			a.StepNumber, a.StepType, due, detail)
	}
	tw.Flush()
}
