package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/scoring"
	"github.com/ignite/outreach-engine/internal/storage"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and publish ICP scoring rule tables",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a rule table from a local file or s3://bucket/key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, _ := cmd.Flags().GetString("region")
		table, err := readRules(cmd, args[0], region)
		if err != nil {
			return err
		}
		printRules(os.Stdout, table)
		return nil
	},
}

var rulesPushCmd = &cobra.Command{
	Use:   "push <src> <dest>",
	Short: "Validate a rule table and copy it to a local path or s3://bucket/key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, _ := cmd.Flags().GetString("region")
		table, err := readRules(cmd, args[0], region)
		if err != nil {
			return err
		}
		data, err := table.Encode()
		if err != nil {
			return err
		}
		dest, err := storage.ParseLocation(args[1])
		if err != nil {
			return err
		}
		blob, err := storage.Open(cmd.Context(), dest, region)
		if err != nil {
			return err
		}
		if err := blob.Write(cmd.Context(), dest.Key, data); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		fmt.Printf("Published rule table %s to %s\n", table.Version, dest)
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the rule table the server is using",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var out struct {
			Table scoring.RuleTable `json:"table"`
		}
		if err := client.do(cmd.Context(), "GET", "/api/scoring/rules", nil, &out); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out.Table)
		}
		printRules(os.Stdout, out.Table)
		return nil
	},
}

func init() {
	rulesCmd.PersistentFlags().String("region", "us-east-1", "AWS region for s3:// locations")
	rulesCmd.AddCommand(rulesValidateCmd, rulesPushCmd, rulesShowCmd)
}

func readRules(cmd *cobra.Command, raw, region string) (scoring.RuleTable, error) {
	loc, err := storage.ParseLocation(raw)
	if err != nil {
		return scoring.RuleTable{}, err
	}
	blob, err := storage.Open(cmd.Context(), loc, region)
	if err != nil {
		return scoring.RuleTable{}, err
	}
	return scoring.Load(cmd.Context(), blob, loc.Key)
}

func printRules(out io.Writer, t scoring.RuleTable) {
	fmt.Fprintf(out, "Rule table %s (max score %g)\n", t.Version, t.MaxScore)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tPOINTS\tANY OF")
	for _, r := range t.Rules {
		fmt.Fprintf(tw, "%s\t%g\t%v\n", r.Name, r.Points, r.AnyOf)
	}
	segs := make([]string, 0, len(t.SegmentPoints))
	for s := range t.SegmentPoints {
		segs = append(segs, string(s))
	}
	sort.Strings(segs)
	for _, s := range segs {
		fmt.Fprintf(tw, "segment:%s\t%g\t\n", s, t.SegmentPoints[domain.Segment(s)])
	}
	tw.Flush()
	for _, c := range t.Tiers {
		fmt.Fprintf(out, "  %-10s >= %g  %s\n", c.Tier, c.Min, scoring.PriorityLabel(c.Tier))
	}
}
