package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ignite/outreach-engine/internal/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream activity events from NATS",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		prefix, _ := cmd.Flags().GetString("prefix")
		if natsURL == "" {
			return fmt.Errorf("--nats or OUTREACH_NATS_URL is required")
		}

		sub, err := events.NewNATSSubscriber(natsURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(events.AllActivities(prefix))
		if err != nil {
			return err
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Fprintf(os.Stderr, "Watching %s on %s (Ctrl-C to stop)\n", events.AllActivities(prefix), natsURL)
		for {
			select {
			case <-ctx.Done():
				return nil
			case data, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(os.Stdout, data)
			}
		}
	},
}

func init() {
	watchCmd.Flags().String("nats", os.Getenv("OUTREACH_NATS_URL"), "NATS server URL")
	watchCmd.Flags().String("prefix", events.DefaultPrefix, "subject prefix")
}

func printEvent(out io.Writer, data []byte) {
	if jsonOutput {
		fmt.Fprintln(out, string(data))
		return
	}
	var ev events.ActivityEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		fmt.Fprintf(out, "undecodable event: %s\n", data)
		return
	}
	a := ev.Activity
	line := fmt.Sprintf("%s  %-18s contact=%s", a.OccurredAt.Format("15:04:05"), a.Type, a.ContactID)
	if a.EnrollmentID != "" {
		line += fmt.Sprintf(" enrollment=%s step=%d status=%s", a.EnrollmentID, ev.CurrentStep, ev.EnrollmentStatus)
	}
	fmt.Fprintln(out, line)
}
