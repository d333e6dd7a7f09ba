package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reviewdesk/cmd/desk/ui"
	"reviewdesk/internal/notify"
)

var (
	usageLimit int
	usageReset bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show request statistics per endpoint",
	Long: `Shows how many requests desk sent to each endpoint, how many failed and
how long they took. Statistics accumulate in the workspace until --reset.`,
	Args: cobra.NoArgs,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().IntVarP(&usageLimit, "limit", "n", 15, "Number of endpoints to show")
	usageCmd.Flags().BoolVar(&usageReset, "reset", false, "Clear the statistics")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.usage == nil {
		return errors.New("usage tracking is disabled (usage.enabled: false)")
	}

	if usageReset {
		if err := a.usage.Reset(); err != nil {
			return fmt.Errorf("failed to reset usage: %w", err)
		}
		notify.Success(a.notifier, "Usage statistics cleared")
		return nil
	}

	fmt.Fprintln(a.out, ui.RenderUsage(a.usage, ui.DefaultStyles(), usageLimit))
	return nil
}
