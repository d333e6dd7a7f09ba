package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reviewdesk/cmd/desk/ui"
	"reviewdesk/internal/format"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/trace"
)

var traceHistoryLimit int

// traceCmd groups the trace id commands
var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Show or copy the trace id of the last failed request",
	Long: `Every failed request is tagged with a trace id. Hand it to support to
find the request in the backend logs. The last ids are kept in the workspace,
so they survive across commands.`,
}

var traceLastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print the last trace id",
	Args:  cobra.NoArgs,
	RunE:  runTraceLast,
}

var traceCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy the last trace id to the clipboard",
	Args:  cobra.NoArgs,
	RunE:  runTraceCopy,
}

var traceHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently recorded trace ids",
	Args:  cobra.NoArgs,
	RunE:  runTraceHistory,
}

func init() {
	traceHistoryCmd.Flags().IntVarP(&traceHistoryLimit, "limit", "n", 10, "Number of ids to show")

	traceCmd.AddCommand(traceLastCmd, traceCopyCmd, traceHistoryCmd)
	rootCmd.AddCommand(traceCmd)
}

func runTraceLast(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id, at, ok := a.recorder.Last()
	if !ok {
		fmt.Fprintln(a.out, "No trace recorded yet.")
		return nil
	}
	fmt.Fprintln(a.out, trace.Annotate("Last failed request", id, at))
	return nil
}

func runTraceCopy(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.recorder.Copy()
	a.notifier.Notify(copyLevel(res.Level), res.Message)
	if res.Level == trace.CopyFailed {
		// The id still has to reach the user.
		fmt.Fprintln(a.out, res.TraceID)
		return errReported
	}
	return nil
}

func copyLevel(l trace.CopyLevel) notify.Level {
	switch l {
	case trace.CopySuccess:
		return notify.LevelSuccess
	case trace.CopyWarning:
		return notify.LevelWarning
	default:
		return notify.LevelError
	}
}

func runTraceHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.sessions.RecentTraces(traceHistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to read trace history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No trace recorded yet.")
		return nil
	}

	table := ui.NewSimpleTable("Recent traces", "TraceID", "Recorded", "")
	for _, e := range entries {
		table.AddRow(e.TraceID, format.Time(e.RecordedAt), format.Ago(e.RecordedAt))
	}
	fmt.Fprintln(a.out, table.View(ui.DefaultStyles()))
	return nil
}
