package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jensroland/leakmap/internal/debug"
	"github.com/jensroland/leakmap/internal/format"
)

func newLogCommand() *cobra.Command {
	var entries int
	var lines int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the debug log of recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			logFile := filepath.Join(e.paths.LogDir, logName)

			if lines > 0 {
				tail, err := debug.Tail(e.paths.LogDir, logName, lines)
				if err != nil {
					fmt.Fprintf(out, "No log file at %s\n", logFile)
					return nil
				}
				fmt.Fprintf(out, "%s--- %s (last %d lines) ---%s\n\n", format.Dim, logFile, len(tail), format.Reset)
				fmt.Fprintln(out, strings.Join(tail, "\n"))
				return nil
			}

			list, err := debug.Entries(e.paths.LogDir, logName, entries)
			if err != nil {
				fmt.Fprintf(out, "No log file at %s\n", logFile)
				return nil
			}
			fmt.Fprintf(out, "%s=== %s (last %d entries) ===%s\n\n", format.Bold, logFile, len(list), format.Reset)
			for _, entry := range list {
				fmt.Fprintln(out, entry)
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&entries, "entries", "n", 5, "Number of entries to show")
	cmd.Flags().IntVar(&lines, "lines", 0, "Show the last N raw lines instead of entries")
	return cmd
}
