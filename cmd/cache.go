package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jensroland/leakmap/internal/format"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the mapping cache",
	}

	var jsonOutput bool
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(cmd, jsonOutput)
		},
	}
	stats.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached mapping table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cmd)
		},
	}

	cmd.AddCommand(stats, clearCmd)
	return cmd
}

func runCacheStats(cmd *cobra.Command, jsonOutput bool) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	c, err := e.openCache(false)
	if err != nil {
		return err
	}
	if c == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled.")
		return nil
	}
	defer c.Close()

	s, err := c.Stats()
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		b, _ := json.MarshalIndent(map[string]interface{}{
			"path":     e.paths.CacheDB,
			"runs":     s.Runs,
			"mappings": s.Mappings,
			"last_run": nullStr(s.Last),
		}, "", "  ")
		fmt.Fprintln(out, string(b))
		return nil
	}

	fmt.Fprintf(out, "%sleakmap cache%s  %s%s%s\n\n", format.Bold, format.Reset, format.Dim, e.paths.CacheDB, format.Reset)
	fmt.Fprintf(out, "  Cached runs:  %d\n", s.Runs)
	fmt.Fprintf(out, "  Mappings:     %d\n", s.Mappings)
	fmt.Fprintf(out, "  Last run:     %s\n", nullStr(s.Last))
	return nil
}

func runCacheClear(cmd *cobra.Command) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	c, err := e.openCache(false)
	if err != nil {
		return err
	}
	if c == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled.")
		return nil
	}
	defer c.Close()

	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return nil
}

func nullStr(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
