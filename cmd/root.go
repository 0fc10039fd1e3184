// Package cmd implements the leakmap command line.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jensroland/leakmap/internal/cache"
	"github.com/jensroland/leakmap/internal/config"
	"github.com/jensroland/leakmap/internal/project"
)

// logName is the debug log every command appends to.
const logName = "runs.log"

// errLeakage makes Execute exit 1 without printing an error.
var errLeakage = errors.New("leakage detected")

// Execute runs the root command and returns the exit code: 0 when clean,
// 1 when analyze found leakage, 2 on any other error.
func Execute(version string) int {
	root := NewRootCommand(version)
	if err := root.Execute(); err != nil {
		if errors.Is(err, errLeakage) {
			return 1
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// NewRootCommand creates the root cobra command.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "leakmap",
		Short: "Map data-leakage reports back onto notebooks and scripts",
		Long: `leakmap reads the HTML report of the leakage analyzer and works out which
line of the original notebook or script each report line came from.

Exit codes:
  0 - Success, no leakage
  1 - Leakage findings reported (analyze)
  2 - Configuration or runtime error`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("leakmap {{.Version}}\n")
	root.PersistentFlags().String("config", "", "Config file (default .leakmap.yaml if present)")

	root.AddCommand(newMapCommand())
	root.AddCommand(newExtractCommand())
	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newConvertCommand())
	root.AddCommand(newCacheCommand())
	root.AddCommand(newLogCommand())
	return root
}

// env is the resolved configuration a command runs with.
type env struct {
	cfg   *config.Config
	paths project.Paths
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, paths: project.NewPaths(cfg.Cache.Dir)}, nil
}

// openCache returns nil when caching is off.
func (e *env) openCache(disabled bool) (*cache.Cache, error) {
	if disabled || !e.cfg.Cache.Enabled {
		return nil, nil
	}
	c, err := cache.Open(e.paths.CacheDB)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}
