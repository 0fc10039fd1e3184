package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jensroland/leakmap/internal/analyzer"
	"github.com/jensroland/leakmap/internal/annotate"
	"github.com/jensroland/leakmap/internal/format"
	"github.com/jensroland/leakmap/internal/report"
	"github.com/jensroland/leakmap/internal/source"
)

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	JSON    bool
	NoCache bool
}

// analysis is the outcome for one source file.
type analysis struct {
	Source      string                `json:"source"`
	Report      string                `json:"report"`
	RunID       string                `json:"run_id"`
	Annotations []annotate.Annotation `json:"annotations"`
	Summary     []report.SummaryRow   `json:"summary"`
	Leakage     bool                  `json:"leakage"`
}

func newAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <source>...",
		Short: "Run the leakage analyzer and map its findings onto the source",
		Long: `Run the containerized analyzer on each notebook or script, then map every
finding in its report back to the source lines it refers to.

Exit codes:
  0 - No leakage reported
  1 - Leakage reported for at least one file
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "Do not read or write the mapping cache")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := e.openCache(opts.NoCache)
	if err != nil {
		return err
	}
	if c != nil {
		defer c.Close()
	}

	runner := analyzer.Runner{
		Engine:   e.cfg.Analyzer.Engine,
		Image:    e.cfg.Analyzer.Image,
		MountDir: e.cfg.Analyzer.MountDir,
		Timeout:  e.cfg.Analyzer.Timeout,
	}
	stderr := &syncWriter{w: cmd.ErrOrStderr()}

	results := make([]analysis, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(e.cfg.Jobs, len(args)))

	for i, path := range args {
		g.Go(func() error {
			doc, err := source.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(stderr, "%sanalyzing %s%s\n", format.Dim, path, format.Reset)
			reportPath, err := runner.Run(gctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			htmlText, err := os.ReadFile(reportPath)
			if err != nil {
				return fmt.Errorf("reading report: %w", err)
			}

			sess := e.newSession(doc, c)
			defer sess.Dispose()
			if err := sess.Load(string(htmlText)); err != nil {
				fmt.Fprintf(stderr, "%swarning: cache: %v%s\n", format.Dim, err, format.Reset)
			}
			logRun(e, "analyze", reportPath, sess)

			results[i] = analysis{
				Source:      path,
				Report:      reportPath,
				RunID:       sess.RunID(),
				Annotations: sess.Annotations(),
				Summary:     sess.Summary(),
				Leakage:     sess.HasLeakage(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		b, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
	} else {
		for _, r := range results {
			printAnalysis(out, r)
		}
	}

	for _, r := range results {
		if r.Leakage {
			return errLeakage
		}
	}
	return nil
}

func printAnalysis(w io.Writer, r analysis) {
	fmt.Fprintf(w, "%s%s%s  %s%s%s\n", format.Bold, r.Source, format.Reset, format.Dim, r.Report, format.Reset)
	if len(r.Annotations) == 0 {
		fmt.Fprintf(w, "  %sNo findings.%s\n", format.Green, format.Reset)
	}
	for _, a := range r.Annotations {
		format.FormatAnnotation(w, a)
	}
	format.FormatSummary(w, r.Summary)
	fmt.Fprintln(w)
}

// syncWriter serializes progress output from concurrent workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
