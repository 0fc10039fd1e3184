package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jensroland/leakmap/internal/cache"
	"github.com/jensroland/leakmap/internal/debug"
	"github.com/jensroland/leakmap/internal/format"
	"github.com/jensroland/leakmap/internal/linemap"
	"github.com/jensroland/leakmap/internal/lineset"
	"github.com/jensroland/leakmap/internal/report"
	"github.com/jensroland/leakmap/internal/session"
	"github.com/jensroland/leakmap/internal/source"
)

// MapOptions holds command-line options for the map command.
type MapOptions struct {
	JSON    bool
	Lines   string
	Explain   int
	Unmatched bool
	NoCache   bool
}

func newMapCommand() *cobra.Command {
	opts := &MapOptions{}

	cmd := &cobra.Command{
		Use:   "map <report.html> <source>",
		Short: "Map report lines to source lines",
		Long: `Extract the lines of an analyzer report and reconcile them with the source
document (.ipynb notebook or script) the report was produced from.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output mappings as JSON")
	cmd.Flags().StringVarP(&opts.Lines, "lines", "L", "", "Only these report lines (e.g. 5,7-9)")
	cmd.Flags().BoolVar(&opts.Unmatched, "unmatched", false, "Also select report lines with no source match")
	cmd.Flags().IntVar(&opts.Explain, "explain", 0, "Compare report line N with each source line it matched")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "Do not read or write the mapping cache")
	return cmd
}

func runMap(cmd *cobra.Command, args []string, opts *MapOptions) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	var sel lineset.LineSet
	if opts.Lines != "" {
		if sel, err = lineset.Parse(opts.Lines); err != nil {
			return fmt.Errorf("invalid --lines: %w", err)
		}
	}

	htmlText, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}
	doc, err := source.Load(args[1])
	if err != nil {
		return err
	}

	c, err := e.openCache(opts.NoCache)
	if err != nil {
		return err
	}
	if c != nil {
		defer c.Close()
	}

	sess := e.newSession(doc, c)
	defer sess.Dispose()
	if err := sess.Load(string(htmlText)); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%swarning: cache: %v%s\n", format.Dim, err, format.Reset)
	}
	logRun(e, "map", args[0], sess)

	out := cmd.OutOrStdout()
	table := sess.Table()

	if opts.Explain > 0 {
		return explainLine(out, sess, opts.Explain)
	}

	var mappings []linemap.Mapping
	if opts.Unmatched {
		// An empty selection means "everything" to Select.
		if sel = sel.Union(table.Unmatched()); !sel.IsEmpty() {
			mappings = table.Select(sel)
		}
	} else {
		mappings = table.Select(sel)
	}
	if opts.JSON {
		if mappings == nil {
			mappings = []linemap.Mapping{}
		}
		b, err := json.MarshalIndent(mappings, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	fmt.Fprintf(out, "%s%s%s  %s(%d report lines, %d source lines, %d mappings)%s\n\n",
		format.Bold, args[1], format.Reset, format.Dim,
		table.ReportLines().Len(), doc.LineCount(), table.Len(), format.Reset)
	format.FormatMappings(out, mappings)
	if um := table.Unmatched(); !um.IsEmpty() {
		fmt.Fprintf(out, "\n%sUnmatched report lines: %s%s\n", format.Yellow, um, format.Reset)
	}
	return nil
}

func (e *env) newSession(doc source.Document, c *cache.Cache) *session.Session {
	sess := session.New(doc, report.Extractor{CommentClasses: e.cfg.Report.CommentClasses})
	if c != nil {
		sess.WithCache(c, cache.ReportHash)
	}
	return sess
}

// explainLine shows, for report line n, how its content compares with
// every source line it was matched to.
func explainLine(w io.Writer, sess *session.Session, n int) error {
	var content []string
	for _, l := range sess.Lines() {
		if l.Number == n {
			content = append(content, l.Content)
		}
	}
	if len(content) == 0 {
		return fmt.Errorf("report line %d not found", n)
	}
	left := strings.Join(content, "\n")

	for _, m := range sess.Table().ForReportLine(n) {
		if !m.Matched() {
			fmt.Fprintln(w, format.FormatBox(fmt.Sprintf("Report L%d", n), []string{
				left, "", "No source line matched this report line.",
			}))
			continue
		}
		fmt.Fprintln(w, format.FormatSideBySideDiff(
			fmt.Sprintf("Report L%d", n), left,
			"Source "+format.Location(m), m.Text))
	}
	return nil
}

func logRun(e *env, command, reportPath string, sess *session.Session) {
	table := sess.Table()
	debug.Log(e.paths.LogDir, logName, command, map[string]interface{}{
		"run_id":       sess.RunID(),
		"report":       reportPath,
		"source":       sess.Document().Path,
		"report_lines": len(sess.Lines()),
		"mappings":     table.Len(),
		"unmatched":    table.Unmatched(),
		"cached":       sess.Cached(),
		"findings":     len(sess.Annotations()),
	})
}
