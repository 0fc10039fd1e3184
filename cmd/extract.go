package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jensroland/leakmap/internal/format"
	"github.com/jensroland/leakmap/internal/report"
)

// ExtractOptions holds command-line options for the extract command.
type ExtractOptions struct {
	JSON bool
}

// extraction is everything extract reads out of one report.
type extraction struct {
	Lines    []report.Line       `json:"lines"`
	Findings []report.Finding    `json:"findings"`
	Summary  []report.SummaryRow `json:"summary"`
}

func newExtractCommand() *cobra.Command {
	opts := &ExtractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <report.html>",
		Short: "Print the numbered lines, findings and summary of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string, opts *ExtractOptions) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}
	htmlText := string(data)
	ex := report.Extractor{CommentClasses: e.cfg.Report.CommentClasses}

	res := extraction{
		Lines:    ex.Lines(htmlText),
		Findings: ex.Findings(htmlText),
		Summary:  ex.Summary(htmlText),
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		if res.Lines == nil {
			res.Lines = []report.Line{}
		}
		if res.Findings == nil {
			res.Findings = []report.Finding{}
		}
		if res.Summary == nil {
			res.Summary = []report.SummaryRow{}
		}
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	format.FormatReportLines(out, res.Lines)
	if len(res.Findings) > 0 {
		fmt.Fprintf(out, "\n%sFindings%s\n", format.Bold, format.Reset)
		for _, f := range res.Findings {
			fmt.Fprintf(out, "  %-7s %s (after id %d)\n", f.Severity, f.Message(), f.Anchor)
		}
	}
	format.FormatSummary(out, res.Summary)
	return nil
}
