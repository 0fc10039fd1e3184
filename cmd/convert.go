package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jensroland/leakmap/internal/source"
)

// ConvertOptions holds command-line options for the convert command.
type ConvertOptions struct {
	Output string
}

func newConvertCommand() *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <notebook.ipynb>",
		Short: "Write a notebook out as a Python script",
		Long: `Convert a notebook into the script form the analyzer reads: code cells are
copied, markdown lines are commented out, and each cell ends with a blank line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output path (default <notebook>.py)")
	return cmd
}

func runConvert(cmd *cobra.Command, args []string, opts *ConvertOptions) error {
	doc, err := source.Load(args[0])
	if err != nil {
		return err
	}
	if !doc.Notebook {
		return fmt.Errorf("%s is not a notebook", args[0])
	}

	out := opts.Output
	if out == "" {
		ext := filepath.Ext(args[0])
		out = args[0][:len(args[0])-len(ext)] + ".py"
	}
	if err := os.WriteFile(out, []byte(source.ToScript(doc)), 0o644); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d cells)\n", out, len(doc.Cells))
	return nil
}
