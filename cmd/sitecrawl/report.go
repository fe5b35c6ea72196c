package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [snapshot-file]",
		Short: "Summarize a crawl snapshot as Markdown",
		Long: `Report reads a JSON snapshot written by the crawl command and prints a
Markdown summary: results per status, pages per extraction method, and the
URLs that failed.

Examples:
  # Summarize crawl_data.json in the current directory
  sitecrawl report

  # Write the summary to a file
  sitecrawl report example.json -o summary.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReportCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Write the summary to a file instead of stdout")
	cmd.Flags().Int("max-failures", 100,
		"Maximum number of failed URLs listed (0 = all)")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	snapshotPath := config.DefaultOutputFile
	if len(args) > 0 {
		snapshotPath = args[0]
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	maxFailures, err := cmd.Flags().GetInt("max-failures")
	if err != nil {
		return err
	}

	results, err := report.ReadSnapshot(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	summary := report.NewSummary(snapshotPath, results)

	var out io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.Create(filepath.Clean(outputPath))
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if _, err := report.NewMarkdownWriter(out, report.WithMaxFailures(maxFailures)).Write(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if outputPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outputPath)
	}
	return nil
}
