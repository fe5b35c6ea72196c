package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	exitOK          = 0
	exitFatal       = 1
	exitInterrupted = 130
)

// errInterrupted is returned by the crawl command when the crawl was stopped
// by a signal. Its snapshot has already been saved.
var errInterrupted = errors.New("crawl interrupted")

// NewRootCmd creates the root command for sitecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecrawl",
		Short: "Breadth-first crawler that extracts the main text of a website",
		Long: `sitecrawl crawls a single website breadth-first, starting from a seed URL.

Only URLs on the seed's exact host are followed. For every HTML page the
main content region is located, boilerplate is removed, and the visible
text is recorded together with the page title. Results are saved to a JSON
file at regular checkpoints and when the crawl ends or is interrupted.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return exitCode(NewRootCmd().Execute())
}

// exitCode maps the error of a command to an exit code and reports it.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInterrupted):
		return exitInterrupted
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitFatal
	}
}
