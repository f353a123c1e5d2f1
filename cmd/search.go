package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/ssr/formatter"
	"github.com/gnoswap-labs/ssr/internal/engine"
	"github.com/gnoswap-labs/ssr/internal/types"
)

var (
	jsonOutput bool
	outPath    string
)

var searchCmd = &cobra.Command{
	Use:   "search [paths...]",
	Short: "Report every match of a pattern or of the configured rules",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		e, err := newEngine()
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}

		out := io.Writer(os.Stdout)
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				logger.Fatal("Error creating output file", zap.String("path", outPath), zap.Error(err))
			}
			defer f.Close()
			out = f
		}

		found, err := runSearch(ctx, e, args, out, jsonOutput)
		if err != nil {
			logger.Error("Error searching", zap.Error(err))
			os.Exit(2)
		}
		if found {
			os.Exit(1)
		}
	},
}

func init() {
	addQueryFlags(searchCmd)
	searchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output matches as JSON")
	searchCmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the report to this file")
}

// runSearch reports the matches under paths to out and a summary to
// stderr. It reports whether anything matched.
func runSearch(ctx context.Context, e *engine.Engine, paths []string, out io.Writer, asJSON bool) (bool, error) {
	results, summary, err := e.ProcessPaths(ctx, paths, e.Search(), engine.ProcessOptions{Progress: isTerminal()})
	if err != nil {
		return false, err
	}

	var issues []types.Issue
	for _, res := range results {
		issues = append(issues, res.Issues...)
	}

	if asJSON {
		if err := formatter.WriteJSON(out, issues); err != nil {
			return false, err
		}
	} else {
		for _, res := range results {
			if len(res.Issues) == 0 {
				continue
			}
			fmt.Fprint(out, formatter.GenerateFormattedIssue(res.Issues, formatter.NewSourceCode(res.Src)))
		}
	}

	fmt.Fprintln(os.Stderr, summary)
	return len(issues) > 0, nil
}
