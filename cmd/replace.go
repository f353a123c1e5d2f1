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
)

var (
	dryRun       bool
	showDiff     bool
	reformatFlag bool
)

var replaceCmd = &cobra.Command{
	Use:   "replace [paths...]",
	Short: "Rewrite every match with its replacement",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		e, err := newEngine()
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}
		if err := runReplace(ctx, e, args, os.Stdout, dryRun, showDiff || dryRun); err != nil {
			logger.Error("Error replacing", zap.Error(err))
			os.Exit(2)
		}
	},
}

func init() {
	addQueryFlags(replaceCmd)
	replaceCmd.Flags().StringVarP(&replacementFlag, "replacement", "r", "", "Replacement template for --pattern")
	replaceCmd.Flags().BoolVar(&reformatFlag, "gofmt", false, "Run gofmt over rewritten files")
	replaceCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the changes without writing them")
	replaceCmd.Flags().BoolVar(&showDiff, "diff", false, "Print a unified diff of every rewritten file")
}

func runReplace(ctx context.Context, e *engine.Engine, paths []string, out io.Writer, dry, diff bool) error {
	hasTemplate := false
	for _, r := range e.Rules() {
		if r.Template != nil {
			hasTemplate = true
			break
		}
	}
	if !hasTemplate {
		return fmt.Errorf("no rule has a replacement")
	}

	results, summary, err := e.ProcessPaths(ctx, paths, e.Replace(!dry), engine.ProcessOptions{Progress: isTerminal()})
	if err != nil {
		return err
	}
	for _, res := range results {
		if !res.Changed() {
			continue
		}
		if !diff {
			logger.Info("Rewrote file", zap.String("file", res.Filename), zap.Int("edits", len(res.Edits)))
			continue
		}
		d, err := formatter.UnifiedDiff(res.Filename, res.Src, res.Fixed)
		if err != nil {
			return err
		}
		fmt.Fprint(out, formatter.ColorDiff(d))
	}
	fmt.Fprintln(os.Stderr, summary)
	return nil
}
