package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/ssr/formatter"
	"github.com/gnoswap-labs/ssr/internal/engine"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Search files again each time they change",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			args = []string{"."}
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		e, err := newEngine()
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}
		logger.Info("Watching", zap.Strings("dirs", args), zap.Int("rules", len(e.Rules())))
		if err := e.Watch(ctx, args, printReport(os.Stdout)); err != nil {
			logger.Fatal("Error watching", zap.Error(err))
		}
	},
}

func init() {
	addQueryFlags(watchCmd)
}

func printReport(out io.Writer) engine.Report {
	return func(res *engine.FileResult, err error) {
		if err != nil {
			return
		}
		if len(res.Issues) == 0 {
			fmt.Fprintf(out, "%s: no matches\n", res.Filename)
			return
		}
		fmt.Fprint(out, formatter.GenerateFormattedIssue(res.Issues, formatter.NewSourceCode(res.Src)))
	}
}
