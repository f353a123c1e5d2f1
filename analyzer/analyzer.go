// Package analyzer exposes ssr rules as a go/analysis pass, so they can
// run under go vet style drivers and editors. Replacements become
// suggested fixes.
package analyzer

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/tools/go/analysis"

	"github.com/gnoswap-labs/ssr/internal/config"
	"github.com/gnoswap-labs/ssr/internal/engine"
)

const doc = `report structural search matches

The rules are read from the YAML file named by -rules (default .ssr.yaml).
Each match is reported under its rule name; rules with a replacement
carry it as a suggested fix.`

// Analyzer loads its rules from the -rules flag on first use.
var Analyzer = &analysis.Analyzer{
	Name: "ssr",
	Doc:  doc,
	Run:  runFromFlags,
}

var rulesFile string

func init() {
	Analyzer.Flags.StringVar(&rulesFile, "rules", config.DefaultPath, "rules file")
}

func runFromFlags(pass *analysis.Pass) (any, error) {
	cfg, err := config.Load(rulesFile)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(cfg.Rules, engine.WithExcludes(cfg.Exclude...))
	if err != nil {
		return nil, err
	}
	return nil, run(pass, e)
}

// New returns an analyzer running the given rules.
func New(rules []config.Rule) (*analysis.Analyzer, error) {
	e, err := engine.New(rules)
	if err != nil {
		return nil, err
	}
	return &analysis.Analyzer{
		Name: "ssr",
		Doc:  doc,
		Run: func(pass *analysis.Pass) (any, error) {
			return nil, run(pass, e)
		},
	}, nil
}

func run(pass *analysis.Pass, e *engine.Engine) error {
	ctx := context.Background()
	for _, file := range pass.Files {
		tf := pass.Fset.File(file.Pos())
		if tf == nil || e.Excluded(tf.Name()) {
			continue
		}
		src, err := os.ReadFile(tf.Name())
		if err != nil {
			return err
		}
		if len(src) != tf.Size() {
			// The file changed since it was parsed; offsets would be off.
			continue
		}
		res, err := e.RunSource(ctx, tf.Name(), src)
		if err != nil {
			return err
		}
		for _, is := range res.Issues {
			pos := tf.Pos(is.Start.Offset)
			end := tf.Pos(is.End.Offset)
			d := analysis.Diagnostic{
				Pos:      pos,
				End:      end,
				Category: is.Rule,
				Message:  message(is.Rule, is.Message, is.Matched),
			}
			if is.Suggestion != "" {
				d.SuggestedFixes = []analysis.SuggestedFix{{
					Message:   fmt.Sprintf("replace with %q", is.Suggestion),
					TextEdits: []analysis.TextEdit{{Pos: pos, End: end, NewText: []byte(is.Suggestion)}},
				}}
			}
			pass.Report(d)
		}
	}
	return nil
}

func message(rule, msg, matched string) string {
	if msg == "" {
		return fmt.Sprintf("%s: %s", rule, matched)
	}
	return fmt.Sprintf("%s: %s", rule, msg)
}
