package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/ssr/internal/cache"
	"github.com/gnoswap-labs/ssr/internal/config"
	"github.com/gnoswap-labs/ssr/internal/engine"
	"github.com/gnoswap-labs/ssr/internal/pattern"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile string
	timeout time.Duration
	verbose bool

	logger = zap.NewNop()
)

// query flags shared by search, replace and watch
var (
	patternFlag     string
	replacementFlag string
	constraintFlags []string
	countFlags      []string
	caseSensitive   bool
	looseFlag       bool
	modeFlag        string
	ruleFlags       []string
	ignoreRules     []string
	excludeFlags    []string
	cacheDir        string
)

var rootCmd = &cobra.Command{
	Use:              "ssr",
	Short:            "ssr - structural search and replace for Go source",
	SilenceUsage:     true,
	TraverseChildren: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "rules", "c", "", "Rules file (default "+config.DefaultPath+" when no pattern is given)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Give up after this long")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Development logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(watchCmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&patternFlag, "pattern", "p", "", "Search template; overrides the rules file")
	cmd.Flags().StringArrayVar(&constraintFlags, "constraint", nil, "Constraint row NAME=EXPR for a pattern variable (repeatable)")
	cmd.Flags().StringArrayVar(&countFlags, "count", nil, "Count row NAME=MIN,MAX for a pattern variable (repeatable)")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Compare names and literals case-sensitively")
	cmd.Flags().BoolVar(&looseFlag, "loose", false, "Ignore redundant parentheses and block braces")
	cmd.Flags().StringVar(&modeFlag, "mode", "", "Search mode: tree (default) or single")
	cmd.Flags().StringSliceVar(&ruleFlags, "rule", nil, "Only run these rules from the rules file")
	cmd.Flags().StringSliceVar(&ignoreRules, "ignore", nil, "Rules to skip")
	cmd.Flags().StringSliceVar(&excludeFlags, "exclude", nil, "Skip paths matching these globs")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache search results in this directory")
}

// queryRules returns the rule built from the pattern flags, or the rules
// of the rules file when no pattern is given.
func queryRules() ([]config.Rule, []string, error) {
	if patternFlag == "" {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, nil, fmt.Errorf("no --pattern given and %w", err)
		}
		rules, err := cfg.Select(ruleFlags...)
		if err != nil {
			return nil, nil, err
		}
		return rules, cfg.Exclude, nil
	}

	rule := config.Rule{
		Name:          "query",
		Pattern:       patternFlag,
		Replacement:   replacementFlag,
		CaseSensitive: caseSensitive,
		Loose:         looseFlag,
		Reformat:      reformatFlag,
		Mode:          modeFlag,
	}
	specs, err := variableSpecs(constraintFlags, countFlags)
	if err != nil {
		return nil, nil, err
	}
	rule.Variables = specs
	return []config.Rule{rule}, nil, nil
}

// variableSpecs merges NAME=VALUE flag rows into constraint table rows,
// in the order names first appear.
func variableSpecs(constraints, counts []string) ([]pattern.VariableSpec, error) {
	var specs []pattern.VariableSpec
	index := make(map[string]int)
	row := func(name string) *pattern.VariableSpec {
		if i, ok := index[name]; ok {
			return &specs[i]
		}
		index[name] = len(specs)
		specs = append(specs, pattern.VariableSpec{Name: name})
		return &specs[len(specs)-1]
	}
	for _, c := range constraints {
		name, expr, ok := strings.Cut(c, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--constraint %q: want NAME=EXPR", c)
		}
		r := row(name)
		if r.Constraint != "" {
			r.Constraint += " && "
		}
		r.Constraint += expr
	}
	for _, c := range counts {
		name, count, ok := strings.Cut(c, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--count %q: want NAME=MIN,MAX", c)
		}
		row(name).Count = count
	}
	return specs, nil
}

// newEngine builds the engine the query flags describe.
func newEngine() (*engine.Engine, error) {
	rules, excludes, err := queryRules()
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithExcludes(excludes...),
		engine.WithExcludes(excludeFlags...),
	}
	if cacheDir != "" {
		c, err := cache.New(cacheDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithCache(c))
	}
	e, err := engine.New(rules, opts...)
	if err != nil {
		return nil, err
	}
	for _, name := range ignoreRules {
		e.IgnoreRule(strings.TrimSpace(name))
	}
	return e, nil
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
