// Package engine runs compiled rules over files: it reads and parses
// them, searches every rule, honours suppression comments and applies
// replacements.
package engine

import (
	"context"
	"fmt"
	"go/token"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/ssr/internal/cache"
	"github.com/gnoswap-labs/ssr/internal/config"
	"github.com/gnoswap-labs/ssr/internal/matcher"
	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/profile"
	"github.com/gnoswap-labs/ssr/internal/replace"
	"github.com/gnoswap-labs/ssr/internal/suppress"
	"github.com/gnoswap-labs/ssr/internal/tree"
	"github.com/gnoswap-labs/ssr/internal/types"
)

// Rule is a compiled query.
type Rule struct {
	Name     string
	Message  string
	Severity types.Severity

	Pattern  *pattern.CompiledPattern
	Template *replace.Template // nil when the rule only searches
}

// CompileRule compiles a configured rule.
func CompileRule(r config.Rule) (*Rule, error) {
	opts := r.Options()
	cp, err := pattern.Compile(opts, nil)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	rule := &Rule{
		Name:     r.Name,
		Message:  r.Message,
		Severity: r.Level(),
		Pattern:  cp,
	}
	if opts.Replacement != "" {
		tmpl, err := replace.Compile(opts.Replacement, cp, opts.ReplacementVariables...)
		if err != nil {
			return nil, fmt.Errorf("rule %q replacement: %w", r.Name, err)
		}
		tmpl.Reformat = opts.Reformat
		tmpl.Imports = r.Imports
		rule.Template = tmpl
	}
	return rule, nil
}

// Engine runs a fixed set of rules. It is safe for concurrent use.
type Engine struct {
	rules        []*Rule
	ignoredRules map[string]bool
	excludes     []string

	cache       *cache.Cache
	fingerprint string
	logger      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-file failures.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCache stores search results in c.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithExcludes skips paths matching any of the doublestar globs.
func WithExcludes(globs ...string) Option {
	return func(e *Engine) { e.excludes = append(e.excludes, globs...) }
}

// New compiles rules into an engine.
func New(rules []config.Rule, opts ...Option) (*Engine, error) {
	e := &Engine{
		ignoredRules: make(map[string]bool),
		logger:       zap.NewNop(),
	}
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		rule, err := CompileRule(r)
		if err != nil {
			return nil, err
		}
		e.rules = append(e.rules, rule)
		parts = append(parts, fingerprintOf(r))
	}
	e.fingerprint = cache.Fingerprint(parts...)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func fingerprintOf(r config.Rule) string {
	return fmt.Sprintf("%+v", r)
}

// Rules returns the compiled rules in configuration order.
func (e *Engine) Rules() []*Rule { return e.rules }

// IgnoreRule disables a rule by name. Call it before running the engine.
func (e *Engine) IgnoreRule(name string) {
	e.ignoredRules[name] = true
}

// FileResult is the outcome of running the engine over one file.
type FileResult struct {
	Filename string
	Src      []byte
	Issues   []types.Issue

	// Fixed holds the rewritten source when replacements were applied
	// and changed something. Edits refer to the source each rule was
	// applied to, which is Src only for the first rule that changed it.
	Fixed []byte
	Edits []types.Edit

	Cached bool
}

// Changed reports whether replacements rewrote the file.
func (r *FileResult) Changed() bool { return r.Fixed != nil }

// Run searches a file with every rule.
func (e *Engine) Run(ctx context.Context, filename string) (*FileResult, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", filename, err)
	}
	return e.RunSource(ctx, filename, src)
}

// RunSource searches src with every rule. Issues are sorted by position.
func (e *Engine) RunSource(ctx context.Context, filename string, src []byte) (*FileResult, error) {
	res := &FileResult{Filename: filename, Src: src}

	var key string
	if e.cache != nil {
		key = cache.Key(src, e.cacheFingerprint())
		if issues, ok := e.cache.Get(key); ok {
			res.Issues = withFilename(issues, filename)
			res.Cached = true
			return res, nil
		}
	}

	t, err := profile.Go.Parse(filename, src)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	f, fset, _ := profile.Syntax(t)
	ignores := suppress.Parse(f, fset)
	words := profile.Go.Words(string(src))

	for _, rule := range e.rules {
		if e.ignoredRules[rule.Name] || !rule.Pattern.Plan.Admits(words) {
			continue
		}
		results, err := matcher.Search(ctx, rule.Pattern, t)
		if err != nil {
			return nil, fmt.Errorf("rule %q on %s: %w", rule.Name, filename, err)
		}
		for _, r := range results {
			issue, err := e.issue(rule, t, fset, r)
			if err != nil {
				return nil, fmt.Errorf("rule %q on %s: %w", rule.Name, filename, err)
			}
			if ignores.Suppressed(issue.Start.Line, rule.Name) {
				continue
			}
			res.Issues = append(res.Issues, issue)
		}
	}
	sortIssues(res.Issues)

	if e.cache != nil {
		e.cache.Set(key, res.Issues)
	}
	return res, nil
}

// cacheFingerprint folds the ignored rules into the rule fingerprint.
func (e *Engine) cacheFingerprint() string {
	if len(e.ignoredRules) == 0 {
		return e.fingerprint
	}
	ignored := make([]string, 0, len(e.ignoredRules)+1)
	for name := range e.ignoredRules {
		ignored = append(ignored, name)
	}
	sort.Strings(ignored)
	return cache.Fingerprint(append(ignored, e.fingerprint)...)
}

func (e *Engine) issue(rule *Rule, t *tree.Tree, fset *token.FileSet, r *matcher.Result) (types.Issue, error) {
	issue := types.Issue{
		Rule:     rule.Name,
		Filename: t.Name,
		Message:  rule.Message,
		Severity: rule.Severity,
		Matched:  r.Text(),
		Start:    position(fset, t, r.Start),
		End:      position(fset, t, r.End),
	}
	if names := r.Names(); len(names) > 0 {
		issue.Captures = make(map[string]string, len(names))
		for _, name := range names {
			issue.Captures[name] = r.CaptureText(name)
		}
	}
	if rule.Template != nil {
		text, err := rule.Template.Expand(r)
		if err != nil {
			return issue, err
		}
		issue.Suggestion = text
	}
	return issue, nil
}

func position(fset *token.FileSet, t *tree.Tree, offset int) token.Position {
	if fset != nil {
		var tf *token.File
		fset.Iterate(func(f *token.File) bool {
			tf = f
			return false
		})
		if tf != nil && offset <= tf.Size() {
			return tf.Position(tf.Pos(offset))
		}
	}
	line, col := 1, 1
	for _, c := range t.Src[:offset] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return token.Position{Filename: t.Name, Offset: offset, Line: line, Column: col}
}

func withFilename(issues []types.Issue, filename string) []types.Issue {
	out := make([]types.Issue, len(issues))
	for i, is := range issues {
		is.Filename = filename
		is.Start.Filename = filename
		is.End.Filename = filename
		out[i] = is
	}
	return out
}

func sortIssues(issues []types.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Start.Offset != b.Start.Offset {
			return a.Start.Offset < b.Start.Offset
		}
		return a.Rule < b.Rule
	})
}

// Fix applies the replacement of every rule that has one, in
// configuration order. Each rule sees the output of the previous one.
// Suppressed matches are left alone.
func (e *Engine) Fix(ctx context.Context, filename string, src []byte) (*FileResult, error) {
	res := &FileResult{Filename: filename, Src: src}
	current := src
	for _, rule := range e.rules {
		if rule.Template == nil || e.ignoredRules[rule.Name] {
			continue
		}
		if !rule.Pattern.Plan.Admits(profile.Go.Words(string(current))) {
			continue
		}
		t, err := profile.Go.Parse(filename, current)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s before rule %q: %w", filename, rule.Name, err)
		}
		results, err := matcher.Search(ctx, rule.Pattern, t)
		if err != nil {
			return nil, fmt.Errorf("rule %q on %s: %w", rule.Name, filename, err)
		}
		f, fset, _ := profile.Syntax(t)
		ignores := suppress.Parse(f, fset)
		kept := results[:0]
		for _, r := range results {
			issue, err := e.issue(rule, t, fset, r)
			if err != nil {
				return nil, fmt.Errorf("rule %q on %s: %w", rule.Name, filename, err)
			}
			if ignores.Suppressed(issue.Start.Line, rule.Name) {
				continue
			}
			res.Issues = append(res.Issues, issue)
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			continue
		}

		out, edits, err := replace.Apply(current, kept, rule.Template)
		if err != nil {
			return nil, fmt.Errorf("rule %q on %s: %w", rule.Name, filename, err)
		}
		current = out
		res.Edits = append(res.Edits, edits...)
	}
	if string(current) != string(src) {
		res.Fixed = current
	}
	return res, nil
}
