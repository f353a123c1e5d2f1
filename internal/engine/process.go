package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

var desiredExtensions = map[string]bool{
	".go":  true,
	".gno": true,
}

func hasDesiredExtension(path string) bool {
	return desiredExtensions[filepath.Ext(path)]
}

// Excluded reports whether path matches one of the exclude globs.
func (e *Engine) Excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, glob := range e.excludes {
		if ok, _ := doublestar.Match(glob, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(glob, filepath.Base(slashed)); ok {
			return true
		}
	}
	return false
}

// Files expands paths into the Go and Gno files under them, sorted and
// without excluded ones. Files named explicitly are kept whatever their
// extension.
func (e *Engine) Files(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if e.Excluded(p) {
				if d.IsDir() && p != path {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && hasDesiredExtension(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", path, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Processor handles one file.
type Processor func(ctx context.Context, filename string) (*FileResult, error)

// Search returns a Processor that runs every rule over a file.
func (e *Engine) Search() Processor {
	return e.Run
}

// Replace returns a Processor that applies the replacements of every rule
// to a file. The file is written back when write is set.
func (e *Engine) Replace(write bool) Processor {
	return func(ctx context.Context, filename string) (*FileResult, error) {
		src, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", filename, err)
		}
		res, err := e.Fix(ctx, filename, src)
		if err != nil {
			return nil, err
		}
		if write && res.Changed() {
			info, err := os.Stat(filename)
			if err != nil {
				return nil, err
			}
			if err := os.WriteFile(filename, res.Fixed, info.Mode().Perm()); err != nil {
				return nil, fmt.Errorf("error writing %s: %w", filename, err)
			}
		}
		return res, nil
	}
}

// Summary describes a finished run.
type Summary struct {
	Files   int
	Failed  int
	Matched int // files with at least one issue
	Issues  int
	Changed int
	Cached  int
	Bytes   uint64
	Elapsed time.Duration
}

func (s Summary) String() string {
	out := fmt.Sprintf("%s %s in %s (%s), %s %s in %s %s",
		humanize.Comma(int64(s.Files)), plural(s.Files, "file", "files"),
		s.Elapsed.Round(time.Millisecond), humanize.Bytes(s.Bytes),
		humanize.Comma(int64(s.Issues)), plural(s.Issues, "match", "matches"),
		humanize.Comma(int64(s.Matched)), plural(s.Matched, "file", "files"))
	if s.Changed > 0 {
		out += fmt.Sprintf(", %s rewritten", humanize.Comma(int64(s.Changed)))
	}
	if s.Failed > 0 {
		out += fmt.Sprintf(", %s failed", humanize.Comma(int64(s.Failed)))
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// ProcessOptions controls ProcessPaths.
type ProcessOptions struct {
	// Progress draws a progress bar while processing a directory.
	Progress bool
	// Workers bounds the number of files processed at once. Zero means
	// runtime.NumCPU().
	Workers int
}

// ProcessPaths runs proc over every file under paths with a bounded pool
// of workers. A file that fails is logged and counted in the summary; the
// run goes on with the others. Results are sorted by file name.
func (e *Engine) ProcessPaths(ctx context.Context, paths []string, proc Processor, opts ProcessOptions) ([]*FileResult, Summary, error) {
	start := time.Now()
	files, err := e.Files(paths)
	if err != nil {
		return nil, Summary{}, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if opts.Progress && len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("searching"),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []*FileResult
		summary = Summary{Files: len(files)}
	)
	sem := make(chan struct{}, workers)

loop:
	for _, file := range files {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(fp string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := proc(ctx, fp)

			mu.Lock()
			defer mu.Unlock()
			if bar != nil {
				_ = bar.Add(1)
			}
			if err != nil {
				summary.Failed++
				e.logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
				return
			}
			summary.Bytes += uint64(len(res.Src))
			summary.Issues += len(res.Issues)
			if len(res.Issues) > 0 {
				summary.Matched++
			}
			if res.Changed() {
				summary.Changed++
			}
			if res.Cached {
				summary.Cached++
			}
			results = append(results, res)
		}(file)
	}
	wg.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	if e.cache != nil {
		if err := e.cache.Save(); err != nil {
			e.logger.Warn("Error saving cache", zap.String("dir", e.cache.Dir), zap.Error(err))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Filename < results[j].Filename
	})
	summary.Elapsed = time.Since(start)
	if err := ctx.Err(); err != nil {
		return results, summary, err
	}
	return results, summary, nil
}
