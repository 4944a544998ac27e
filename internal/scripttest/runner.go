package scripttest

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"youth/internal/config"
	"youth/internal/runner"
)

// Pattern is the suffix Discover looks for inside directories.
const Pattern = "_test.youth"

// Result is the outcome of one script.
type Result struct {
	Name     string
	File     string
	Passed   bool
	Failed   bool
	Skipped  bool
	Duration time.Duration
	Error    error
	Message  string
}

// Suite groups the scripts of one directory.
type Suite struct {
	Name     string
	Results  []Result
	Duration time.Duration
}

type Stats struct {
	TotalTests   int
	PassedTests  int
	FailedTests  int
	SkippedTests int
	TotalTime    time.Duration
	Suites       int
	SourceBytes  uint64
}

// OK reports whether no script failed.
func (s *Stats) OK() bool {
	return s.FailedTests == 0
}

type Runner struct {
	cfg      config.TestConfig
	reporter Reporter
	logger   logrus.FieldLogger
}

type Option func(*Runner)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithReporter overrides the reporter picked from the configured format.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) {
		r.reporter = rep
	}
}

// NewRunner builds a runner reporting to out in cfg.Format.
func NewRunner(cfg config.TestConfig, out io.Writer, opts ...Option) *Runner {
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}

	var reporter Reporter
	switch cfg.Format {
	case "json":
		reporter = NewJSONReporter(out)
	case "junit":
		reporter = NewJUnitReporter(out)
	default:
		reporter = NewTextReporter(out, false)
	}

	r := &Runner{cfg: cfg, reporter: reporter, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var errFailFast = errors.New("stopping after first failure")

// Run executes files with bounded parallelism and reports them grouped by
// directory, in the order given.
func (r *Runner) Run(ctx context.Context, files []string) *Stats {
	start := time.Now()
	stats := &Stats{}
	results := make([]Result, len(files))
	var sourceBytes atomic.Uint64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)
	for i, file := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = Result{Name: scriptName(file), File: file, Skipped: true, Message: "not run"}
				return nil
			}
			res, size := r.runScript(file)
			results[i] = res
			sourceBytes.Add(uint64(size))
			if res.Failed && r.cfg.FailFast {
				return errFailFast
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errFailFast) {
		r.logger.WithError(err).Warn("script run aborted")
	}
	stats.SourceBytes = sourceBytes.Load()

	for _, suite := range groupSuites(files, results) {
		r.reporter.StartSuite(suite)
		for _, res := range suite.Results {
			switch {
			case res.Failed:
				r.reporter.TestFailed(res)
			case res.Skipped:
				r.reporter.TestSkipped(res)
			default:
				r.reporter.TestPassed(res)
			}
		}
		r.reporter.EndSuite(suite)
		updateStats(stats, suite)
	}

	stats.TotalTime = time.Since(start)
	r.reporter.Summary(stats)
	return stats
}

func (r *Runner) runScript(file string) (Result, int) {
	res := Result{Name: scriptName(file), File: file}
	start := time.Now()

	data, err := os.ReadFile(file)
	if err != nil {
		res.Failed = true
		res.Error = err
		return res, 0
	}

	script, err := ParseScript(file, string(data))
	if err != nil {
		res.Failed = true
		res.Error = err
		res.Duration = time.Since(start)
		return res, len(data)
	}

	result := runner.Run(script.Source, runner.WithFile(file), runner.WithLogger(r.logger))
	failures := script.Check(result)
	res.Duration = time.Since(start)
	if len(failures) > 0 {
		res.Failed = true
		res.Message = strings.Join(failures, "\n")
		r.logger.WithField("file", file).Debug("script failed")
	} else {
		res.Passed = true
	}
	return res, len(data)
}

// Discover expands paths into script files. Files are taken as given;
// directories are searched recursively for *_test.youth.
func Discover(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), Pattern) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

func scriptName(file string) string {
	return strings.TrimSuffix(filepath.Base(file), ".youth")
}

func groupSuites(files []string, results []Result) []*Suite {
	var suites []*Suite
	index := make(map[string]*Suite)
	for i, file := range files {
		dir := filepath.Dir(file)
		suite, ok := index[dir]
		if !ok {
			suite = &Suite{Name: dir}
			index[dir] = suite
			suites = append(suites, suite)
		}
		suite.Results = append(suite.Results, results[i])
		suite.Duration += results[i].Duration
	}
	return suites
}

func updateStats(stats *Stats, suite *Suite) {
	stats.Suites++
	for _, result := range suite.Results {
		stats.TotalTests++
		if result.Passed {
			stats.PassedTests++
		} else if result.Failed {
			stats.FailedTests++
		} else if result.Skipped {
			stats.SkippedTests++
		}
	}
}
