// cmd/youth/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"youth/internal/config"
	yerrors "youth/internal/errors"
	"youth/internal/history"
	"youth/internal/playground"
	"youth/internal/printer"
	"youth/internal/repl"
	"youth/internal/runner"
	"youth/internal/scripttest"
)

const VERSION = "1.0.0"

// Build variables, set with -ldflags.
var (
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Exit codes follow sysexits.h.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 64
	exitStatic  = 65
	exitRuntime = 70
	exitIO      = 74
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("youth", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default $"+config.EnvVar+")")
	debug := fs.Bool("debug", false, "log at debug level")
	fs.Usage = func() { showUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		fmt.Fprintf(stderr, "youth: %v\n", err)
		return exitUsage
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	a := &app{
		cfg:    cfg,
		logger: cfg.NewLogger(stderr),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return a.repl()
	}
	cmd, rest := rest[0], rest[1:]

	switch cmd {
	case "help", "-h", "--help":
		showUsage(stdout)
		return exitOK
	case "version", "--version":
		showVersion(stdout)
		return exitOK
	case "repl":
		return a.repl()
	case "run":
		if len(rest) != 1 {
			return a.usageError("run takes exactly one file")
		}
		return a.runFile(rest[0])
	case "check":
		if len(rest) != 1 {
			return a.usageError("check takes exactly one file")
		}
		return a.check(rest[0])
	case "ast":
		if len(rest) != 1 {
			return a.usageError("ast takes exactly one file")
		}
		return a.ast(rest[0])
	case "tokens":
		if len(rest) != 1 {
			return a.usageError("tokens takes exactly one file")
		}
		return a.tokens(rest[0])
	case "test":
		return a.test(rest)
	case "serve":
		if len(rest) != 0 {
			return a.usageError("serve takes no arguments")
		}
		return a.serve()
	case "history":
		return a.history(rest)
	}

	if len(rest) != 0 {
		return a.usageError(fmt.Sprintf("unknown command %q", cmd))
	}
	// a bare argument is a file to run
	return a.runFile(cmd)
}

func (a *app) usageError(msg string) int {
	fmt.Fprintf(a.stderr, "youth: %s\n", msg)
	fmt.Fprintln(a.stderr, "Run 'youth help' for usage.")
	return exitUsage
}

func (a *app) fail(err error) int {
	fmt.Fprintf(a.stderr, "youth: %v\n", err)
	return exitIO
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "could not read source")
	}
	return string(data), nil
}

func (a *app) printErrors(errs []*yerrors.Error) {
	for _, e := range errs {
		fmt.Fprintln(a.stderr, e.Error())
	}
}

// openHistory returns nil when history is disabled. A store that cannot be
// opened is logged and skipped so runs still work.
func (a *app) openHistory(ctx context.Context) *history.Store {
	if !a.cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(ctx, a.cfg.History.Driver, config.ExpandHome(a.cfg.History.DSN), a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("history disabled")
		return nil
	}
	return store
}

func (a *app) runFile(path string) int {
	source, err := readSource(path)
	if err != nil {
		return a.fail(err)
	}

	session := runner.NewSession(
		runner.WithFile(path),
		runner.WithStdout(a.stdout),
		runner.WithLogger(a.logger),
	)
	result := session.Run(source)
	a.printErrors(result.Errors)

	ctx := context.Background()
	if store := a.openHistory(ctx); store != nil {
		defer store.Close()
		if _, err := store.Record(ctx, history.NewEntry("run", source, result)); err != nil {
			a.logger.WithError(err).Warn("failed to record run")
		}
	}

	switch {
	case result.HadStaticError:
		return exitStatic
	case result.HadRuntimeError:
		return exitRuntime
	}
	return exitOK
}

func (a *app) check(path string) int {
	source, err := readSource(path)
	if err != nil {
		return a.fail(err)
	}
	if errs := runner.Check(source, runner.WithFile(path), runner.WithLogger(a.logger)); len(errs) > 0 {
		a.printErrors(errs)
		return exitStatic
	}
	fmt.Fprintf(a.stdout, "%s: ok\n", path)
	return exitOK
}

func (a *app) ast(path string) int {
	source, err := readSource(path)
	if err != nil {
		return a.fail(err)
	}
	stmts, errs := runner.Parse(source)
	if len(errs) > 0 {
		a.printErrors(errs)
		return exitStatic
	}
	fmt.Fprint(a.stdout, printer.NewPrinter().Format(stmts))
	return exitOK
}

func (a *app) tokens(path string) int {
	source, err := readSource(path)
	if err != nil {
		return a.fail(err)
	}
	toks, errs := runner.Tokens(source)
	for _, tok := range toks {
		pretty.Fprintf(a.stdout, "%v\t%# v\n", tok.Line, tok)
	}
	if len(errs) > 0 {
		a.printErrors(errs)
		return exitStatic
	}
	return exitOK
}

func (a *app) test(paths []string) int {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	files, err := scripttest.Discover(paths)
	if err != nil {
		return a.fail(err)
	}
	if len(files) == 0 {
		fmt.Fprintf(a.stderr, "youth: no %s files found\n", scripttest.Pattern)
		return exitFailed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := scripttest.NewRunner(a.cfg.Test, a.stdout, scripttest.WithLogger(a.logger)).Run(ctx, files)
	if !stats.OK() {
		return exitFailed
	}
	return exitOK
}

func (a *app) repl() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	opts := []repl.Option{
		repl.WithIO(a.stdin, a.stdout, a.stderr),
		repl.WithLogger(a.logger),
	}
	if store := a.openHistory(ctx); store != nil {
		defer store.Close()
		opts = append(opts, repl.WithRecorder(store))
	}
	if err := repl.New(a.cfg.REPL, opts...).Start(ctx); err != nil {
		return a.fail(err)
	}
	return exitOK
}

func (a *app) serve() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []playground.Option{playground.WithLogger(a.logger)}
	if store := a.openHistory(ctx); store != nil {
		defer store.Close()
		opts = append(opts, playground.WithRecorder(store))
	}
	if err := playground.NewServer(a.cfg.Serve, opts...).ListenAndServe(ctx); err != nil {
		return a.fail(errors.Wrap(err, "playground"))
	}
	return exitOK
}

func (a *app) history(args []string) int {
	if len(args) > 1 {
		return a.usageError("history takes at most one argument")
	}
	if !a.cfg.History.Enabled {
		fmt.Fprintln(a.stderr, "youth: history is disabled; set history.enabled in the config file")
		return exitUsage
	}

	ctx := context.Background()
	store, err := history.Open(ctx, a.cfg.History.Driver, config.ExpandHome(a.cfg.History.DSN), a.logger)
	if err != nil {
		return a.fail(errors.Wrap(err, "open history"))
	}
	defer store.Close()

	limit := 20
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return a.usageError(fmt.Sprintf("invalid count %q", args[0]))
		}
		limit = n
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return a.fail(err)
	}
	for _, e := range entries {
		fmt.Fprintf(a.stdout, "%s  %-10s  %-13s  %s  %s\n",
			shortID(e.ID), e.Origin, e.Status(), humanize.Time(e.CreatedAt), firstLine(e.Source))
	}
	return exitOK
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(source string) string {
	line, _, more := strings.Cut(strings.TrimSpace(source), "\n")
	if more {
		line += " ..."
	}
	return line
}

func showUsage(w io.Writer) {
	fmt.Fprintln(w, "youth - a small scripting language")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  youth [-config file] [-debug] <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  youth <file.youth>         Run a script")
	fmt.Fprintln(w, "  youth run <file.youth>     Run a script")
	fmt.Fprintln(w, "  youth repl                 Start the interactive prompt (default)")
	fmt.Fprintln(w, "  youth check <file.youth>   Report static errors without running")
	fmt.Fprintln(w, "  youth ast <file.youth>     Print the syntax tree")
	fmt.Fprintln(w, "  youth tokens <file.youth>  Print the token stream")
	fmt.Fprintln(w, "  youth test [paths...]      Run *_test.youth scripts")
	fmt.Fprintln(w, "  youth serve                Start the websocket playground")
	fmt.Fprintln(w, "  youth history [n]          List the n most recent runs")
	fmt.Fprintln(w, "  youth version              Print version information")
}

func showVersion(w io.Writer) {
	fmt.Fprintf(w, "youth v%s\n", VERSION)
	fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	if GitCommit != "unknown" {
		fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
	}
}
