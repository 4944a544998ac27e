// Package repl implements the interactive prompt.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"youth/internal/config"
	"youth/internal/history"
	"youth/internal/runner"
)

const banner = "youth REPL | type :quit to leave, :help for commands"

const helpText = `:quit, exit   leave the REPL
:help         show this help
:reset        forget every global defined so far
Input continues on the next line while a statement is unfinished.`

// lineReader is satisfied by *liner.State and by the plain reader used when
// stdin is not a terminal.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

type REPL struct {
	cfg      config.REPLConfig
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	logger   logrus.FieldLogger
	recorder history.Recorder
	session  *runner.Session
	color    bool
}

type Option func(*REPL)

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(r *REPL) {
		r.in, r.out, r.errOut = in, out, errOut
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *REPL) {
		r.logger = logger
	}
}

// WithRecorder records each evaluated entry.
func WithRecorder(rec history.Recorder) Option {
	return func(r *REPL) {
		r.recorder = rec
	}
}

func New(cfg config.REPLConfig, opts ...Option) *REPL {
	r := &REPL{
		cfg:    cfg,
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.reset()
	return r
}

func (r *REPL) reset() {
	r.session = runner.NewSession(runner.WithStdout(r.out), runner.WithLogger(r.logger))
}

// Start runs until :quit or end of input.
func (r *REPL) Start(ctx context.Context) error {
	var reader lineReader
	if f, ok := r.in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		r.color = isatty.IsTerminal(os.Stderr.Fd())
		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)

		histPath := config.ExpandHome(r.cfg.HistoryFile)
		if histPath != "" {
			if hf, err := os.Open(histPath); err == nil {
				ln.ReadHistory(hf)
				hf.Close()
			}
			defer func() {
				if hf, err := os.Create(histPath); err == nil {
					ln.WriteHistory(hf)
					hf.Close()
				} else {
					r.logger.WithError(err).Warn("could not save REPL history")
				}
			}()
		}
		fmt.Fprintln(r.out, banner)
		reader = &linerReader{State: ln}
	} else {
		reader = &plainReader{scanner: bufio.NewScanner(r.in)}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		code, ok := r.readEntry(reader)
		if !ok {
			return nil
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if lr, ok := reader.(*linerReader); ok {
			lr.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		}

		if isCommand(trimmed) {
			if quit := r.command(trimmed); quit {
				return nil
			}
			continue
		}

		r.eval(ctx, code)
	}
}

func (r *REPL) command(cmd string) (quit bool) {
	switch strings.ToLower(cmd) {
	case ":quit", ":q", "exit":
		return true
	case ":help":
		fmt.Fprintln(r.out, helpText)
	case ":reset":
		r.reset()
		fmt.Fprintln(r.out, "globals cleared")
	default:
		fmt.Fprintf(r.out, "unknown command %s. Type :help for a list.\n", cmd)
	}
	return false
}

func (r *REPL) eval(ctx context.Context, code string) {
	result := r.session.Run(code)
	for _, e := range result.Errors {
		msg := e.Error()
		if r.color {
			msg = "\033[31m" + msg + "\033[0m"
		}
		fmt.Fprintln(r.errOut, msg)
	}

	if r.recorder != nil {
		if _, err := r.recorder.Record(ctx, history.NewEntry("repl", code, result)); err != nil {
			r.logger.WithError(err).Warn("failed to record REPL entry")
		}
	}
}

// readEntry reads lines until they form a complete entry. A parse that only
// fails for lack of input keeps reading with the continuation prompt.
func (r *REPL) readEntry(reader lineReader) (string, bool) {
	var b strings.Builder

	for {
		prompt := r.cfg.Prompt
		if b.Len() > 0 {
			prompt = r.cfg.ContinuePrompt
		}
		line, err := reader.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				// run what we have so the user sees the error
				return b.String(), true
			}
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C drops the pending entry
			b.Reset()
			continue
		}
		if err != nil {
			r.logger.WithError(err).Warn("read failed")
			return "", false
		}

		if b.Len() == 0 && isCommand(line) {
			return line, true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.TrimSpace(src) == "" || !runner.Incomplete(src) {
			return src, true
		}
	}
}

func isCommand(line string) bool {
	line = strings.TrimSpace(line)
	return line == "exit" || strings.HasPrefix(line, ":")
}

type linerReader struct {
	*liner.State
}

// plainReader reads lines without echoing prompts.
type plainReader struct {
	scanner *bufio.Scanner
}

func (p *plainReader) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}
