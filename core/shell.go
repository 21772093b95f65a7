package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/history"
	"github.com/josephlewis42/pipesh/core/jobs"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/shell"
)

// Shell interprets command lines, running built-ins in-process and
// everything else as OS processes.
type Shell struct {
	Config  *config.Configuration
	IO      shell.StdIO
	Jobs    *jobs.Table
	History *history.History
	Runner  *shell.Runner
	// Events records interpreter events, may be nil.
	Events logger.Recorder

	color   *ColorPrinter
	out     io.Writer
	lastRet int

	// Set to true to quit the shell
	Quit bool
}

// Option configures a Shell.
type Option func(*Shell)

// WithEvents records interpreter events to r.
func WithEvents(r logger.Recorder) Option {
	return func(s *Shell) {
		s.Events = r
	}
}

// WithJobTable replaces the job table.
func WithJobTable(t *jobs.Table) Option {
	return func(s *Shell) {
		s.Jobs = t
	}
}

// NewShell creates a shell reading and writing the given streams.
func NewShell(cfg *config.Configuration, stdio shell.StdIO, opts ...Option) *Shell {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Shell{
		Config:  cfg,
		IO:      stdio,
		Jobs:    jobs.NewTable(cfg.JobCapacity),
		History: history.New(cfg.HistorySize),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Runner = &shell.Runner{
		Launcher: &shell.Launcher{IO: stdio},
		Jobs:     s.Jobs,
		Events:   s.Events,
	}
	s.color = NewColorPrinter(cfg.Color, stdio.Stdout)
	return s
}

// LastStatus returns the exit status of the last line run.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

// Stdout is where built-ins write their output.
func (s *Shell) Stdout() io.Writer {
	switch {
	case s.out != nil:
		return s.out
	case s.IO.Stdout != nil:
		return s.IO.Stdout
	default:
		return io.Discard
	}
}

// Stderr is where diagnostics are written.
func (s *Shell) Stderr() io.Writer {
	if s.IO.Stderr == nil {
		return io.Discard
	}
	return s.IO.Stderr
}

// errorf writes a diagnostic line to stderr.
func (s *Shell) errorf(format string, a ...interface{}) {
	fmt.Fprintln(s.Stderr(), s.color.Sprintf(ColorBoldRed, format, a...))
}

func (s *Shell) record(event logger.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Record(event); err != nil {
		fmt.Fprintf(s.Stderr(), "pipesh: event log: %v\n", err)
	}
}

// Execute runs a single line and returns its exit status.
func (s *Shell) Execute(ctx context.Context, line string) int {
	if strings.TrimSpace(line) != "" {
		s.History.Add(line)
	}

	pipeline, err := shell.Parse(line, s.Config.Limits())
	if err != nil {
		s.errorf("pipesh: %v", err)
		s.lastRet = shell.StatusUsage
		return s.lastRet
	}
	if pipeline.Empty() {
		return s.lastRet
	}

	if len(pipeline.Stages) == 1 {
		stage := pipeline.Stages[0]
		if builtin, ok := LookupBuiltin(stage.Args); ok {
			s.lastRet = s.runBuiltin(builtin, stage)
			s.record(logger.Event{
				Type:    logger.EventBuiltin,
				Command: pipeline.Text,
				Args:    stage.Args,
				Status:  s.lastRet,
			})
			return s.lastRet
		}
	}

	result, err := s.Runner.Run(ctx, pipeline)
	if err != nil {
		s.errorf("pipesh: %v", err)
	}
	s.lastRet = result.Status

	var args []string
	if len(pipeline.Stages) > 0 {
		args = pipeline.Stages[0].Args
	}
	s.record(logger.Event{
		Type:    logger.EventCommand,
		Command: pipeline.Text,
		Args:    args,
		JobID:   result.JobID,
		Status:  result.Status,
	})
	return s.lastRet
}

// runBuiltin runs b with stdout sent to the stage's output redirect, if any.
func (s *Shell) runBuiltin(b ShellBuiltin, stage shell.Stage) int {
	if stage.Stdout != "" {
		f, err := os.OpenFile(stage.Stdout, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			s.errorf("%s: %v", stage.Name(), err)
			return shell.StatusFailure
		}
		defer f.Close()

		s.out = f
		defer func() { s.out = nil }()
	}

	return b.Main(s, stage.Args)
}
