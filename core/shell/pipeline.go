package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/josephlewis42/pipesh/core/logger"
)

// JobRegistrar takes ownership of background pipelines.
type JobRegistrar interface {
	// Register records a running pipeline and returns its job id.
	Register(handle int, commandText string) (int, error)
	// Reap marks the pipeline with the given handle as finished.
	Reap(handle int)
}

// Result is the outcome of running a pipeline.
type Result struct {
	// Status is the exit status of the pipeline. Background pipelines report
	// 0 unless a stage failed to start.
	Status int
	// JobID is the job table id of a background pipeline, 0 if it wasn't
	// registered.
	JobID int
	// Pids holds the ids of every process started.
	Pids []int
}

// Runner connects and runs the stages of a pipeline.
type Runner struct {
	Launcher *Launcher
	// Jobs receives background pipelines, they are still run and reaped if
	// it's nil.
	Jobs JobRegistrar
	// Events records job lifecycle events, may be nil.
	Events logger.Recorder

	// Dir and Env are passed to every launched process.
	Dir string
	Env []string

	// pipe creates the pipe between two stages, os.Pipe if nil.
	pipe func() (r *os.File, w *os.File, err error)
}

func (r *Runner) newPipe() (*os.File, *os.File, error) {
	if r.pipe == nil {
		return os.Pipe()
	}
	return r.pipe()
}

func (r *Runner) stdout() io.Writer {
	if r.Launcher.IO.Stdout == nil {
		return io.Discard
	}
	return r.Launcher.IO.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Launcher.IO.Stderr == nil {
		return io.Discard
	}
	return r.Launcher.IO.Stderr
}

func (r *Runner) record(event logger.Event) {
	if r.Events == nil {
		return
	}
	if err := r.Events.Record(event); err != nil {
		fmt.Fprintf(r.stderr(), "pipesh: event log: %v\n", err)
	}
}

// Run starts every stage of p. Foreground pipelines are waited on until all
// of their processes exit, background pipelines are registered as a job and
// Run returns immediately.
//
// Stages that fail to exec or redirect are reported and skipped, the rest of
// the pipeline still runs. A failure to create a pipe or process kills the
// stages already started and is returned as an error.
func (r *Runner) Run(ctx context.Context, p *Pipeline) (Result, error) {
	if p.Empty() {
		return Result{}, nil
	}

	var (
		procs       []*Process
		pids        []int
		prevRead    *os.File
		pgid        int
		failed      bool
		firstFailed int
	)

	for i, stage := range p.Stages {
		if err := ctx.Err(); err != nil {
			closeFiles(prevRead)
			r.abort(procs)
			return Result{Status: StatusFailure, Pids: pids}, &StageError{Name: stage.Name(), Kind: ErrLaunch, Err: err}
		}

		var readEnd, writeEnd *os.File
		if i < len(p.Stages)-1 {
			var err error
			readEnd, writeEnd, err = r.newPipe()
			if err != nil {
				closeFiles(prevRead)
				r.abort(procs)
				return Result{Status: StatusFailure, Pids: pids}, &StageError{Name: stage.Name(), Kind: ErrLaunch, Err: err}
			}
		}

		proc, err := r.Launcher.Launch(stage, prevRead, writeEnd, LaunchAttr{
			Background: p.Background,
			Pgid:       pgid,
			Dir:        r.Dir,
			Env:        r.Env,
		})

		// The child holds its own copies now.
		closeFiles(prevRead, writeEnd)
		prevRead = readEnd

		switch {
		case err == nil:
			procs = append(procs, proc)
			pids = append(pids, proc.Pid())
			if p.Background && pgid == 0 {
				pgid = proc.Pid()
			}

		case errors.Is(err, ErrLaunch):
			closeFiles(prevRead)
			r.abort(procs)
			return Result{Status: StatusFailure, Pids: pids}, err

		default:
			fmt.Fprintf(r.stderr(), "pipesh: %v\n", err)
			r.record(logger.Event{
				Type:    logger.EventUnknownCommand,
				Command: p.Text,
				Args:    stage.Args,
				Status:  StatusOf(err),
				Error:   err.Error(),
			})
			if !failed {
				failed = true
				firstFailed = StatusOf(err)
			}
		}
	}

	if p.Background {
		return r.detach(p, procs, pgid, firstFailed), nil
	}

	stop := context.AfterFunc(ctx, func() {
		for _, proc := range procs {
			proc.Kill()
		}
	})
	defer stop()

	status := firstFailed
	for i, proc := range procs {
		s := proc.Wait()
		if !failed && i == len(procs)-1 {
			status = s
		}
	}

	return Result{Status: status, Pids: pids}, nil
}

func (r *Runner) detach(p *Pipeline, procs []*Process, pgid int, firstFailed int) Result {
	result := Result{Status: firstFailed}
	for _, proc := range procs {
		result.Pids = append(result.Pids, proc.Pid())
	}
	if len(procs) == 0 {
		return result
	}

	if r.Jobs != nil {
		id, err := r.Jobs.Register(pgid, p.Text)
		if err != nil {
			fmt.Fprintf(r.stderr(), "pipesh: %v: %d not tracked\n", err, pgid)
		}
		result.JobID = id
	}

	if result.JobID > 0 {
		fmt.Fprintf(r.stdout(), "[%d] Started background job: %d\n", result.JobID, pgid)
	} else {
		fmt.Fprintf(r.stdout(), "Started background job: %d\n", pgid)
	}

	r.record(logger.Event{
		Type:    logger.EventJobStarted,
		Command: p.Text,
		JobID:   result.JobID,
		Pid:     pgid,
	})

	jobID := result.JobID
	go func() {
		status := 0
		for _, proc := range procs {
			status = proc.Wait()
		}
		// A stage that never started decides the status, as in the
		// foreground.
		if firstFailed != 0 {
			status = firstFailed
		}
		if r.Jobs != nil {
			r.Jobs.Reap(pgid)
		}
		r.record(logger.Event{
			Type:    logger.EventJobFinished,
			Command: p.Text,
			JobID:   jobID,
			Pid:     pgid,
			Status:  status,
		})
	}()

	return result
}

// abort kills and reaps processes from a pipeline that can't be completed.
func (r *Runner) abort(procs []*Process) {
	for _, proc := range procs {
		proc.Kill()
	}
	for _, proc := range procs {
		proc.Wait()
	}
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}
