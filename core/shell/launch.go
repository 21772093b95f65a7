package shell

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
)

// StdIO holds the streams a stage falls back to when it is not piped or
// redirected.
type StdIO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// LaunchAttr holds per-launch process attributes.
type LaunchAttr struct {
	// Background places the process in its own process group and detaches
	// it from the controlling streams' stdin.
	Background bool
	// Pgid is the process group to join when Background is set, 0 starts a
	// new group led by the process.
	Pgid int
	// Dir is the working directory of the process, blank for the current one.
	Dir string
	// Env is the environment of the process, nil to inherit.
	Env []string
}

// StageError reports a stage that could not be started.
type StageError struct {
	// Name of the program.
	Name string
	// Kind is one of ErrExec, ErrRedirection or ErrLaunch.
	Kind error
	// Err is the underlying cause.
	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// StatusOf gives the exit status synthesized for a stage that failed with
// err.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrExec) && errors.Is(err, fs.ErrPermission):
		return StatusNotRunnable
	case errors.Is(err, ErrExec):
		return StatusNotFound
	default:
		return StatusFailure
	}
}

// Process is a started stage.
type Process struct {
	// Name of the program.
	Name string

	cmd *exec.Cmd
}

// Pid returns the OS process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait blocks until the process exits and returns its exit status. Processes
// killed by a signal report 128 plus the signal number.
func (p *Process) Wait() int {
	return exitStatus(p.cmd.Wait())
}

// Kill sends SIGKILL to the process.
func (p *Process) Kill() error {
	return p.cmd.Process.Kill()
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return statusSignalBase + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return StatusFailure
}

// Launcher starts stages as OS processes.
type Launcher struct {
	IO StdIO

	// LookPath resolves program names, defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

func (l *Launcher) lookPath(name string) (string, error) {
	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	path, err := lookPath(name)
	if errors.Is(err, exec.ErrDot) {
		// PATH searches that land in the current directory are allowed, the
		// same as a traditional shell.
		err = nil
	}
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			err = execErr.Err
		}
		return "", &StageError{Name: name, Kind: ErrExec, Err: err}
	}
	return path, nil
}

// Launch starts stage without waiting for it. A non-nil in replaces the
// default stdin and a non-nil out replaces the default stdout, redirects
// take precedence over both. The caller keeps ownership of in and out.
func (l *Launcher) Launch(stage Stage, in, out *os.File, attr LaunchAttr) (*Process, error) {
	path, err := l.lookPath(stage.Name())
	if err != nil {
		return nil, err
	}

	// A child that fails to chdir looks the same as a missing program, so
	// check the directory first.
	if attr.Dir != "" {
		if err := checkDir(attr.Dir); err != nil {
			return nil, &StageError{Name: stage.Name(), Kind: ErrLaunch, Err: err}
		}
	}

	var stdin io.Reader = l.IO.Stdin
	var stdout io.Writer = l.IO.Stdout
	switch {
	case in != nil:
		stdin = in
	case attr.Background:
		stdin = nil
	}
	if out != nil {
		stdout = out
	}

	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	if stage.Stdin != "" {
		f, err := os.Open(stage.Stdin)
		if err != nil {
			return nil, &StageError{Name: stage.Name(), Kind: ErrRedirection, Err: err}
		}
		opened = append(opened, f)
		stdin = f
	}

	if stage.Stdout != "" {
		f, err := os.OpenFile(stage.Stdout, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, &StageError{Name: stage.Name(), Kind: ErrRedirection, Err: err}
		}
		opened = append(opened, f)
		stdout = f
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   append([]string(nil), stage.Args...),
		Dir:    attr.Dir,
		Env:    attr.Env,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: l.IO.Stderr,
	}
	if attr.Background {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: attr.Pgid}
	}

	if err := cmd.Start(); err != nil {
		kind := ErrLaunch
		var pathErr *fs.PathError
		switch {
		case errors.As(err, &pathErr) && pathErr.Op == "chdir":
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.ENOEXEC):
			kind = ErrExec
		}
		return nil, &StageError{Name: stage.Name(), Kind: kind, Err: err}
	}

	return &Process{Name: stage.Name(), cmd: cmd}, nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &fs.PathError{Op: "chdir", Path: dir, Err: errors.Unwrap(err)}
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "chdir", Path: dir, Err: syscall.ENOTDIR}
	}
	return nil
}
