package core

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/josephlewis42/pipesh/core/jobs"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// LookupBuiltin finds the builtin that should handle args in-process. A kill
// with more than one operand is left to the kill program.
func LookupBuiltin(args []string) (ShellBuiltin, bool) {
	if len(args) == 0 {
		return nil, false
	}
	if args[0] == "kill" && len(args) > 2 {
		return nil, false
	}
	b, ok := AllBuiltins[args[0]]
	return b, ok
}

// BuiltinNames returns the sorted names of every builtin.
func BuiltinNames() []string {
	var names []string
	for k := range AllBuiltins {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	if len(args) < 2 {
		fmt.Fprintf(s.Stderr(), "%s: missing argument\n", args[0])
		return 1
	}
	if err := os.Chdir(args[1]); err != nil {
		fmt.Fprintf(s.Stderr(), "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// Exit quits the shell
func Exit(s *Shell, args []string) int {
	s.Quit = true
	return s.lastRet
}

func History(s *Shell, args []string) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.Stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: history [-c]")
		fmt.Fprintln(w, "Display the history list with line numbers.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	if *clear {
		s.History.Clear()
		return 0
	}

	for i, line := range s.History.Entries() {
		fmt.Fprintf(s.Stdout(), "%d: %s\n", i+1, line)
	}
	return 0
}

// Jobs lists the live background jobs.
func Jobs(s *Shell, args []string) int {
	opts := getopt.New()
	long := opts.Bool('l', "include the time each job started")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.Stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: jobs [-l]")
		fmt.Fprintln(w, "Display the status of background jobs.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	w := s.Stdout()
	for _, job := range s.Jobs.List() {
		if *long {
			fmt.Fprintf(w, "[%d] %d %s %s\n", job.ID, job.Handle, job.Started.Format(time.RFC3339), job.Command)
		} else {
			fmt.Fprintf(w, "[%d] %d %s\n", job.ID, job.Handle, job.Command)
		}
	}
	return 0
}

// Kill terminates a background job by id.
func Kill(s *Shell, args []string) int {
	if len(args) < 2 {
		fmt.Fprintf(s.Stderr(), "%s: missing argument\n", args[0])
		return 1
	}

	id, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(s.Stderr(), "%s: invalid job id: %s\n", args[0], args[1])
		return 1
	}

	job, _ := s.Jobs.Lookup(id)
	switch err := s.Jobs.Terminate(id); {
	case errors.Is(err, jobs.ErrInvalidJobID):
		fmt.Fprintf(s.Stderr(), "%s: invalid job id: %s\n", args[0], args[1])
		return 1
	case err != nil:
		fmt.Fprintf(s.Stderr(), "%s: %s: %v\n", args[0], args[1], err)
		return 1
	}

	s.record(logger.Event{
		Type:    logger.EventJobKilled,
		Command: job.Command,
		JobID:   job.ID,
		Pid:     job.Handle,
	})
	return 0
}

func Help(s *Shell, args []string) int {
	w := s.Stdout()
	fmt.Fprintln(w, "pipesh, a small POSIX-style shell")
	fmt.Fprintln(w, "Commands may be joined with '|', redirected with '<' and '>',")
	fmt.Fprintln(w, "and run in the background with a trailing '&'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)

	for _, name := range BuiltinNames() {
		fmt.Fprintln(w, name)
	}

	return 0
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["kill"] = ShellBuiltinFunc(Kill)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
