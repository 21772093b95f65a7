// Package jobs tracks background pipelines.
package jobs

import (
	"errors"
	"sort"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultCapacity is the number of jobs a table holds by default.
const DefaultCapacity = 50

var (
	// ErrInvalidJobID is returned for ids that don't refer to a live job.
	ErrInvalidJobID = errors.New("invalid job id")
	// ErrTableFull is returned when registering past the table capacity.
	ErrTableFull = errors.New("job table full")
)

// Job is a background pipeline.
type Job struct {
	// ID is the 1-based job number.
	ID int
	// Handle is the process group of the pipeline.
	Handle int
	// Command is the command line that started the job.
	Command string
	// Started is when the job was registered.
	Started time.Time
	// Live is true until the job exits or is terminated.
	Live bool
}

// Signaler delivers sig to a job's handle.
type Signaler func(handle int, sig syscall.Signal) error

// KillGroup signals every process in the process group handle.
func KillGroup(handle int, sig syscall.Signal) error {
	return unix.Kill(-handle, sig)
}

// Option configures a Table.
type Option func(*Table)

// WithSignaler replaces the function used to terminate jobs.
func WithSignaler(s Signaler) Option {
	return func(t *Table) {
		t.signal = s
	}
}

// WithClock replaces the time source used for Job.Started.
func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		t.now = now
	}
}

// Table is a fixed capacity list of jobs. Ids are assigned sequentially and
// never reused, jobs are never removed.
type Table struct {
	mu       sync.Mutex
	jobs     []Job
	capacity int
	signal   Signaler
	now      func() time.Time
}

// NewTable creates a table that holds at most capacity jobs.
func NewTable(capacity int, opts ...Option) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	t := &Table{
		jobs:     make([]Job, 0, capacity),
		capacity: capacity,
		signal:   KillGroup,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Capacity returns the maximum number of jobs the table holds.
func (t *Table) Capacity() int {
	return t.capacity
}

// Register records a new live job and returns its id.
func (t *Table) Register(handle int, command string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.jobs) >= t.capacity {
		return 0, ErrTableFull
	}

	id := len(t.jobs) + 1
	t.jobs = append(t.jobs, Job{
		ID:      id,
		Handle:  handle,
		Command: command,
		Started: t.now(),
		Live:    true,
	})
	return id, nil
}

// List returns the live jobs ordered by id.
func (t *Table) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Job
	for _, job := range t.jobs {
		if job.Live {
			out = append(out, job)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns the live job with the given id.
func (t *Table) Lookup(id int) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.live(id)
	if err != nil {
		return Job{}, err
	}
	return *job, nil
}

func (t *Table) live(id int) (*Job, error) {
	if id <= 0 || id > len(t.jobs) || !t.jobs[id-1].Live {
		return nil, ErrInvalidJobID
	}
	return &t.jobs[id-1], nil
}

// Terminate kills the job and marks it finished without waiting for the
// processes to exit.
func (t *Table) Terminate(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.live(id)
	if err != nil {
		return err
	}

	switch err := t.signal(job.Handle, syscall.SIGKILL); {
	case errors.Is(err, syscall.ESRCH):
		// Exited before the watcher could reap it.
		job.Live = false
		return ErrInvalidJobID
	case err != nil:
		return err
	}

	job.Live = false
	return nil
}

// Reap marks the live job with the given handle as finished.
func (t *Table) Reap(handle int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.jobs {
		if t.jobs[i].Live && t.jobs[i].Handle == handle {
			t.jobs[i].Live = false
			return
		}
	}
}
