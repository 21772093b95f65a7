package jobs

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signalLog struct {
	handles []int
	signals []syscall.Signal
	err     error
}

func (s *signalLog) Signal(handle int, sig syscall.Signal) error {
	s.handles = append(s.handles, handle)
	s.signals = append(s.signals, sig)
	return s.err
}

func newTestTable(capacity int, sig *signalLog) *Table {
	clock := func() time.Time {
		return time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	return NewTable(capacity, WithSignaler(sig.Signal), WithClock(clock))
}

func TestRegisterThenList(t *testing.T) {
	table := newTestTable(5, &signalLog{})

	id, err := table.Register(1234, "sleep 10")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	assert.Equal(t, []Job{{
		ID:      1,
		Handle:  1234,
		Command: "sleep 10",
		Started: time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC),
		Live:    true,
	}}, table.List())
}

func TestListOrderedAndFiltered(t *testing.T) {
	table := newTestTable(5, &signalLog{})

	for _, handle := range []int{10, 20, 30} {
		_, err := table.Register(handle, "job")
		require.NoError(t, err)
	}
	table.Reap(20)

	var ids []int
	for _, job := range table.List() {
		ids = append(ids, job.ID)
	}
	assert.Equal(t, []int{1, 3}, ids)
}

func TestTerminate(t *testing.T) {
	sig := &signalLog{}
	table := newTestTable(5, sig)

	id, err := table.Register(4321, "yes")
	require.NoError(t, err)

	require.NoError(t, table.Terminate(id))
	assert.Equal(t, []int{4321}, sig.handles)
	assert.Equal(t, []syscall.Signal{syscall.SIGKILL}, sig.signals)
	assert.Empty(t, table.List())

	assert.ErrorIs(t, table.Terminate(id), ErrInvalidJobID)
	assert.Len(t, sig.handles, 1, "no signal for a finished job")
}

func TestTerminateInvalid(t *testing.T) {
	table := newTestTable(5, &signalLog{})
	_, err := table.Register(1, "a")
	require.NoError(t, err)

	cases := map[string]int{
		"zero":     0,
		"negative": -1,
		"past end": 2,
	}

	for tn, id := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.ErrorIs(t, table.Terminate(id), ErrInvalidJobID)
		})
	}
	assert.Len(t, table.List(), 1)
}

func TestTerminateAlreadyExited(t *testing.T) {
	table := newTestTable(5, &signalLog{err: syscall.ESRCH})
	id, err := table.Register(99, "true")
	require.NoError(t, err)

	assert.ErrorIs(t, table.Terminate(id), ErrInvalidJobID)
	assert.Empty(t, table.List())
}

func TestTerminateSignalError(t *testing.T) {
	table := newTestTable(5, &signalLog{err: syscall.EPERM})
	id, err := table.Register(99, "true")
	require.NoError(t, err)

	err = table.Terminate(id)
	assert.True(t, errors.Is(err, syscall.EPERM))
	assert.Len(t, table.List(), 1, "job stays live when the signal is refused")
}

func TestRegisterFull(t *testing.T) {
	table := newTestTable(2, &signalLog{})

	for i := 0; i < 2; i++ {
		_, err := table.Register(i+1, "job")
		require.NoError(t, err)
	}
	table.Reap(1)

	id, err := table.Register(3, "overflow")
	assert.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, 0, id)

	// Slots aren't reused even after a job finishes.
	assert.Equal(t, 2, table.Capacity())
	_, err = table.Lookup(1)
	assert.ErrorIs(t, err, ErrInvalidJobID)

	job, err := table.Lookup(2)
	require.NoError(t, err)
	assert.Equal(t, "job", job.Command)
}

func TestReapUnknownHandle(t *testing.T) {
	table := newTestTable(2, &signalLog{})
	_, err := table.Register(5, "job")
	require.NoError(t, err)

	table.Reap(6)
	assert.Len(t, table.List(), 1)
}
