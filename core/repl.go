package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/josephlewis42/pipesh/core/logger"
	"golang.org/x/term"
)

const (
	keyCtrlC = 0x03
	keyCtrlZ = 0x1a

	msgInterrupt = "Ctrl+C pressed. Use 'exit' to quit the shell."
	msgSuspend   = "Ctrl+Z pressed. Background jobs are managed automatically."
)

// lineReader reads one line of input at a time.
type lineReader interface {
	ReadLine() (string, error)
}

// keyWatcher forwards reads from a raw terminal and reports interrupt keys
// to pending.
type keyWatcher struct {
	r       io.Reader
	pending chan<- os.Signal
	// sawInterrupt is set when a Ctrl+C passed through; the terminal reports
	// it as EOF.
	sawInterrupt bool
}

func (k *keyWatcher) Read(p []byte) (int, error) {
	n, err := k.r.Read(p)
	for _, b := range p[:n] {
		switch b {
		case keyCtrlC:
			k.sawInterrupt = true
			notify(k.pending, syscall.SIGINT)
		case keyCtrlZ:
			notify(k.pending, syscall.SIGTSTP)
		}
	}
	return n, err
}

func notify(ch chan<- os.Signal, sig os.Signal) {
	select {
	case ch <- sig:
	default:
	}
}

// terminalReader reads lines from a terminal in raw mode. Raw mode is only
// held during ReadLine so children get a cooked terminal.
type terminalReader struct {
	fd   int
	keys *keyWatcher
	term *term.Terminal
}

func (t *terminalReader) ReadLine() (string, error) {
	prevState, err := term.MakeRaw(t.fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(t.fd, prevState)

	t.keys.sawInterrupt = false
	line, err := t.term.ReadLine()
	if errors.Is(err, io.EOF) && t.keys.sawInterrupt {
		// Abandon the line, the loop prints the interrupt message.
		return "", nil
	}
	return line, err
}

type scanReader struct {
	scanner *bufio.Scanner
}

func (s *scanReader) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *Shell) interactiveFd() (int, bool) {
	f, ok := s.IO.Stdin.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

func (s *Shell) newLineReader(pending chan<- os.Signal) (lineReader, bool) {
	fd, interactive := s.interactiveFd()
	if !interactive {
		scanner := bufio.NewScanner(s.IO.Stdin)
		// Allow overlong lines through so the parser can reject them.
		scanner.Buffer(make([]byte, 0, 4096), 4*s.Config.MaxLineLength+bufio.MaxScanTokenSize)
		return &scanReader{scanner: scanner}, false
	}

	keys := &keyWatcher{r: s.IO.Stdin, pending: pending}
	rw := struct {
		io.Reader
		io.Writer
	}{keys, s.Stdout()}

	prompt := s.color.Sprintf(ColorBoldGreen, "%s", s.Config.Prompt)
	return &terminalReader{fd: fd, keys: keys, term: term.NewTerminal(rw, prompt)}, true
}

// drainSignals prints a message for every interrupt request since the last
// call.
func (s *Shell) drainSignals(pending <-chan os.Signal) {
	for {
		select {
		case sig := <-pending:
			switch sig {
			case syscall.SIGINT:
				fmt.Fprintln(s.Stdout(), msgInterrupt)
			case syscall.SIGTSTP:
				fmt.Fprintln(s.Stdout(), msgSuspend)
			}
		default:
			return
		}
	}
}

// Run reads and executes lines until EOF, exit or ctx is done. It returns the
// status of the last line run.
func (s *Shell) Run(ctx context.Context) int {
	pending := make(chan os.Signal, 8)
	signal.Notify(pending, syscall.SIGINT, syscall.SIGTSTP)
	defer signal.Stop(pending)

	reader, interactive := s.newLineReader(pending)
	if interactive {
		fmt.Fprintln(s.Stdout(), "Enhanced Shell Interpreter")
		fmt.Fprintln(s.Stdout(), "Type 'exit' to quit.")
	}

	s.record(logger.Event{Type: logger.EventSessionStart})

	for !s.Quit {
		s.drainSignals(pending)
		if ctx.Err() != nil {
			break
		}

		line, err := reader.ReadLine()
		s.drainSignals(pending)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.errorf("pipesh: %v", err)
			}
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		s.Execute(ctx, line)
	}

	if interactive && !s.Quit {
		fmt.Fprintln(s.Stdout())
	}
	return s.lastRet
}
