// Package process supervises a single external process invocation: it spawns the process,
// streams its merged stdout and stderr line by line, waits for exit and supports termination.
package process

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"ytbatch/internal/errs"
)

const (
	bufSize        = 4096        // 4 KiB initial scanner buffer
	defaultMaxLine = 1024 * 1024 // 1 MiB longest delivered line
)

var utf8Overrides = []string{"PYTHONIOENCODING=utf-8", "PYTHONUTF8=1"}

// State is the lifecycle state of a Supervisor.
type State int32

const (
	// StateIdle means the process has not been started.
	StateIdle State = iota
	// StateRunning means the process was spawned and has not been waited for.
	StateRunning
	// StateCompleted means the process exited on its own (or could not be spawned).
	StateCompleted
	// StateTerminated means the process ended after a termination request.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options tune a Supervisor.
type Options struct {
	// Env is the full process environment. Nil means Environ().
	Env []string
	// TerminateGrace is how long a terminated process may linger before it is killed.
	// Zero sends a single terminate request and never escalates.
	TerminateGrace time.Duration
	// MaxLineSize is the longest line delivered. Longer lines arrive in chunks of this size.
	MaxLineSize int
}

// Supervisor owns one external process. It is single-use: once it leaves StateIdle it
// can never be started again.
type Supervisor struct {
	log  *slog.Logger
	bin  string
	args []string
	opts Options

	mu         sync.Mutex
	state      State
	terminated bool
	cmd        *exec.Cmd
	reader     *os.File
	killTimer  *time.Timer

	consumed atomic.Bool // Lines handed out
	drained  atomic.Bool // pipe read to EOF

	waitOnce sync.Once
	exitCode int
	waitErr  error
}

// Environ returns the inherited environment with UTF-8 text I/O forced for Python tools.
func Environ() []string {
	return append(os.Environ(), utf8Overrides...)
}

// New creates an idle supervisor for bin with args.
func New(log *slog.Logger, bin string, args []string, opts Options) *Supervisor {
	if opts.Env == nil {
		opts.Env = Environ()
	}

	if opts.MaxLineSize <= 0 {
		opts.MaxLineSize = defaultMaxLine
	}

	return &Supervisor{
		log:      log.With(slog.String("package", "process"), slog.String("bin", bin)),
		bin:      bin,
		args:     args,
		opts:     opts,
		exitCode: -1,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Start spawns the process with stdout and stderr merged into one pipe.
// Spawn failures are wrapped with errs.ErrSpawn and leave the supervisor completed.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
	case StateTerminated:
		return errs.ErrTerminated
	default:
		return errs.ErrProcessUsed
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		s.state = StateCompleted

		return fmt.Errorf("%w: pipe: %w", errs.ErrSpawn, err)
	}

	cmd := exec.Command(s.bin, s.args...)
	cmd.Env = s.opts.Env
	cmd.Stdout = pw
	cmd.Stderr = pw
	configure(cmd)

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()

		s.state = StateCompleted

		return fmt.Errorf("%w: %w", errs.ErrSpawn, err)
	}

	// the child holds its own copy of the write end; EOF arrives once every writer is gone
	pw.Close()

	s.cmd = cmd
	s.reader = pr
	s.state = StateRunning

	s.log.Debug("process started", slog.Int("pid", cmd.Process.Pid))

	return nil
}

// Lines returns the process output as a single-pass sequence of non-empty lines. Iteration
// blocks until the process writes or closes its output. A second call yields nothing.
func (s *Supervisor) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			return
		}

		s.mu.Lock()
		reader := s.reader
		s.mu.Unlock()

		if reader == nil {
			return
		}

		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, bufSize), s.opts.MaxLineSize)
		scanner.Split(splitLinesMax(s.opts.MaxLineSize))

		for scanner.Scan() {
			line := strings.ToValidUTF8(scanner.Text(), "�")
			if line == "" {
				continue
			}

			if !yield(line) {
				return
			}
		}

		if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
			s.log.Warn("read process output", slog.Any("error", err))

			return
		}

		s.drained.Store(true)
	}
}

// Wait blocks until the process exits and returns its exit code. A nonzero exit is not an
// error; the returned error only reports failures to wait. The exit code is -1 when the
// process was killed by a signal or never started.
func (s *Supervisor) Wait() (int, error) {
	s.waitOnce.Do(func() {
		s.mu.Lock()
		cmd, reader := s.cmd, s.reader
		s.mu.Unlock()

		if cmd == nil {
			s.waitErr = errs.ErrNotStarted

			return
		}

		if !s.drained.Load() {
			_, _ = io.Copy(io.Discard, reader)
		}

		reader.Close()

		err := cmd.Wait()

		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			s.waitErr = fmt.Errorf("wait: %w", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.killTimer != nil {
			s.killTimer.Stop()
		}

		s.exitCode = cmd.ProcessState.ExitCode()

		if s.terminated {
			s.state = StateTerminated
		} else {
			s.state = StateCompleted
		}

		s.log.Debug("process exited",
			slog.Int("exit_code", s.exitCode),
			slog.String("state", s.state.String()))
	})

	return s.exitCode, s.waitErr
}

// Terminate requests the process to stop. It is best-effort and returns immediately; the
// output stream ends once the process is gone. Terminating an idle supervisor prevents it
// from ever starting.
func (s *Supervisor) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		s.terminated = true
		s.state = StateTerminated

		return nil
	case StateRunning:
	default:
		return nil
	}

	if s.terminated {
		return nil
	}

	s.terminated = true

	s.log.Debug("terminating process", slog.Int("pid", s.cmd.Process.Pid))

	if s.opts.TerminateGrace > 0 {
		proc := s.cmd.Process
		s.killTimer = time.AfterFunc(s.opts.TerminateGrace, func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			if s.state != StateRunning {
				return
			}

			s.log.Warn("process ignored terminate request, killing", slog.Int("pid", proc.Pid))

			if err := kill(proc); err != nil {
				s.log.Warn("kill process", slog.Any("error", err))
			}
		})
	}

	if err := terminate(s.cmd.Process); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}

	return nil
}

// splitLinesAny is a bufio.SplitFunc that treats \n, \r\n and a bare \r as line ends,
// so carriage-return progress updates arrive as separate lines.
func splitLinesAny(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}

		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}

			return i + 1, data[:i], nil
		}

		if atEOF {
			return i + 1, data[:i], nil
		}

		// a trailing \r may be the first half of \r\n
		return 0, nil, nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// splitLinesMax wraps splitLinesAny so that a line longer than limit is cut into chunks of
// at most limit bytes instead of failing the scanner with bufio.ErrTooLong.
func splitLinesMax(limit int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := splitLinesAny(data, atEOF)
		if err != nil {
			return advance, token, err
		}

		if len(token) > limit || (token == nil && advance == 0 && len(data) >= limit) {
			cut := runeCut(data, limit)

			return cut, data[:cut], nil
		}

		return advance, token, err
	}
}

// runeCut returns n, moved back to the start of a rune that would be split at n.
func runeCut(data []byte, n int) int {
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}

		if i > 0 && !utf8.FullRune(data[i:n]) {
			return i
		}

		break
	}

	return n
}
