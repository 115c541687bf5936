// Package process runs external command-line tools and streams their output line by line.
//
// A [Runner] executes one [Invocation] and resolves with a [Result] holding everything the tool
// wrote. Lines are handed to an optional callback while the tool runs, from both output streams,
// one call at a time. A non-zero exit resolves with an [*ExitError] that unwraps to
// [shared.ErrToolFailed] and carries the tool's diagnostic output.
package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/shared"
)

// maxLineSize bounds one streamed line. Longer output is still captured, just not streamed.
const maxLineSize = 4 * 1024 * 1024

// Stream identifies which output a line was read from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return ""
	}
}

// LineFunc receives output lines while a tool runs.
type LineFunc func(stream Stream, line string)

// Invocation is one request to run an executable.
type Invocation struct {
	Executable string
	Args       []string
}

// String renders the invocation as a shell-like command line for logs and errors.
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, i.Executable)
	for _, a := range i.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result is the captured output of a finished invocation.
type Result struct {
	Invocation Invocation
	Stdout     []byte
	Stderr     []byte
	ExitCode   int
	Duration   time.Duration
}

// ExitError reports a tool that ran but exited non-zero.
type ExitError struct {
	Result Result
}

// NewExitError wraps a finished result whose exit code was non-zero.
func NewExitError(res Result) *ExitError {
	return &ExitError{Result: res}
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Result.Invocation.Executable, e.Result.ExitCode)
	if stderr := strings.TrimSpace(string(e.Result.Stderr)); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Unwrap lets callers match tool failures with [errors.Is] against [shared.ErrToolFailed].
func (e *ExitError) Unwrap() error {
	return shared.ErrToolFailed
}

// Diagnostic returns the trimmed stderr of the failed tool.
func (e *ExitError) Diagnostic() string {
	return strings.TrimSpace(string(e.Result.Stderr))
}

// Runner abstracts command execution so tool adapters can be tested without real binaries.
type Runner interface {
	Run(ctx context.Context, inv Invocation, onLine LineFunc) (Result, error)
}

// ExecRunner runs invocations with [os/exec].
type ExecRunner struct {
	logger *log.Logger
}

// NewExecRunner creates an [ExecRunner]. A nil logger falls back to [shared.NewLogger].
func NewExecRunner(logger *log.Logger) *ExecRunner {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExecRunner{logger: logger}
}

// Run starts the executable, streams both outputs through onLine and waits for it to exit.
//
// The error is an [*ExitError] for a non-zero exit, or wraps [shared.ErrToolFailed] when the
// tool could not be started at all.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation, onLine LineFunc) (Result, error) {
	res := Result{Invocation: inv, ExitCode: -1}
	if strings.TrimSpace(inv.Executable) == "" {
		return res, fmt.Errorf("%w: executable", shared.ErrMissingArgument)
	}

	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return res, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return res, fmt.Errorf("stderr pipe: %w", err)
	}

	r.logger.Debug("starting tool", "cmd", inv.String())
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("%w: start %s: %v", shared.ErrToolFailed, inv.Executable, err)
	}

	var (
		wg             sync.WaitGroup
		mu             sync.Mutex
		outBuf, errBuf bytes.Buffer
	)
	forward := func(stream Stream, line string) {
		if onLine == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onLine(stream, line)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		r.consume(stdout, &outBuf, Stdout, onLine != nil, forward)
	}()
	go func() {
		defer wg.Done()
		r.consume(stderr, &errBuf, Stderr, onLine != nil, forward)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	res.Stdout = outBuf.Bytes()
	res.Stderr = errBuf.Bytes()
	res.Duration = time.Since(start)

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			r.logger.Debug("tool failed", "cmd", inv.Executable, "code", res.ExitCode, "took", res.Duration)
			return res, NewExitError(res)
		}
		return res, fmt.Errorf("%w: wait %s: %v", shared.ErrToolFailed, inv.Executable, waitErr)
	}

	res.ExitCode = 0
	r.logger.Debug("tool finished", "cmd", inv.Executable, "took", res.Duration)
	return res, nil
}

// consume copies one pipe into buf, splitting it into lines for forward when streaming is on.
func (r *ExecRunner) consume(pipe io.Reader, buf *bytes.Buffer, stream Stream, streaming bool, forward LineFunc) {
	tee := io.TeeReader(pipe, buf)
	if !streaming {
		_, _ = io.Copy(io.Discard, tee)
		return
	}

	scanner := bufio.NewScanner(tee)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(ScanLines)
	for scanner.Scan() {
		forward(stream, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("stopped streaming tool output", "stream", stream, "err", err)
		_, _ = io.Copy(io.Discard, tee)
	}
}

// ScanLines is a [bufio.SplitFunc] that ends a line at \n, \r\n or a bare \r.
//
// Download tools redraw progress with carriage returns unless told otherwise.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
