// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/process"
	"github.com/desertthunder/audiograb/internal/shared"
)

// RunFunc scripts the behaviour of a [FakeRunner] for one invocation.
type RunFunc func(ctx context.Context, inv process.Invocation, onLine process.LineFunc) (process.Result, error)

// FakeRunner is a test double for [process.Runner] that records every invocation.
type FakeRunner struct {
	mu     sync.Mutex
	calls  []process.Invocation
	handle RunFunc
}

// NewFakeRunner creates a [FakeRunner]. A nil handler succeeds with empty output.
func NewFakeRunner(handle RunFunc) *FakeRunner {
	return &FakeRunner{handle: handle}
}

func (f *FakeRunner) Run(ctx context.Context, inv process.Invocation, onLine process.LineFunc) (process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	if f.handle == nil {
		return process.Result{Invocation: inv}, nil
	}
	return f.handle(ctx, inv, onLine)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []process.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Succeed builds a successful result with the given stdout.
func Succeed(inv process.Invocation, stdout string) (process.Result, error) {
	return process.Result{Invocation: inv, Stdout: []byte(stdout)}, nil
}

// Fail builds a failed result with the given exit code and stderr.
func Fail(inv process.Invocation, code int, stderr string) (process.Result, error) {
	res := process.Result{Invocation: inv, Stderr: []byte(stderr), ExitCode: code}
	return res, process.NewExitError(res)
}

// HasArg reports whether inv carries arg.
func HasArg(inv process.Invocation, arg string) bool {
	return slices.Contains(inv.Args, arg)
}

// ArgAfter returns the argument following flag, or "".
func ArgAfter(inv process.Invocation, flag string) string {
	i := slices.Index(inv.Args, flag)
	if i < 0 || i+1 >= len(inv.Args) {
		return ""
	}
	return inv.Args[i+1]
}

// LastArg returns the final argument, which is the output or URL for most tool calls.
func LastArg(inv process.Invocation) string {
	if len(inv.Args) == 0 {
		return ""
	}
	return inv.Args[len(inv.Args)-1]
}

// QuietLogger returns a logger that drops everything below fatal.
func QuietLogger() *log.Logger {
	l := shared.NewLogger(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
