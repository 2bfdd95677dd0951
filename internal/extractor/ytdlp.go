package extractor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/audioextract/internal/logging"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/metrics"
)

// waitDelay bounds how long output pipes may stay open after the process is killed
const waitDelay = 5 * time.Second

const installHint = "yt-dlp is not installed or not on PATH. Install it with `pip install yt-dlp` or see https://github.com/yt-dlp/yt-dlp#installation"

// YtDlp wraps yt-dlp subprocess invocations
type YtDlp struct {
	toolPath           string
	timeout            time.Duration
	cancelOnDisconnect bool
	maxStderr          int
}

// NewYtDlp creates a new yt-dlp runner
func NewYtDlp(toolPath string, timeout time.Duration, cancelOnDisconnect bool, maxStderr int) *YtDlp {
	if maxStderr <= 0 {
		maxStderr = 64 * 1024
	}
	return &YtDlp{
		toolPath:           toolPath,
		timeout:            timeout,
		cancelOnDisconnect: cancelOnDisconnect,
		maxStderr:          maxStderr,
	}
}

// Available reports whether the tool can be resolved
func (y *YtDlp) Available() bool {
	_, err := exec.LookPath(y.toolPath)
	return err == nil
}

// runContext detaches the subprocess from the request unless configured otherwise
func (y *YtDlp) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if !y.cancelOnDisconnect {
		ctx = context.WithoutCancel(ctx)
	}
	if y.timeout > 0 {
		return context.WithTimeout(ctx, y.timeout)
	}
	return context.WithCancel(ctx)
}

// Output runs the tool and returns its buffered standard output
func (y *YtDlp) Output(ctx context.Context, args []string) ([]byte, error) {
	runCtx, cancel := y.runContext(ctx)
	defer cancel()

	done := metrics.ToolRunStarted(ModeLabelInfo)
	start := time.Now()
	defer func() { done(time.Since(start).Seconds()) }()

	cmd := exec.CommandContext(runCtx, y.toolPath, args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdout bytes.Buffer
	stderr := newTailBuffer(y.maxStderr)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, startError(err)
	}

	if err := cmd.Wait(); err != nil {
		return nil, exitError(runCtx, err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// Stream runs the tool, logging each stdout and stderr line as it arrives.
// Only the tail of stderr is kept for error reporting.
func (y *YtDlp) Stream(ctx context.Context, args []string, logger *logging.Logger) error {
	runCtx, cancel := y.runContext(ctx)
	defer cancel()

	done := metrics.ToolRunStarted(ModeLabelDownload)
	start := time.Now()
	defer func() { done(time.Since(start).Seconds()) }()

	cmd := exec.CommandContext(runCtx, y.toolPath, args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return newError(KindInternal, "failed to create stdout pipe", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return newError(KindInternal, "failed to create stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return startError(err)
	}

	tail := newTailBuffer(y.maxStderr)

	// A descendant that escaped the kill can hold the pipes open. Once the
	// run is cancelled, give the pumps waitDelay to finish and then close
	// the read ends ourselves.
	pumped := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
		case <-pumped:
			return
		}
		timer := time.NewTimer(waitDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
			_ = stdout.Close()
			_ = stderr.Close()
		case <-pumped:
		}
	}()

	// Both pipes must be drained before Wait closes them
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pump(stdout, func(line string) { logger.LogToolLine("stdout", line) })
	}()
	go func() {
		defer wg.Done()
		pump(stderr, func(line string) {
			logger.LogToolLine("stderr", line)
			tail.WriteString(line + "\n")
		})
	}()
	wg.Wait()
	close(pumped)

	if err := cmd.Wait(); err != nil {
		return exitError(runCtx, err, tail.String())
	}

	return nil
}

// pump feeds r to fn line by line. Progress output uses carriage returns,
// so those split lines too.
func pump(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}
	// Keep the child from blocking on a full pipe if the scanner gave up
	_, _ = io.Copy(io.Discard, r)
}

func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func startError(err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return newError(KindToolNotFound, installHint, err)
	}
	return newError(KindExternalTool, "failed to start yt-dlp", err)
}

func exitError(ctx context.Context, err error, stderr string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(KindExternalTool, "yt-dlp timed out", err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return newError(KindExternalTool, "yt-dlp was cancelled", err)
	}

	msg := strings.TrimSpace(stderr)
	if msg == "" {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg = fmt.Sprintf("yt-dlp exited with code %d", exitErr.ExitCode())
		} else {
			msg = "yt-dlp failed"
		}
	}
	return newError(KindExternalTool, msg, err)
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) WriteString(s string) {
	_, _ = t.Write([]byte(s))
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
