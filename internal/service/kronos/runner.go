// Package kronos invokes the external Kronos forecasting model, either as a local
// subprocess or as an HTTP model service, and decodes its JSON payload.
package kronos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrExit is returned when the model process exits non-zero.
	ErrExit = errors.New("kronos: model process failed")
	// ErrPayload is returned when the model output is not a usable forecast payload.
	ErrPayload = errors.New("kronos: invalid payload")
)

// Runner produces the raw model payload for (symbol, days).
type Runner interface {
	Run(ctx context.Context, symbol string, days int) ([]byte, error)
}

const (
	maxStdout = 1 << 20
	maxStderr = 8 << 10
)

// ProcessRunner runs `<Python> <Script> <symbol> <days>` once per call.
type ProcessRunner struct {
	Python string
	Script string
	Dir    string
	// WaitDelay bounds how long pipes may stay open after the process is killed.
	WaitDelay time.Duration
}

// NewProcessRunner runs script with python in dir. An empty dir uses the working directory.
func NewProcessRunner(python, script, dir string) *ProcessRunner {
	return &ProcessRunner{Python: python, Script: script, Dir: dir, WaitDelay: 2 * time.Second}
}

// Run starts the process and always waits for it, so it is reaped and its pipes are
// drained whether it succeeds, fails or is killed by ctx.
func (r *ProcessRunner) Run(ctx context.Context, symbol string, days int) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Python, r.Script, symbol, strconv.Itoa(days))
	cmd.Dir = r.Dir
	cmd.WaitDelay = r.WaitDelay

	stdout := &cappedBuffer{limit: maxStdout}
	stderr := &cappedBuffer{limit: maxStderr}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %v (stderr: %s)", ErrExit, ctxErr, stderr.tail())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v (stderr: %s)", ErrExit, err, stderr.tail())
	}
	if stdout.truncated {
		return nil, fmt.Errorf("%w: stdout exceeded %d bytes", ErrPayload, maxStdout)
	}
	return stdout.Bytes(), nil
}

// cappedBuffer keeps the first limit bytes and discards the rest without failing the writer,
// so a chatty child never blocks on a full pipe.
type cappedBuffer struct {
	bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.Len()
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		b.Buffer.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.Buffer.Write(p)
}

func (b *cappedBuffer) tail() string {
	s := strings.TrimSpace(b.String())
	if len(s) > 512 {
		s = "..." + s[len(s)-512:]
	}
	return s
}
