// Package executor runs one mask-generation call in a dedicated child
// process under crash and timeout supervision, so native faults in the
// inference path can never take down the calling process.
//
// The child is a fresh spawn of the current binary running the hidden
// worker subcommand (never a fork) and performs exactly one generate
// call. The request travels over stdin; the single outcome travels back
// as one JSON line on stdout. The worker never ships a live error value
// across the boundary, only its textual description.
package executor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	"maskd/pkg/types"
)

// WorkerCommand is the hidden subcommand the CLI registers for the
// spawned worker process.
const WorkerCommand = "mask-worker"

// defaultPollInterval paces the supervision loop.
const defaultPollInterval = 50 * time.Millisecond

// Request carries everything the worker needs for one generate call.
// The descriptor must already be provisioned: the worker loads the model
// itself, so no accelerator context crosses the process boundary.
type Request struct {
	Descriptor types.ModelDescriptor `json:"descriptor"`
	Params     types.Params          `json:"params"`
	Frame      types.Frame           `json:"frame"`
}

// outcome is the single message posted back by the worker.
type outcome struct {
	Status string          `json:"status"` // "ok" or "error"
	Masks  []types.RawMask `json:"masks,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Executor supervises one-shot worker processes. The zero value is not
// usable; construct with New.
type Executor struct {
	// Command builds a fresh worker process. Overridable for tests.
	Command func() (*exec.Cmd, error)
	// PollInterval paces the supervision loop.
	PollInterval time.Duration
}

// New returns an executor that re-executes the current binary with the
// worker subcommand.
func New() *Executor {
	return &Executor{
		Command: func() (*exec.Cmd, error) {
			exe, err := os.Executable()
			if err != nil {
				return nil, err
			}
			return exec.Command(exe, WorkerCommand), nil
		},
		PollInterval: defaultPollInterval,
	}
}

// Execute runs one generate call in a supervised child process.
//
// Exactly one of four outcomes is returned: the raw masks on success, an
// InferenceError when the worker ran and explicitly failed, a CrashError
// when the child exited without posting an outcome, or a TimeoutError
// when the wall clock exceeded timeout (the child is killed first).
func (e *Executor) Execute(ctx context.Context, req Request, timeout time.Duration) ([]types.RawMask, error) {
	cmd, err := e.Command()
	if err != nil {
		return nil, types.InferenceError{Detail: "spawn worker: " + err.Error()}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, types.InferenceError{Detail: "worker stdin: " + err.Error()}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, types.InferenceError{Detail: "worker stdout: " + err.Error()}
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, types.InferenceError{Detail: "start worker: " + err.Error()}
	}
	log.Debug().Int("pid", cmd.Process.Pid).Dur("timeout", timeout).Msg("worker spawned")

	// Ship the request; a worker that never reads it will surface as a
	// crash or an explicit error, not a hang on our side.
	go func() {
		enc := json.NewEncoder(stdin)
		if err := enc.Encode(req); err != nil {
			log.Debug().Err(err).Msg("write worker request")
		}
		stdin.Close()
	}()

	// One goroutine owns the pipe and the reaping order: the outcome (if
	// any) is always posted before the exit code, so the supervision loop
	// can never misread a completed call as a crash.
	outcomeCh := make(chan outcome, 1)
	exitCh := make(chan int, 1)
	go func() {
		reader := bufio.NewReader(stdout)
		line, rerr := reader.ReadBytes('\n')
		if len(line) > 0 {
			var oc outcome
			if jerr := json.Unmarshal(line, &oc); jerr == nil && oc.Status != "" {
				outcomeCh <- oc
			} else {
				// A native fault can splat bytes over the protocol before
				// the process dies. That is not an outcome; let the exit
				// code classify what happened.
				log.Warn().Str("line", truncate(line, 256)).Msg("ignoring malformed worker output")
			}
		}
		if rerr != nil {
			_, _ = io.Copy(io.Discard, reader)
		}
		werr := cmd.Wait()
		exitCh <- exitCode(werr)
	}()

	poll := e.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	start := time.Now()
	for {
		// Worker posted its outcome: done.
		select {
		case oc := <-outcomeCh:
			return e.conclude(oc)
		default:
		}

		// Worker exited. The outcome channel is re-checked first so a
		// completed-but-not-yet-observed result is never classified as a
		// crash.
		select {
		case code := <-exitCh:
			select {
			case oc := <-outcomeCh:
				return e.conclude(oc)
			default:
			}
			log.Error().Int("exit_code", code).Str("stderr", tail(stderr.String(), 2048)).
				Msg("worker exited without posting an outcome")
			return nil, types.CrashError{ExitCode: code}
		default:
		}

		if err := ctx.Err(); err != nil {
			e.kill(cmd, exitCh)
			return nil, err
		}
		if time.Since(start) > timeout {
			log.Error().Dur("timeout", timeout).Msg("worker timed out; killing")
			e.kill(cmd, exitCh)
			return nil, types.TimeoutError{Timeout: timeout}
		}
		time.Sleep(poll)
	}
}

func (e *Executor) conclude(oc outcome) ([]types.RawMask, error) {
	if oc.Status == "ok" {
		log.Debug().Int("masks", len(oc.Masks)).Msg("worker completed")
		return oc.Masks, nil
	}
	return nil, types.InferenceError{Detail: oc.Error}
}

// kill force-terminates the child and reaps it.
func (e *Executor) kill(cmd *exec.Cmd, exitCh <-chan int) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-exitCh:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("killed worker did not reap in time")
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
