// Package runner executes MATLAB command text in a disposable scratch directory.
//
// A Run materializes the command into a script beneath the workspace, launches the
// interpreter on it, streams the interpreter output line by line into a sink and
// removes the scratch directory on every exit path.
//
// Only two conditions are reported as errors: the script could not be materialized, or
// the context was cancelled. Everything else, including an interpreter that cannot be
// started, is reported through Result.ExitCode.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/alexandremahdhaoui/matlab-ci/internal/interpreter"
	"github.com/alexandremahdhaoui/matlab-ci/internal/logger"
	"github.com/alexandremahdhaoui/matlab-ci/internal/script"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Banner is printed to the sink right before the interpreter starts.
const Banner = "#################### Starting command output ####################"

const (
	// LaunchFailureExitCode is reported when the interpreter could not be run to completion.
	LaunchFailureExitCode = 1
	// CancelledExitCode is reported when the context was cancelled.
	CancelledExitCode = -1

	defaultMaxLineBytes = 8 * 1024 * 1024
	defaultWaitDelay    = 5 * time.Second
)

var errPreparingWorkspace = errors.New("preparing workspace")

// Result is the outcome of one Run.
type Result struct {
	// ExitCode is the interpreter exit code, passed through verbatim.
	ExitCode int
	// Duration covers materialization, execution and cleanup.
	Duration time.Duration
}

// Succeeded reports whether the command succeeded, i.e. exited with code 0.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner runs command requests with an interpreter. A Runner is safe for concurrent use.
type Runner struct {
	interp       interpreter.Interpreter
	log          *zap.Logger
	newID        func() string
	maxLineBytes int
	waitDelay    time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithIDGenerator overrides the scratch directory id generator.
func WithIDGenerator(f func() string) Option {
	return func(r *Runner) {
		if f != nil {
			r.newID = f
		}
	}
}

// WithWaitDelay bounds how long Run waits for output pipes after the interpreter exited
// or was killed. Descendant processes may otherwise keep them open indefinitely.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.waitDelay = d
	}
}

// New returns a Runner launching scripts with interp.
func New(interp interpreter.Interpreter, opts ...Option) *Runner {
	r := &Runner{
		interp:       interp,
		log:          logger.Nop(),
		newID:        uuid.NewString,
		maxLineBytes: defaultMaxLineBytes,
		waitDelay:    defaultWaitDelay,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes req and blocks until the interpreter exits.
//
// The returned error is non-nil only when the script could not be materialized (it then
// wraps script.ErrMaterialization) or when ctx was cancelled (it then is ctx.Err()). In
// both cases the scratch directory has already been removed.
func (r *Runner) Run(ctx context.Context, req script.Request, sink io.Writer) (Result, error) {
	start := time.Now()

	h, err := r.prepare(req, sink)
	if err != nil {
		return Result{ExitCode: LaunchFailureExitCode, Duration: time.Since(start)}, err
	}

	log := r.log.With(zap.String("scratchDir", h.ScratchDir))
	log.Debug("materialized script", zap.String("script", h.ScriptPath))

	code, err := func() (int, error) {
		defer r.cleanup(log, h, sink)
		return r.execute(ctx, log, h, sink)
	}()

	res := Result{ExitCode: code, Duration: time.Since(start)}
	if err != nil {
		log.Info("command cancelled", zap.Error(err), zap.Duration("duration", res.Duration))
		return res, err
	}

	log.Info("command finished", zap.Int("exitCode", code), zap.Duration("duration", res.Duration))

	return res, nil
}

// prepare creates the workspace and materializes the script while holding the workspace lock.
func (r *Runner) prepare(req script.Request, sink io.Writer) (script.Handle, error) {
	unlock := lockWorkspace(req.Workspace)
	defer unlock()

	if err := os.MkdirAll(req.Workspace, 0o755); err != nil {
		return script.Handle{}, flaterrors.Join(err, errPreparingWorkspace, script.ErrMaterialization)
	}

	return script.Materialize(req, r.newID(), sink)
}

// execute launches the interpreter. The error is non-nil only on cancellation.
func (r *Runner) execute(ctx context.Context, log *zap.Logger, h script.Handle, sink io.Writer) (int, error) {
	out := &syncWriter{w: sink}

	cmd, err := r.interp.Command(ctx, h)
	if err != nil {
		return r.launchFailure(log, out, err), nil
	}

	stdout := newLineWriter(out, r.maxLineBytes)
	stderr := newLineWriter(out, r.maxLineBytes)

	cmd.Dir = h.ScratchDir
	// An explicit Env disables the PWD exec sets for Dir; shells would trust a stale one.
	cmd.Env = environ(r.interp.Env(), h.Env, map[string]string{"PWD": h.ScratchDir})
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.waitDelay
	setProcessGroup(cmd)

	_, _ = fmt.Fprintln(out, Banner)

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return CancelledExitCode, ctx.Err()
		}
		return r.launchFailure(log, out, err), nil
	}

	log.Debug("interpreter started", zap.Int("pid", cmd.Process.Pid), zap.Strings("args", cmd.Args))

	waitErr := cmd.Wait()

	_ = stdout.Flush()
	_ = stderr.Flush()

	if ctx.Err() != nil && waitErr != nil {
		return CancelledExitCode, ctx.Err()
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		return 0, nil
	case errors.As(waitErr, &exitErr):
		return exitErr.ExitCode(), nil
	case errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		log.Warn("output pipes still open after interpreter exit", zap.Error(waitErr))
		return cmd.ProcessState.ExitCode(), nil
	default:
		return r.launchFailure(log, out, waitErr), nil
	}
}

func (r *Runner) launchFailure(log *zap.Logger, sink io.Writer, err error) int {
	log.Error("running interpreter", zap.Error(err))
	_, _ = fmt.Fprintln(sink, err.Error())

	return LaunchFailureExitCode
}

// cleanup removes the scratch directory. A failure never changes the exit code.
func (r *Runner) cleanup(log *zap.Logger, h script.Handle, sink io.Writer) {
	if err := os.RemoveAll(h.ScratchDir); err != nil {
		log.Warn("removing scratch directory", zap.Error(err))
		_, _ = fmt.Fprintf(sink, "WARNING: failed to remove scratch directory %s: %v\n", h.ScratchDir, err)
	}
}

// environ returns the process environment: system < interpreter < request.
func environ(layers ...map[string]string) []string {
	merged := map[string]string{}
	for _, kv := range os.Environ() {
		for i := 1; i < len(kv); i++ {
			if kv[i] == '=' {
				merged[kv[:i]] = kv[i+1:]
				break
			}
		}
	}

	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}

	return env
}

var workspaceLocks sync.Map // absolute workspace path -> *sync.Mutex

// lockWorkspace serializes workspace creation and scratch directory creation for
// invocations sharing a workspace.
func lockWorkspace(workspace string) func() {
	key := filepath.Clean(workspace)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	v, _ := workspaceLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}
