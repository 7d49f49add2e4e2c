package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexandremahdhaoui/matlab-ci/internal/cli"
	"github.com/alexandremahdhaoui/matlab-ci/internal/interpreter"
	"github.com/alexandremahdhaoui/matlab-ci/internal/logger"
	"github.com/alexandremahdhaoui/matlab-ci/internal/matlabrelease"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
	"github.com/caarlos0/env/v11"
)

const Name = "matlab-ci"

// Version information (set via ldflags during build)
var (
	Version        = "dev"
	CommitSHA      = "unknown"
	BuildTimestamp = "unknown"
)

// ----------------------------------------------------- MAIN ------------------------------------------------------- //

func main() {
	cli.Bootstrap(cli.Config{
		Name:           Name,
		Version:        Version,
		CommitSHA:      CommitSHA,
		BuildTimestamp: BuildTimestamp,
		VersionDetails: versionDetails,
		RunCLI:         run,
		RunMCP:         runMCPServer,
		FailureHandler: printFailure,
	})
}

// ----------------------------------------------------- RUN -------------------------------------------------------- //

var errSettingUp = errors.New("setting up matlab-ci")

// run executes the cobra command tree against args. A FAILURE result is returned as an
// error carrying the process exit code.
func run(args []string) error {
	a, err := newApp(os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(a)
	root.SetArgs(args)

	return root.ExecuteContext(ctx)
}

// newApp reads the environment and builds the logger. Command output goes to sink.
func newApp(sink io.Writer) (*app, error) {
	envs := Envs{} //nolint:exhaustruct // unmarshal

	if err := env.Parse(&envs); err != nil {
		return nil, flaterrors.Join(err, errSettingUp)
	}

	cfg := logger.DefaultConfig(Name)
	cfg.Level = envs.LogLevel
	cfg.Encoding = envs.LogEncoding
	if envs.LogOutput != "" && envs.LogOutput != cfg.OutputPath {
		cfg.OutputPath = envs.LogOutput
		cfg.Color = false
	}

	log, err := logger.New(cfg)
	if err != nil {
		return nil, flaterrors.Join(err, errSettingUp)
	}

	return &app{envs: envs, log: log, sink: sink}, nil
}

// versionDetails reports the MATLAB release matlab-ci would use.
func versionDetails() map[string]string {
	envs := Envs{} //nolint:exhaustruct // unmarshal
	_ = env.Parse(&envs)

	if envs.Interpreter != "" {
		return map[string]string{"matlab": "custom interpreter: " + envs.Interpreter}
	}

	m, err := interpreter.MATLAB{Root: envs.MatlabRoot}.Resolve()
	if err != nil {
		return map[string]string{"matlab": "not found"}
	}

	info, err := matlabrelease.Read(m.Root)
	if err != nil {
		return map[string]string{"matlab": m.Root + " (unknown release)"}
	}

	return map[string]string{"matlab": fmt.Sprintf("%s %s (%s)", m.Root, info.Release, info.Version)}
}

// ----------------------------------------------------- ENVS ------------------------------------------------------- //

// Envs holds the environment variables read by matlab-ci.
type Envs struct {
	// MatlabRoot is the MATLAB installation used when no --matlab-root is given.
	// When empty, matlab is looked up on PATH.
	MatlabRoot string `env:"MATLAB_ROOT"`
	// Workspace is the default workspace.
	Workspace string `env:"MATLAB_CI_WORKSPACE"`
	// Interpreter replaces MATLAB with a custom command line; the script path is appended.
	Interpreter string `env:"MATLAB_CI_INTERPRETER"`
	// EnvFile is a KEY=VALUE file loaded for every command.
	EnvFile string `env:"MATLAB_CI_ENV_FILE"`

	LogLevel    string `env:"MATLAB_CI_LOG_LEVEL"    envDefault:"info"`
	LogEncoding string `env:"MATLAB_CI_LOG_ENCODING" envDefault:"console"`
	LogOutput   string `env:"MATLAB_CI_LOG_OUTPUT"   envDefault:"stderr"`
}

// ----------------------------------------------------- PRINT HELPERS ----------------------------------------------- //

func printFailure(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "❌ %s failed\n%s\n", Name, err.Error())
}

// ----------------------------------------------------- RESULT ERROR ----------------------------------------------- //

// resultError reports a step whose result is FAILURE. The step output has already been
// written to the sink.
type resultError struct {
	step     string
	exitCode int
}

func (e resultError) Error() string {
	return fmt.Sprintf("step %q failed with exit code %d", e.step, e.exitCode)
}

// ExitCode implements cli.ExitCoder.
func (e resultError) ExitCode() int {
	return 1
}

var _ cli.ExitCoder = resultError{}
