package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alexandremahdhaoui/matlab-ci/internal/testrun"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/matlabci"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   Name,
		Short: "Run MATLAB commands and tests from any CI system",
		Long: `matlab-ci runs MATLAB commands and test suites for CI systems.

Each command is written to a uniquely named script in a scratch directory under the
workspace, run by MATLAB with the output streamed line by line, and the scratch
directory is removed afterwards. A zero exit code is a SUCCESS, anything else a FAILURE.

Run "matlab-ci --mcp" to serve the same operations as MCP tools over stdio.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.workspace, "workspace", "w", "", "directory the command runs in (default $MATLAB_CI_WORKSPACE or the current directory)")
	flags.StringVar(&a.matlabRoot, "matlab-root", "", "MATLAB installation root, may reference variables (default $MATLAB_ROOT or matlab on PATH)")
	flags.StringVar(&a.envFile, "env-file", "", "KEY=VALUE file with variables for the command (default $MATLAB_CI_ENV_FILE)")
	flags.StringArrayVarP(&a.env, "env", "e", nil, "variable for the command as KEY=VALUE (repeatable)")

	root.AddCommand(
		newCommandCmd(a),
		newTestCmd(a),
		newRunCmd(a),
		newReportCmd(a),
	)

	return root
}

// ----------------------------------------------------- COMMAND ---------------------------------------------------- //

var errReadingCommand = errors.New("reading command text")

func newCommandCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "command [flags] [command text]",
		Short: "Run a MATLAB command",
		Example: `  matlab-ci command "disp('hello world')"
  matlab-ci command -e VERSION=R2023b --matlab-root '/opt/matlab/$VERSION' "results = runtests; assertSuccess(results);"
  matlab-ci command --file build.m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if file != "" {
				if len(args) > 0 {
					return flaterrors.Join(errors.New("--file cannot be combined with command text"), errReadingCommand)
				}
				b, err := os.ReadFile(file)
				if err != nil {
					return flaterrors.Join(err, errReadingCommand)
				}
				text = string(b)
			}

			return a.runStep(cmd, execution{StepSpec: matlabci.StepSpec{Name: "command", Command: text}})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the command text from a file")

	return cmd
}

// ----------------------------------------------------- TEST ------------------------------------------------------- //

// artifactFlags maps flag names to test artifact kinds.
var artifactFlags = []struct {
	flag  string
	kind  testrun.ArtifactKind
	usage string
}{
	{"pdf", testrun.PDF, "write a PDF test report"},
	{"tap", testrun.TAP, "write TAP test results"},
	{"junit", testrun.JUnit, "write JUnit-style test results"},
	{"stm-results", testrun.SimulinkTest, "export Simulink Test Manager results"},
	{"cobertura", testrun.Cobertura, "write Cobertura code coverage"},
	{"model-coverage", testrun.ModelCoverage, "write Cobertura model coverage"},
}

func newTestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test [flags]",
		Short: "Run the MATLAB tests of the workspace",
		Long: `Run all tests of the workspace and optionally write test artifacts.

An artifact flag given without a value writes the artifact to its default path under
matlabTestArtifacts/. Give a path with --flag=PATH.`,
		Example: `  matlab-ci test --junit --cobertura=coverage/cobertura.xml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := testrun.Options{}
			for _, af := range artifactFlags {
				if !cmd.Flags().Changed(af.flag) {
					continue
				}
				path, err := cmd.Flags().GetString(af.flag)
				if err != nil {
					return err
				}
				if err := opts.Set(af.kind.Name, path); err != nil {
					return err
				}
			}

			return a.runStep(cmd, execution{StepSpec: matlabci.StepSpec{Name: "test", Tests: &opts}})
		},
	}

	for _, af := range artifactFlags {
		cmd.Flags().String(af.flag, "", fmt.Sprintf("%s (default path %s)", af.usage, af.kind.DefaultPath))
		cmd.Flags().Lookup(af.flag).NoOptDefVal = af.kind.DefaultPath
	}

	return cmd
}

// runStep completes ex with the global flags, runs it and reports the outcome.
func (a *app) runStep(cmd *cobra.Command, ex execution) error {
	env, err := a.inlineEnv()
	if err != nil {
		return err
	}

	ex.Env = env
	ex.Workspace = firstNonEmpty(a.workspace, a.envs.Workspace)
	ex.EnvFile = firstNonEmpty(a.envFile, a.envs.EnvFile)

	run, err := a.execute(cmd.Context(), ex)
	if err != nil {
		return err
	}

	a.report(run)

	if run.Result == matlabci.ResultFailure {
		return resultError{step: run.Step, exitCode: run.ExitCode}
	}

	return nil
}

// ----------------------------------------------------- RUN -------------------------------------------------------- //

var errRunningSpec = errors.New("running matlab-ci spec")

func newRunCmd(a *app) *cobra.Command {
	var (
		configPath string
		steps      []string
	)

	cmd := &cobra.Command{
		Use:   "run [flags]",
		Short: "Run the steps of a matlab-ci.yaml project",
		Long: `Run the steps of a project file in order and record each run in the run report.
The first failing step stops the run.`,
		Example: `  matlab-ci run
  matlab-ci run --config ci/matlab-ci.yaml --step build --step test`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := matlabci.ReadSpecFromPath(configPath)
			if err != nil {
				return err
			}

			selected, err := selectSteps(spec, steps)
			if err != nil {
				return flaterrors.Join(err, errRunningSpec)
			}

			inline, err := a.inlineEnv()
			if err != nil {
				return err
			}

			report, err := matlabci.ReadOrCreateReport(spec.ReportPath)
			if err != nil {
				return flaterrors.Join(err, errRunningSpec)
			}

			for _, step := range selected {
				step.Env = mergeEnv(spec.Env, step.Env, inline)

				run, err := a.execute(cmd.Context(), execution{
					StepSpec:   step,
					Workspace:  firstNonEmpty(a.workspace, spec.Workspace),
					MatlabRoot: firstNonEmpty(a.matlabRoot, spec.MatlabRoot),
					EnvFile:    firstNonEmpty(a.envFile, spec.EnvFile, a.envs.EnvFile),
				})
				if run.ID != "" {
					matlabci.AddRun(&report, run)
					if writeErr := matlabci.WriteReport(spec.ReportPath, report); writeErr != nil {
						return flaterrors.Join(writeErr, errRunningSpec)
					}
				}
				if err != nil {
					return flaterrors.Join(err, errRunningSpec)
				}

				a.report(run)

				if run.Result == matlabci.ResultFailure {
					return resultError{step: run.Step, exitCode: run.ExitCode}
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", matlabci.ConfigPath, "path to the project file")
	cmd.Flags().StringArrayVarP(&steps, "step", "s", nil, "run only this step (repeatable, runs in the given order)")

	return cmd
}

// selectSteps returns the named steps in the given order, or every step when names is empty.
func selectSteps(spec matlabci.Spec, names []string) ([]matlabci.StepSpec, error) {
	if len(names) == 0 {
		return spec.Steps, nil
	}

	out := make([]matlabci.StepSpec, 0, len(names))
	for _, name := range names {
		step, ok := spec.Step(name)
		if !ok {
			return nil, fmt.Errorf("unknown step %q", name)
		}
		out = append(out, step)
	}

	return out, nil
}

// ----------------------------------------------------- REPORT ----------------------------------------------------- //

// since renders an RFC 3339 timestamp relative to now, e.g. "3 minutes ago".
func since(timestamp string) string {
	t, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return timestamp
	}
	return humanize.Time(t)
}

func newReportCmd(a *app) *cobra.Command {
	var (
		configPath string
		failed     bool
	)

	cmd := &cobra.Command{
		Use:   "report [flags]",
		Short: "Show the latest run of each step of a matlab-ci.yaml project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := matlabci.ReadSpecFromPath(configPath)
			if err != nil {
				return err
			}

			report, err := matlabci.ReadOrCreateReport(spec.ReportPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if failed {
				for _, run := range matlabci.RunsByResult(report, matlabci.ResultFailure) {
					_, _ = fmt.Fprintf(out, "%s\t%s\t%s\texit code %d\n", run.StartedAt, run.Step, run.Result, run.ExitCode)
				}
				return nil
			}

			for _, step := range spec.Steps {
				run, err := matlabci.LatestRun(report, step.Name)
				if err != nil {
					_, _ = fmt.Fprintf(out, "%s\tnever run\n", step.Name)
					continue
				}
				_, _ = fmt.Fprintf(out, "%s\t%s\texit code %d\t%s\n", step.Name, run.Result, run.ExitCode, since(run.StartedAt))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", matlabci.ConfigPath, "path to the project file")
	cmd.Flags().BoolVar(&failed, "failed", false, "list every failed run instead")

	return cmd
}
