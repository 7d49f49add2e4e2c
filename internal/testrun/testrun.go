// Package testrun builds the MATLAB command running a project test suite.
//
// The command calls the runMatlabTests helper shipped with this package, passing one
// name-value pair per requested artifact:
//
//	exit(runMatlabTests('TAPResultsPath','matlabTestArtifacts/taptestresults.tap'))
package testrun

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alexandremahdhaoui/matlab-ci/internal/script"
)

// HelperFile is the file name of the embedded runMatlabTests helper.
const HelperFile = "runMatlabTests.m"

// ArtifactDir is the directory, relative to the workspace, of the default artifact paths.
const ArtifactDir = "matlabTestArtifacts"

//go:embed runMatlabTests.m.txt
var helper string

// ArtifactKind describes one kind of test artifact.
type ArtifactKind struct {
	// Name is the short name used by flags and configuration files.
	Name string
	// Parameter is the runMatlabTests parameter name.
	Parameter string
	// DefaultPath is the path used when the artifact is requested without a path.
	DefaultPath string
}

var (
	PDF           = ArtifactKind{Name: "pdf", Parameter: "PDFReportPath", DefaultPath: ArtifactDir + "/testreport.pdf"}
	TAP           = ArtifactKind{Name: "tap", Parameter: "TAPResultsPath", DefaultPath: ArtifactDir + "/taptestresults.tap"}
	JUnit         = ArtifactKind{Name: "junit", Parameter: "JUnitResultsPath", DefaultPath: ArtifactDir + "/junittestresults.xml"}
	SimulinkTest  = ArtifactKind{Name: "stmResults", Parameter: "SimulinkTestResultsPath", DefaultPath: ArtifactDir + "/simulinktestresults.mldatx"}
	Cobertura     = ArtifactKind{Name: "cobertura", Parameter: "CoberturaCodeCoveragePath", DefaultPath: ArtifactDir + "/cobertura.xml"}
	ModelCoverage = ArtifactKind{Name: "modelCoverage", Parameter: "CoberturaModelCoveragePath", DefaultPath: ArtifactDir + "/coberturamodelcoverage.xml"}
)

// Kinds lists every artifact kind in the order parameters are passed to runMatlabTests.
var Kinds = []ArtifactKind{PDF, TAP, JUnit, SimulinkTest, Cobertura, ModelCoverage}

// Options selects the artifacts a test run produces. An empty path leaves the artifact out.
type Options struct {
	PDF           string `json:"pdf,omitempty"`
	TAP           string `json:"tap,omitempty"`
	JUnit         string `json:"junit,omitempty"`
	SimulinkTest  string `json:"stmResults,omitempty"`
	Cobertura     string `json:"cobertura,omitempty"`
	ModelCoverage string `json:"modelCoverage,omitempty"`
}

// Artifact is a requested artifact and its path relative to the workspace.
type Artifact struct {
	Kind ArtifactKind
	Path string
}

// Artifacts returns the requested artifacts in parameter order.
func (o Options) Artifacts() []Artifact {
	paths := []string{o.PDF, o.TAP, o.JUnit, o.SimulinkTest, o.Cobertura, o.ModelCoverage}

	out := make([]Artifact, 0, len(paths))
	for i, p := range paths {
		if p == "" {
			continue
		}
		out = append(out, Artifact{Kind: Kinds[i], Path: p})
	}

	return out
}

// Set sets the path of the artifact kind named name. An empty path selects the default path.
func (o *Options) Set(name, path string) error {
	for i, k := range Kinds {
		if k.Name != name {
			continue
		}
		if path == "" {
			path = k.DefaultPath
		}
		*o.fields()[i] = path
		return nil
	}

	return fmt.Errorf("unknown test artifact %q", name)
}

func (o *Options) fields() []*string {
	return []*string{&o.PDF, &o.TAP, &o.JUnit, &o.SimulinkTest, &o.Cobertura, &o.ModelCoverage}
}

// Command returns the MATLAB command running the tests.
func (o Options) Command() string {
	artifacts := o.Artifacts()

	params := make([]string, 0, 2*len(artifacts))
	for _, a := range artifacts {
		params = append(params, quote(a.Kind.Parameter), quote(a.Path))
	}

	return fmt.Sprintf("exit(runMatlabTests(%s))", strings.Join(params, ","))
}

// SupportFiles returns the files the command needs next to the generated script.
func (o Options) SupportFiles() map[string]string {
	return map[string]string{HelperFile: helper}
}

// Request returns the script request running the tests in workspace.
func (o Options) Request(workspace string, env map[string]string) script.Request {
	return script.Request{
		Command:      o.Command(),
		Workspace:    workspace,
		Env:          env,
		SupportFiles: o.SupportFiles(),
	}
}

// Resolve returns the absolute path of a relative to workspace.
func (a Artifact) Resolve(workspace string) string {
	if filepath.IsAbs(a.Path) {
		return a.Path
	}
	return filepath.Join(workspace, filepath.FromSlash(a.Path))
}

func quote(s string) string {
	return "'" + script.QuotePath(s) + "'"
}
