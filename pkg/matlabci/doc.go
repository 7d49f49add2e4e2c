// Package matlabci holds the project configuration (matlab-ci.yaml), the run report and
// the mapping from interpreter exit codes to build results.
package matlabci
