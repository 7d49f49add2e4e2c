// Package cmdutil assembles the environment a MATLAB command runs with.
//
// This package includes:
//   - LoadEnvFile for reading KEY=VALUE files
//   - Environment for merging the system environment, an env file and inline variables
package cmdutil
