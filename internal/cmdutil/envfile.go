package cmdutil

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
)

var errLoadingEnvFile = errors.New("loading env file")

// LoadEnvFile loads environment variables from a file.
//
// Supported formats:
//   - KEY=VALUE
//   - export KEY=VALUE
//   - KEY="VALUE with spaces"
//   - # comments
//
// If the file doesn't exist, returns an empty map (not an error).
func LoadEnvFile(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, flaterrors.Join(err, errLoadingEnvFile)
	}

	envVars := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))

	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, flaterrors.Join(
				fmt.Errorf("invalid line %d in %s: %q", lineNum, path, line),
				errLoadingEnvFile,
			)
		}

		envVars[key] = unquote(strings.TrimSpace(value))
	}

	if err := scanner.Err(); err != nil {
		return nil, flaterrors.Join(err, errLoadingEnvFile)
	}

	return envVars, nil
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}

	first, last := value[0], value[len(value)-1]
	if first == last && (first == '"' || first == '\'') {
		return value[1 : len(value)-1]
	}

	return value
}

// Environment merges environment variables with the following precedence (highest to lowest):
//  1. Inline env vars
//  2. Env file vars (envFile may be empty)
//  3. System environment
func Environment(envFile string, inline map[string]string) (map[string]string, error) {
	env := make(map[string]string)

	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			env[key] = value
		}
	}

	if envFile != "" {
		fileVars, err := LoadEnvFile(envFile)
		if err != nil {
			return nil, err
		}
		for key, value := range fileVars {
			env[key] = value
		}
	}

	for key, value := range inline {
		env[key] = value
	}

	return env, nil
}
