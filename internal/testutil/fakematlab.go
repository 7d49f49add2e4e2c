package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// fakeMATLABBody interprets a tiny subset of MATLAB, one statement per line:
//
//	cd '<dir>';            disp('<text>')           disp(getenv('<NAME>'))
//	disp(pwd)              error('<text>')          exit(<code>)
//	pause(<seconds>)       exit(runMatlabTests(...))
//
// Unknown lines are ignored.
const fakeMATLABBody = `
interpret() {
  script="$1"
  if [ ! -f "$script" ]; then
    echo "fake matlab: script not found: $script" >&2
    exit 2
  fi
  while IFS= read -r line || [ -n "$line" ]; do
    case "$line" in
      "cd '"*)
        dir=$(printf '%s\n' "$line" | sed -e "s/^cd '\(.*\)';*$/\1/" -e "s/''/'/g")
        cd "$dir" || exit 3 ;;
      "disp(getenv('"*)
        name=$(printf '%s\n' "$line" | sed -e "s/^disp(getenv('\(.*\)'));*$/\1/")
        printenv "$name" ;;
      "disp(pwd)"*)
        pwd ;;
      "disp('"*)
        printf '%s\n' "$line" | sed -e "s/^disp('\(.*\)');*$/\1/" ;;
      "error('"*)
        msg=$(printf '%s\n' "$line" | sed -e "s/^error('\(.*\)');*$/\1/")
        echo "Error using fake: $msg" >&2
        exit 1 ;;
      "exit(runMatlabTests"*)
        echo "$line"
        exit 0 ;;
      "exit("*)
        code=$(printf '%s\n' "$line" | sed -e "s/^exit(\([0-9]*\));*$/\1/")
        exit "$code" ;;
      "pause("*)
        secs=$(printf '%s\n' "$line" | sed -e "s/^pause(\([0-9]*\));*$/\1/")
        sleep "$secs" ;;
    esac
  done < "$script"
  exit 0
}
`

// fakeMATLABLauncher mimics the bin/matlab launcher: -batch <name> runs <name>.m from the
// current directory, -r "...run('<path>')..." runs <path>.
const fakeMATLABLauncher = `
echo "MATLAB_ROOT=$MATLAB_ROOT"
while [ $# -gt 0 ]; do
  case "$1" in
    -batch)
      interpret "$PWD/$2.m" ;;
    -r)
      path=$(printf '%s\n' "$2" | sed -e "s/.*run('\([^']*\)').*/\1/")
      interpret "$path" ;;
  esac
  shift
done
echo "fake matlab: no script given" >&2
exit 2
`

// SupportsFakeMATLAB reports whether the fake interpreter can run on this platform.
func SupportsFakeMATLAB() bool {
	return runtime.GOOS != "windows"
}

// WriteFakeInterpreter writes a shell script interpreting the MATLAB script passed as its
// first argument and returns its path. Run it with "sh <path> <script>".
func WriteFakeInterpreter(t TestingT, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "fake-matlab.sh")
	content := "#!/bin/sh\n" + fakeMATLABBody + "\ninterpret \"$1\"\n"

	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("writing fake interpreter: %v", err)
	}

	return path
}

// WriteFakeMATLABRoot creates a fake MATLAB installation under dir and returns its root.
// When version is non-empty a VersionInfo.xml describing it is written.
func WriteFakeMATLABRoot(t TestingT, dir, version, release string) string {
	t.Helper()

	root := filepath.Join(dir, "matlab", release)
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0o755); err != nil {
		t.Fatalf("creating fake MATLAB root: %v", err)
	}

	launcher := "#!/bin/sh\n" + fakeMATLABBody + fakeMATLABLauncher
	if err := os.WriteFile(filepath.Join(root, "bin", "matlab"), []byte(launcher), 0o755); err != nil {
		t.Fatalf("writing fake MATLAB launcher: %v", err)
	}

	if version != "" {
		xml := strings.Join([]string{
			`<?xml version="1.0" encoding="UTF-8"?>`,
			`<MathWorks_version_info>`,
			`  <version>` + version + `</version>`,
			`  <release>` + release + `</release>`,
			`</MathWorks_version_info>`,
		}, "\n")
		if err := os.WriteFile(filepath.Join(root, "VersionInfo.xml"), []byte(xml), 0o644); err != nil {
			t.Fatalf("writing VersionInfo.xml: %v", err)
		}
	}

	return root
}
