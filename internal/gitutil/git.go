// Package gitutil reads the revision of a workspace so run records can name the commit they tested.
package gitutil

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
)

var errGettingCommitSHA = errors.New("getting git commit SHA")

// CommitSHA returns the full commit SHA checked out in dir.
//
// Returns an error if:
//   - git is not installed
//   - dir is not inside a Git repository or has no commit yet
//   - the returned SHA is empty
func CommitSHA(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", flaterrors.Join(err, errGettingCommitSHA)
	}

	sha := strings.TrimSpace(string(output))
	if sha == "" {
		return "", flaterrors.Join(errors.New("empty git commit SHA"), errGettingCommitSHA)
	}

	return sha, nil
}
