// Package matlabrelease reads the release of a MATLAB installation from its VersionInfo.xml.
package matlabrelease

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
)

// VersionInfoFile is the file, relative to the MATLAB root, describing the release.
const VersionInfoFile = "VersionInfo.xml"

// BatchVersion is the first MATLAB version (R2018b) supporting the -batch option.
const BatchVersion = 9.5

var (
	// ErrVersionInfoNotFound is returned when the MATLAB root has no VersionInfo.xml.
	ErrVersionInfoNotFound = errors.New("MATLAB version info not found")

	errReadingRelease = errors.New("reading MATLAB release")
)

// Info describes a MATLAB release.
type Info struct {
	// Version is the full version string, e.g. "9.5.0.944444".
	Version string
	// Release is the release name, e.g. "R2018b".
	Release string

	major, minor int
}

type versionInfoXML struct {
	XMLName xml.Name `xml:"MathWorks_version_info"`
	Version string   `xml:"version"`
	Release string   `xml:"release"`
}

// Read parses <matlabRoot>/VersionInfo.xml.
func Read(matlabRoot string) (Info, error) {
	b, err := os.ReadFile(filepath.Join(matlabRoot, VersionInfoFile))
	if errors.Is(err, os.ErrNotExist) {
		return Info{}, flaterrors.Join(err, ErrVersionInfoNotFound, errReadingRelease)
	}
	if err != nil {
		return Info{}, flaterrors.Join(err, errReadingRelease)
	}

	return Parse(b)
}

// Parse parses the content of a VersionInfo.xml file.
func Parse(b []byte) (Info, error) {
	out := versionInfoXML{} //nolint:exhaustruct // unmarshal
	if err := xml.Unmarshal(b, &out); err != nil {
		return Info{}, flaterrors.Join(err, errReadingRelease)
	}

	major, minor, err := parseVersion(out.Version)
	if err != nil {
		return Info{}, flaterrors.Join(err, errReadingRelease)
	}

	return Info{
		Version: strings.TrimSpace(out.Version),
		Release: strings.TrimSpace(out.Release),
		major:   major,
		minor:   minor,
	}, nil
}

func parseVersion(v string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid MATLAB version %q", v)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid MATLAB version %q: %w", v, err)
	}

	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid MATLAB version %q: %w", v, err)
	}

	return major, minor, nil
}

// VerLessThan reports whether the release is older than version v, given as major.minor.
// Only the first decimal of v is significant: 9.10 reads as 9.1.
func (i Info) VerLessThan(v float64) bool {
	s := strconv.FormatFloat(v, 'f', -1, 64)

	major, minor, err := parseVersion(s + ".0")
	if err != nil {
		return false
	}

	if i.major != major {
		return i.major < major
	}
	return i.minor < minor
}

// SupportsBatch reports whether the release accepts the -batch startup option.
func (i Info) SupportsBatch() bool {
	return !i.VerLessThan(BatchVersion)
}
