package firmware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// DefaultVersion is used when no usable marker exists.
const DefaultVersion = "1.0.0"

// versionParts is the number of dot-separated segments a marker must have
// to be incremented.
const versionParts = 3

// ErrInvalidVersion is returned when a three-part marker has a non-numeric patch.
var ErrInvalidVersion = errors.New("invalid version")

// Source tells where a resolved version came from.
type Source string

const (
	// SourceExplicit is a version given on the command line.
	SourceExplicit Source = "explicit"
	// SourceIncrement is the marker with its patch bumped.
	SourceIncrement Source = "increment"
	// SourceDefault is DefaultVersion.
	SourceDefault Source = "default"
)

// Resolution is the outcome of Resolve.
type Resolution struct {
	// Version is the version to publish.
	Version string
	// Previous is the trimmed marker content, empty when absent.
	Previous string
	// Source tells how Version was derived.
	Source Source
}

// Resolve picks the version to publish.
// A non-empty explicit value wins verbatim. Otherwise a marker of exactly
// three dot-separated parts gets its last part incremented; anything else,
// including a missing marker (hasMarker false), yields DefaultVersion.
func Resolve(explicit, marker string, hasMarker bool) (*Resolution, error) {
	previous := strings.TrimSpace(marker)
	if !hasMarker {
		previous = ""
	}

	if explicit != "" {
		return &Resolution{Version: explicit, Previous: previous, Source: SourceExplicit}, nil
	}

	if !hasMarker {
		return &Resolution{Version: DefaultVersion, Source: SourceDefault}, nil
	}

	next, ok, err := NextPatch(previous)
	if err != nil {
		return nil, err
	}

	if !ok {
		return &Resolution{Version: DefaultVersion, Previous: previous, Source: SourceDefault}, nil
	}

	return &Resolution{Version: next, Previous: previous, Source: SourceIncrement}, nil
}

// NextPatch increments the last of exactly three dot-separated parts.
// ok is false when current does not have three parts.
// The leading parts are kept as written; only the last one must be an integer.
func NextPatch(current string) (string, bool, error) {
	parts := strings.Split(current, ".")
	if len(parts) != versionParts {
		return "", false, nil
	}

	patch, err := strconv.Atoi(strings.TrimSpace(parts[versionParts-1]))
	if err != nil {
		return "", false, fmt.Errorf("%w: patch of %q: %w", ErrInvalidVersion, current, err)
	}

	parts[versionParts-1] = strconv.Itoa(patch + 1)

	return strings.Join(parts, "."), true, nil
}

// IsSemantic reports whether v is a valid semantic version,
// with or without a leading "v".
func IsSemantic(v string) bool {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}

	return semver.IsValid(v) && semver.Canonical(v) == v
}
