// Package validate implements the path, watch-path, and permission-token
// checks that must pass before any bytes reach the daemon (§4.2).
// Validation is cheap, pure, and performs no I/O.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxAbsolutePathLen = 3072
	maxRelativePathLen = 2048
)

var (
	pathChars  = regexp.MustCompile(`^[A-Za-z0-9\-/_@]+$`)
	permission = regexp.MustCompile(`^[wrbn][0-9]+$`)
)

const (
	watchIntroduceDomain = "@introduceDomain"
	watchReleaseDomain   = "@releaseDomain"
)

// Path checks that path meets §3's constraints: ASCII alphanumerics
// plus -/_@, length bounds depending on whether it's absolute or relative,
// no "//", and no trailing "/" except for the root path.
func Path(path string) error {
	if path == "" {
		return fmt.Errorf("xenstore: invalid path: empty")
	}

	absolute := strings.HasPrefix(path, "/")
	limit := maxRelativePathLen
	if absolute {
		limit = maxAbsolutePathLen
	}

	if len(path) > limit {
		return fmt.Errorf("xenstore: invalid path %q: longer than %d bytes", path, limit)
	}
	if !pathChars.MatchString(path) {
		return fmt.Errorf("xenstore: invalid path %q: disallowed characters", path)
	}
	if strings.Contains(path, "//") {
		return fmt.Errorf("xenstore: invalid path %q: contains //", path)
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return fmt.Errorf("xenstore: invalid path %q: trailing /", path)
	}

	return nil
}

// WatchPath checks that path is either a valid path (per Path) or one of
// the two reserved watch tokens @introduceDomain / @releaseDomain. Any
// other path beginning with "@" is rejected.
func WatchPath(path string) error {
	if path == watchIntroduceDomain || path == watchReleaseDomain {
		return nil
	}
	if strings.HasPrefix(path, "@") {
		return fmt.Errorf("xenstore: invalid watch path %q: unknown special watch", path)
	}

	if err := Path(path); err != nil {
		return fmt.Errorf("xenstore: invalid watch path %q: %w", path, err)
	}

	return nil
}

// Permission checks that token matches [wrbn][0-9]+: one mode letter
// (write, read, both, none) followed by a decimal domain id. Arbitrarily
// large domain ids are accepted.
func Permission(token string) error {
	if !permission.MatchString(token) {
		return fmt.Errorf("xenstore: invalid permission token %q", token)
	}

	return nil
}
