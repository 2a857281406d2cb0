package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathAccepts(t *testing.T) {
	for _, p := range []string{"/", "/foo/bar", "/a-b_c@1", "relative/path"} {
		assert.NoError(t, Path(p), p)
	}
}

func TestPathRejects(t *testing.T) {
	cases := []string{
		"",
		"/foo//bar",
		"/foo/bar/",
		"/foo bar",
		"/foo$bar",
		"/" + strings.Repeat("a", maxAbsolutePathLen),
		strings.Repeat("a", maxRelativePathLen+1),
	}
	for _, p := range cases {
		assert.Error(t, Path(p), p)
	}
}

func TestPathBoundaryLengths(t *testing.T) {
	abs := "/" + strings.Repeat("a", maxAbsolutePathLen-1)
	assert.NoError(t, Path(abs))

	rel := strings.Repeat("a", maxRelativePathLen)
	assert.NoError(t, Path(rel))
}

func TestWatchPathAcceptsReservedTokens(t *testing.T) {
	assert.NoError(t, WatchPath("@introduceDomain"))
	assert.NoError(t, WatchPath("@releaseDomain"))
	assert.Error(t, WatchPath("@anythingElse"))
}

func TestPermission(t *testing.T) {
	assert.NoError(t, Permission("r0"))
	assert.NoError(t, Permission("w1234567890123"))
	assert.NoError(t, Permission("b5"))
	assert.NoError(t, Permission("n9"))
	assert.Error(t, Permission("x0"))
	assert.Error(t, Permission("r"))
	assert.Error(t, Permission("0"))
}
