package trace

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var windowsDrive = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// Classifier decides whether a frame's source file belongs to user code or
// to the installed-packages tree rooted at a single configured prefix.
//
// The prefix test is the only ownership signal: files outside both the
// project and the packages root (host runtime internals, for instance) are
// reported as user-defined.
type Classifier struct {
	root string
}

// NewClassifier returns a Classifier for the given packages root. An empty
// root marks no file as library-owned.
func NewClassifier(packagesRoot string) Classifier {
	if packagesRoot == "" {
		return Classifier{}
	}
	return Classifier{root: canonicalPath(packagesRoot)}
}

// Root returns the canonical packages root, or "" when none is configured.
func (c Classifier) Root() string {
	return c.root
}

// IsUserDefined reports whether file lies outside the packages root.
// An empty path is never user-defined.
func (c Classifier) IsUserDefined(file string) bool {
	if strings.TrimSpace(file) == "" {
		return false
	}
	if c.root == "" {
		return true
	}
	return !strings.HasPrefix(canonicalPath(file), c.root)
}

// canonicalPath makes p absolute and clean. Drive-letter paths reported by
// Windows hosts are kept as-is (slash-normalized) so that reports captured
// on another platform still compare against a root from the same platform.
func canonicalPath(p string) string {
	if windowsDrive.MatchString(p) {
		return path.Clean(strings.ReplaceAll(p, `\`, "/"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
