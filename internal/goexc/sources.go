package goexc

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// DefaultSources is the process-wide source line cache used by FromError
// and Capture.
var DefaultSources = NewSourceLines()

// SourceLines reads and caches source files so frames can carry the text of
// the line they point at.
type SourceLines struct {
	mu       sync.Mutex
	files    map[string][]string
	roots    []string
	resolved map[string]string
}

// NewSourceLines returns a cache that resolves trimmed paths against the
// "src" directories around the working directory and GOROOT/src.
func NewSourceLines() *SourceLines {
	return newSourceLines(srcRoots())
}

func newSourceLines(roots []string) *SourceLines {
	return &SourceLines{
		files:    make(map[string][]string),
		roots:    roots,
		resolved: make(map[string]string),
	}
}

// Line returns the trimmed text of line n (1-based) of file, or "" when the
// file cannot be read or is shorter than n.
func (s *SourceLines) Line(file string, n int) string {
	if s == nil || file == "" || n <= 0 {
		return ""
	}
	s.mu.Lock()
	lines, ok := s.files[file]
	if !ok {
		lines = readLines(file)
		s.files[file] = lines
	}
	s.mu.Unlock()

	if n > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[n-1])
}

// Resolve maps a path relative to some ".../src/" directory back to an
// existing absolute file under one of the known roots. Absolute paths and
// paths no root contains are returned unchanged.
func (s *SourceLines) Resolve(file string) string {
	if s == nil || file == "" || filepath.IsAbs(file) || strings.HasPrefix(file, "/") {
		return file
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if abs, ok := s.resolved[file]; ok {
		return abs
	}

	abs := file
	for _, root := range s.roots {
		candidate := filepath.Join(root, filepath.FromSlash(file))
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			abs = candidate
			break
		}
	}
	s.resolved[file] = abs
	return abs
}

// srcRoots lists the directories oops may have trimmed a path up to: every
// ancestor of the working directory named "src", every "src" child of those
// ancestors, and GOROOT/src.
func srcRoots() []string {
	var roots []string
	seen := make(map[string]bool)
	add := func(dir string) {
		if seen[dir] {
			return
		}
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			seen[dir] = true
			roots = append(roots, dir)
		}
	}

	if wd, err := os.Getwd(); err == nil {
		for dir := wd; ; {
			if filepath.Base(dir) == "src" {
				add(dir)
			}
			add(filepath.Join(dir, "src"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if goroot := runtime.GOROOT(); goroot != "" {
		add(filepath.Join(goroot, "src"))
	}
	return roots
}

func readLines(file string) []string {
	f, err := os.Open(file)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
