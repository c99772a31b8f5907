// Package pytrace reads CPython's textual traceback format into the frame
// chain the normalizer consumes.
package pytrace

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

// ErrNoTraceback is returned when text holds neither frames nor an
// exception line.
var ErrNoTraceback = errors.New("no python traceback found")

var (
	headerRe    = regexp.MustCompile(`^\s*Traceback \(most recent call last\):\s*$`)
	frameRe     = regexp.MustCompile(`^\s*File "(.*)", line (\d+)(?:, in (.+?))?\s*$`)
	markerRe    = regexp.MustCompile(`^\s*[\^~]+\s*$`)
	repeatedRe  = regexp.MustCompile(`^\s*\[Previous line repeated \d+ more times?\]\s*$`)
	exceptionRe = regexp.MustCompile(`^([A-Za-z_][\w.]*)(?::\s?(.*))?$`)

	detectFrameRe  = regexp.MustCompile(`File ".*?", line \d+`)
	detectErrorRe  = regexp.MustCompile(`\b[A-Za-z]+Error: .*`)
	detectHeaderRe = regexp.MustCompile(`Traceback \(most recent call last\):`)
)

// Exception is a parsed traceback. TypeName is the unqualified class name,
// Qualified keeps any module path that preceded it.
type Exception struct {
	trace.StaticException
	Qualified string
}

// Detect reports whether text looks like it contains a Python traceback or
// error line.
func Detect(text string) bool {
	return detectHeaderRe.MatchString(text) ||
		detectFrameRe.MatchString(text) ||
		detectErrorRe.MatchString(text)
}

// Parse reads the last traceback in text. Earlier tracebacks of a chained
// exception ("During handling of the above exception...") are ignored.
func Parse(text string) (*Exception, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	start := 0
	for i, line := range lines {
		if headerRe.MatchString(line) {
			start = i + 1
		}
	}

	var (
		exc      Exception
		frames   trace.TraceChain
		haveCode bool
		found    bool
	)
	for i := start; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")

		if m := frameRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[2])
			frames = append(frames, trace.Frame{File: m[1], Line: n, Function: m[3]})
			haveCode = false
			continue
		}
		if strings.TrimSpace(line) == "" || markerRe.MatchString(line) || repeatedRe.MatchString(line) {
			continue
		}
		if indented(line) {
			if len(frames) > 0 && !haveCode {
				frames[len(frames)-1].Code = strings.TrimSpace(line)
				haveCode = true
			}
			continue
		}

		m := exceptionRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		exc.Qualified = m[1]
		exc.Type = m[1][strings.LastIndex(m[1], ".")+1:]
		exc.Msg = joinMessage(m[2], lines[i+1:])
		found = true
		break
	}

	if len(frames) == 0 && !found {
		return nil, ErrNoTraceback
	}
	exc.Chain = frames
	return &exc, nil
}

func indented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// joinMessage appends continuation lines of a multi-line exception message.
// The message ends at the first blank line; anything after it is output that
// followed the traceback.
func joinMessage(first string, rest []string) string {
	parts := []string{first}
	for _, line := range rest {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			break
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n")
}
