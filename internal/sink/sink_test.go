package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

const root = "/opt/python/lib/site-packages"

func sampleException() trace.StaticException {
	return trace.StaticException{
		Type: "ValueError",
		Msg:  "bad input",
		Chain: trace.TraceChain{
			{File: "/home/dev/app/main.py", Line: 10, Function: "main", Code: "run()"},
			{File: root + "/lib/core.py", Line: 42, Function: "run", Code: "raise ValueError('bad input')"},
		},
	}
}

type fakePublisher struct {
	subject string
	payload []byte
	err     error
}

func (f *fakePublisher) PublishRaw(subject string, payload []byte) error {
	f.subject = subject
	f.payload = payload
	return f.err
}

func TestMarshal_Indent(t *testing.T) {
	n := trace.New(root)
	b, err := Marshal(n.Normalize(sampleException()))
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n    \"error_point\": {")
	assert.Contains(t, string(b), "\n        \"file\": \"/opt/python/lib/site-packages/lib/core.py\"")
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	exc := trace.StaticException{
		Type: "NameError",
		Msg:  "name 'x' is not defined",
		Chain: trace.TraceChain{
			{File: "/home/dev/app/main.py", Line: 1, Function: "<module>", Code: "if a < b && x > 0: pass"},
		},
	}
	b, err := Marshal(trace.New(root).Normalize(exc))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"function": "<module>"`)
	assert.Contains(t, string(b), `"code": "if a < b && x > 0: pass"`)
	assert.NotContains(t, string(b), `\u003c`)
	assert.False(t, strings.HasSuffix(string(b), "\n"))
}

func TestExtractAndDeliver_AllSinks(t *testing.T) {
	var copied string
	old := clipboardWriteAll
	clipboardWriteAll = func(s string) error { copied = s; return nil }
	defer func() { clipboardWriteAll = old }()

	var buf bytes.Buffer
	pub := &fakePublisher{}

	out, err := ExtractAndDeliver(context.Background(), trace.New(root), sampleException(),
		Clipboard{}, Writer{W: &buf}, Hermes{Pub: pub, Subject: "stackoverfix.trace.normalized"})
	require.NoError(t, err)

	assert.Equal(t, out, copied)
	assert.Equal(t, out+"\n", buf.String())
	assert.Equal(t, "stackoverfix.trace.normalized", pub.subject)
	assert.Equal(t, out, string(pub.payload))

	var r trace.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "ValueError", r.Exception)
	assert.Equal(t, 42, r.ErrorPoint.Line)
	require.Len(t, r.FilteredTrace, 1)
	assert.Equal(t, "main", r.FilteredTrace[0].Function)
	require.NotNil(t, r.FirstSitePackageError)
	assert.Equal(t, "run", r.FirstSitePackageError.Function)
}

func TestExtractAndDeliver_SinkFailureStillReturnsJSON(t *testing.T) {
	old := clipboardWriteAll
	clipboardWriteAll = func(string) error { return errors.New("no clipboard utilities available") }
	defer func() { clipboardWriteAll = old }()

	var buf bytes.Buffer
	out, err := ExtractAndDeliver(context.Background(), trace.New(root), sampleException(),
		Clipboard{}, Writer{W: &buf})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy to clipboard")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Equal(t, out+"\n", buf.String())
}

func TestExtractAndDeliver_NoSinks(t *testing.T) {
	out, err := ExtractAndDeliver(context.Background(), trace.New(root), sampleException())
	require.NoError(t, err)
	assert.Contains(t, out, "\"exception\": \"ValueError\"")
}
