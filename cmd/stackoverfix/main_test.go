package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/stackoverfix/internal/config"
	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

const recursionTraceback = `Traceback (most recent call last):
  File "/srv/app/walk.py", line 9, in <module>
    walk(tree)
  File "/srv/app/walk.py", line 5, in walk
    return walk(node.child)
  File "/srv/app/walk.py", line 5, in walk
    return walk(node.child)
  File "/srv/app/walk.py", line 5, in walk
    return walk(node.child)
  [Previous line repeated 996 more times]
  File "/srv/app/walk.py", line 4, in walk
    if node is None:
RecursionError: maximum recursion depth exceeded in comparison
`

func resetFlags(t *testing.T) {
	t.Helper()
	cfg = config.Config{PackagesRoot: "/usr/lib/python3/site-packages", RecursionKind: trace.DefaultRecursionKind}
	copyReport, publishReport, packagesRoot, recursionKind = false, false, "", ""
	t.Cleanup(func() {
		copyReport, publishReport, packagesRoot, recursionKind = false, false, "", ""
	})
}

func TestRunNormalize(t *testing.T) {
	resetFlags(t)

	var out bytes.Buffer
	require.NoError(t, runNormalize(context.Background(), strings.NewReader(recursionTraceback), &out))

	var r trace.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	assert.Equal(t, "RecursionError", r.Exception)
	assert.Len(t, r.FilteredTrace, trace.RecursionLimit)
	require.NotNil(t, r.ErrorPoint)
	assert.Equal(t, 4, r.ErrorPoint.Line)
	assert.Equal(t, "if node is None:", r.ErrorPoint.Code)
}

const pandasTraceback = `Traceback (most recent call last):
  File "/home/dev/app/report.py", line 8, in <module>
    print(df.loc["total"])
  File "/opt/py/lib/python3.12/site-packages/pandas/core/indexing.py", line 1191, in __getitem__
    return self._getitem_axis(maybe_callable, axis=axis)
  File "/opt/py/lib/python3.12/site-packages/pandas/core/indexes/base.py", line 3812, in get_loc
    raise KeyError(key) from err
KeyError: 'total'
`

func TestRunNormalize_DefaultConfigUsesPythonSitePackages(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter is a shell script")
	}
	resetFlags(t)

	bin := t.TempDir()
	script := "#!/bin/sh\necho /opt/py/lib/python3.12/site-packages\n"
	if err := os.WriteFile(filepath.Join(bin, "python3"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin)
	for _, key := range []string{"STACKOVERFIX_CONFIG", "STACKOVERFIX_PACKAGES_ROOT", "STACKOVERFIX_SESSION_BACKEND", "STACKOVERFIX_LLM_PROVIDER"} {
		t.Setenv(key, "")
	}
	t.Setenv("GOMODCACHE", "/root/go/pkg/mod")

	loaded, err := config.Load()
	require.NoError(t, err)
	cfg = loaded
	assert.Equal(t, "/opt/py/lib/python3.12/site-packages", cfg.PackagesRoot)

	var out bytes.Buffer
	require.NoError(t, runNormalize(context.Background(), strings.NewReader(pandasTraceback), &out))

	var r trace.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	require.NotNil(t, r.FirstSitePackageError)
	assert.Equal(t, 1191, r.FirstSitePackageError.Line)
	require.Len(t, r.FilteredTrace, 1)
	assert.Equal(t, "/home/dev/app/report.py", r.FilteredTrace[0].File)
	assert.Contains(t, out.String(), `"function": "<module>"`)
}

func TestRunNormalize_RecursionKindOverride(t *testing.T) {
	resetFlags(t)
	recursionKind = "StackOverflowError"

	var out bytes.Buffer
	require.NoError(t, runNormalize(context.Background(), strings.NewReader(recursionTraceback), &out))

	var r trace.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	assert.Len(t, r.FilteredTrace, 5)
}

func TestRunNormalize_NotATraceback(t *testing.T) {
	resetFlags(t)
	err := runNormalize(context.Background(), strings.NewReader("all good here"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunNormalize_PublishWithoutNATS(t *testing.T) {
	resetFlags(t)
	publishReport = true
	err := runNormalize(context.Background(), strings.NewReader(recursionTraceback), &bytes.Buffer{})
	assert.ErrorContains(t, err, "NATS_URL")
}

func TestSetupLogging(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "bogus"} {
		setupLogging(lvl)
	}
}
