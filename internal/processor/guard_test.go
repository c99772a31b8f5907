package processor

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/stackoverfix/internal/hermes"
	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

//go:noinline
func rejectPayload(data []byte) {
	if len(data) == 0 {
		panic(errors.New("empty payload"))
	}
}

func TestGuard_RecoversAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	p := New(trace.New(sitePackages), pub, nil, discardLogger())

	h := p.Guard(trace.New(""), func(_ string, data []byte) { rejectPayload(data) })

	require.NotPanics(t, func() { h("stackoverfix.trace.raw", nil) })
	require.Len(t, pub.msgs, 1)

	evt := pub.msgs[0].data.(hermes.NormalizedEvent)
	assert.Equal(t, SelfSource, evt.Source)
	assert.Equal(t, "errors.errorString", evt.Report.Exception)
	assert.Equal(t, "empty payload", evt.Report.Message)
	require.NotNil(t, evt.Report.ErrorPoint)
	assert.True(t, strings.HasSuffix(evt.Report.ErrorPoint.Function, ".rejectPayload"), "error point %q", evt.Report.ErrorPoint.Function)
}

func TestGuard_NoPanic(t *testing.T) {
	pub := &fakePublisher{}
	p := New(trace.New(sitePackages), pub, nil, discardLogger())

	called := false
	h := p.Guard(trace.New(""), func(string, []byte) { called = true })
	h("s", nil)

	assert.True(t, called)
	assert.Empty(t, pub.msgs)
}
