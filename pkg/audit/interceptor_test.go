package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/trace"
)

// pipeline builds a resolver/sink/interceptor trio over in-test stubs.
func pipeline(t *testing.T, rules ...Rule) (*Interceptor, *memStore, func()) {
	t.Helper()
	st := &memStore{}
	r := loadResolver(t, rules...)
	sink, err := NewSink(st, WithWorkers(1), WithQueueSize(16))
	require.NoError(t, err)
	return NewInterceptor(r, sink), st, func() { _ = sink.Close() }
}

func auditedRule(pattern string, mt MatchType) Rule {
	return Rule{
		HTTPMethod:  "*",
		PathPattern: pattern,
		MatchType:   mt,
		Enabled:     true,
		LogRequest:  true,
		LogResponse: true,
		LogError:    true,
	}
}

func TestAround_DisabledPolicyInvokesDirectly(t *testing.T) {
	ic, st, done := pipeline(t) // no rules, no defaults
	defer done()

	invoked := false
	result, err := ic.Around(context.Background(), OpInfo{Method: "GET", Path: "/api/other"}, nil,
		func(ctx context.Context) (any, error) {
			invoked = true
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.True(t, invoked)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, st.count(), "disabled policy must produce no records")
}

func TestAround_EmitsMaskedRequestAndResponse(t *testing.T) {
	rule := auditedRule("/api/ext/*", MatchGlob)
	rule.MaskFields = []string{"password"}
	ic, st, done := pipeline(t, rule)
	defer done()

	ctx, id := trace.Begin(context.Background(), "")
	result, err := ic.Around(ctx,
		OpInfo{Method: "POST", Path: "/api/ext/login", RemoteAddr: "10.0.0.1:1234"},
		map[string]string{"password": "secret", "user": "a"},
		func(ctx context.Context) (any, error) {
			return map[string]string{"token": "jwt", "password": "echoed"}, nil
		})

	require.NoError(t, err)
	assert.NotNil(t, result)

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	rec := st.last()
	assert.Equal(t, id, rec.CorrelationID)
	assert.Equal(t, "POST", rec.Method)
	assert.Equal(t, "/api/ext/login", rec.Path)
	assert.Equal(t, "10.0.0.1:1234", rec.RemoteAddr)
	assert.JSONEq(t, `{"password":"****","user":"a"}`, string(rec.RequestBody))
	assert.JSONEq(t, `{"token":"jwt","password":"****"}`, string(rec.ResponseBody))
	assert.Empty(t, rec.ErrorSummary)
	assert.False(t, rec.StartedAt.IsZero())
	assert.GreaterOrEqual(t, rec.Duration, time.Duration(0))
}

func TestAround_ErrorPropagatedAndSummarized(t *testing.T) {
	ic, st, done := pipeline(t, auditedRule("/api/jobs", MatchExact))
	defer done()

	boom := errors.New("downstream unavailable")
	result, err := ic.Around(context.Background(), OpInfo{Method: "POST", Path: "/api/jobs"}, nil,
		func(ctx context.Context) (any, error) {
			return nil, boom
		})

	assert.Nil(t, result)
	assert.Same(t, boom, err, "the business error must pass through unchanged")

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	rec := st.last()
	assert.Equal(t, "downstream unavailable", rec.ErrorSummary)
	assert.Empty(t, rec.ResponseBody, "no response is captured on failure")
}

func TestAround_OnlyOnErrorSuppressesSuccess(t *testing.T) {
	rule := auditedRule("/api/jobs", MatchExact)
	rule.OnlyOnError = true
	ic, st, done := pipeline(t, rule)

	_, err := ic.Around(context.Background(), OpInfo{Method: "POST", Path: "/api/jobs"}, nil,
		func(ctx context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	done() // drains the sink

	assert.Zero(t, st.count(), "onlyOnError with a successful call must emit nothing")
}

func TestAround_OnlyOnErrorStillEmitsOnFailure(t *testing.T) {
	rule := auditedRule("/api/jobs", MatchExact)
	rule.OnlyOnError = true
	ic, st, done := pipeline(t, rule)
	defer done()

	_, err := ic.Around(context.Background(), OpInfo{Method: "POST", Path: "/api/jobs"}, nil,
		func(ctx context.Context) (any, error) { return nil, errors.New("failed") })
	require.Error(t, err)

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
}

func TestAround_CaptureFlagsRespected(t *testing.T) {
	rule := Rule{
		HTTPMethod:  "*",
		PathPattern: "/api/quiet",
		MatchType:   MatchExact,
		Enabled:     true,
		// no capture flags at all
	}
	ic, st, done := pipeline(t, rule)
	defer done()

	_, err := ic.Around(context.Background(), OpInfo{Method: "GET", Path: "/api/quiet"},
		map[string]string{"payload": "x"},
		func(ctx context.Context) (any, error) { return "result", nil })
	require.NoError(t, err)

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	rec := st.last()
	assert.Empty(t, rec.RequestBody)
	assert.Empty(t, rec.ResponseBody)
}

func TestAround_UnserializablePayloadDoesNotBreakCall(t *testing.T) {
	ic, st, done := pipeline(t, auditedRule("/api/odd", MatchExact))
	defer done()

	result, err := ic.Around(context.Background(), OpInfo{Method: "POST", Path: "/api/odd"},
		make(chan int), // cannot be serialized
		func(ctx context.Context) (any, error) { return "fine", nil })

	require.NoError(t, err)
	assert.Equal(t, "fine", result)

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Contains(t, string(st.last().RequestBody), "unserializable")
}

func TestAround_AuditPanicDoesNotAffectCaller(t *testing.T) {
	// A sink whose Submit path panics must not change the wrapped call's
	// outcome. The nil sink makes emit panic inside the guard.
	r := loadResolver(t, auditedRule("/api/x", MatchExact))
	ic := NewInterceptor(r, nil)

	result, err := ic.Around(context.Background(), OpInfo{Method: "GET", Path: "/api/x"}, nil,
		func(ctx context.Context) (any, error) { return "ok", nil })

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestAround_GeneratesCorrelationIDWithoutTrace(t *testing.T) {
	ic, st, done := pipeline(t, auditedRule("/api/x", MatchExact))
	defer done()

	_, err := ic.Around(context.Background(), OpInfo{Method: "GET", Path: "/api/x"}, nil,
		func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, st.last().CorrelationID)
}

func TestAround_AtMostOneRecordPerCall(t *testing.T) {
	ic, st, done := pipeline(t, auditedRule("/api/x", MatchExact))

	for i := 0; i < 5; i++ {
		_, err := ic.Around(context.Background(), OpInfo{Method: "GET", Path: "/api/x"}, nil,
			func(ctx context.Context) (any, error) { return nil, nil })
		require.NoError(t, err)
	}
	done()

	assert.Equal(t, 5, st.count())
}
