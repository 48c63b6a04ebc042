package audit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/trace"
)

func echoHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(status)
		if len(body) > 0 {
			w.Write(body) //nolint:errcheck
		}
	})
}

func TestMiddleware_MasksCapturedRequestBody(t *testing.T) {
	// Scenario from the rule set: ANY /api/ext/* GLOB masking "password".
	rule := Rule{
		HTTPMethod:  "ANY",
		PathPattern: "/api/ext/*",
		MatchType:   MatchGlob,
		Enabled:     true,
		LogRequest:  true,
		MaskFields:  []string{"password"},
	}
	ic, st, done := pipeline(t, rule)
	defer done()

	h := trace.Middleware(ic.Middleware(echoHandler(http.StatusOK)))
	req := httptest.NewRequest(http.MethodPost, "/api/ext/login",
		strings.NewReader(`{"password":"secret","user":"a"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// The handler still saw the full, unmasked body.
	assert.Equal(t, `{"password":"secret","user":"a"}`, rec.Body.String())

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	stored := st.last()
	assert.JSONEq(t, `{"password":"****","user":"a"}`, string(stored.RequestBody))
	assert.Equal(t, http.MethodPost, stored.Method)
	assert.Equal(t, "/api/ext/login", stored.Path)
	assert.Equal(t, http.StatusOK, stored.StatusCode)
	assert.Equal(t, rec.Header().Get(trace.Header), stored.CorrelationID,
		"record must carry the request's correlation id")
}

func TestMiddleware_NoMatchingRuleNoRecord(t *testing.T) {
	ic, st, done := pipeline(t) // empty rule set, no static defaults
	defer done()

	h := ic.Middleware(echoHandler(http.StatusOK))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/other", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, st.count())
}

func TestMiddleware_CapturesResponseBody(t *testing.T) {
	rule := auditedRule("/api/data", MatchExact)
	rule.MaskFields = []string{"secret"}
	ic, st, done := pipeline(t, rule)
	defer done()

	h := ic.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"secret":"s","value":42}`)) //nolint:errcheck
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data", nil))

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.JSONEq(t, `{"secret":"****","value":42}`, string(st.last().ResponseBody))
}

func TestMiddleware_ErrorStatusProducesSummary(t *testing.T) {
	ic, st, done := pipeline(t, auditedRule("/api/fail", MatchExact))
	defer done()

	h := ic.Middleware(echoHandler(http.StatusBadGateway))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fail", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code, "client sees the handler's status untouched")

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	stored := st.last()
	assert.Equal(t, http.StatusBadGateway, stored.StatusCode)
	assert.Contains(t, stored.ErrorSummary, "502")
	assert.Empty(t, stored.ResponseBody, "failed responses are summarized, not captured")
}

func TestMiddleware_OnlyOnError(t *testing.T) {
	rule := auditedRule("/api/jobs", MatchExact)
	rule.OnlyOnError = true
	ic, st, done := pipeline(t, rule)

	h := ic.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/jobs?fail=1", nil))
	done()

	require.Equal(t, 1, st.count(), "only the failed call may be recorded")
	assert.Equal(t, http.StatusInternalServerError, st.last().StatusCode)
}

func TestMiddleware_BodyCaptureBounded(t *testing.T) {
	rule := auditedRule("/api/upload", MatchExact)
	st := &memStore{}
	r := loadResolver(t, rule)
	sink, err := NewSink(st, WithWorkers(1))
	require.NoError(t, err)
	defer sink.Close()
	ic := NewInterceptor(r, sink, WithMaxBodyCapture(64))

	const bodySize = 1 << 20
	var handlerSaw int
	h := ic.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := io.Copy(io.Discard, r.Body)
		handlerSaw = int(n)
		w.WriteHeader(http.StatusOK)
	}))

	body := strings.Repeat("x", bodySize)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(body))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, bodySize, handlerSaw, "the handler must receive the reconstructed full body")

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, len(st.last().RequestBody), 64+16,
		"captured body must be bounded by the capture limit")
}

func TestMiddleware_DefaultStatusIs200(t *testing.T) {
	ic, st, done := pipeline(t, auditedRule("/api/x", MatchExact))
	defer done()

	// Handler writes neither header nor body.
	h := ic.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/x", nil))

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, http.StatusOK, st.last().StatusCode)
}
