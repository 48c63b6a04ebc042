package audit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/mask"
)

// Middleware adapts the interception pipeline to an http.Handler chain.
// It resolves the policy per request, tees off a bounded copy of the
// request body for capture, records the response status and a bounded body
// copy through a capture writer, and emits through the same pipeline as
// Around. Responses with status >= 400 are treated as the error outcome of
// the wrapped operation.
//
// Mount the trace middleware outside this one so records pick up the
// request's correlation id.
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := i.resolver.Resolve(r.Method, r.URL.Path)
		if !st.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()

		var reqJSON []byte
		if st.LogRequest && r.Body != nil && r.ContentLength != 0 {
			i.guard(ctx, "capture request", func() {
				// Read only up to the capture limit and stitch the body
				// back together, so large uploads are not buffered.
				peek := make([]byte, i.maxBodyCapture)
				n, _ := io.ReadFull(r.Body, peek)
				if n > 0 {
					reqJSON = mask.Mask(peek[:n], st.MaskFields)
					r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(peek[:n]), r.Body))
				}
			})
		}

		capture := &responseCapture{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // default if WriteHeader is never called
			maxCaptureSize: i.maxBodyCapture,
		}

		start := time.Now()
		next.ServeHTTP(capture, r)
		duration := time.Since(start)

		i.guard(ctx, "emit", func() {
			failed := capture.statusCode >= http.StatusBadRequest
			if st.OnlyOnError && !failed {
				return
			}

			rec := i.newRecord(ctx, OpInfo{
				Method:     r.Method,
				Path:       r.URL.Path,
				RemoteAddr: r.RemoteAddr,
			}, start, duration)
			rec.StatusCode = capture.statusCode
			rec.RequestBody = reqJSON
			if !failed && st.LogResponse && capture.body.Len() > 0 {
				rec.ResponseBody = mask.Mask(capture.body.Bytes(), st.MaskFields)
			}
			if failed && st.LogError {
				rec.ErrorSummary = fmt.Sprintf("HTTP %d %s", capture.statusCode,
					http.StatusText(capture.statusCode))
			}
			i.sink.Submit(ctx, rec)
		})
	})
}

// responseCapture captures the status code and a bounded copy of the
// response body while passing everything through to the client.
type responseCapture struct {
	http.ResponseWriter
	statusCode     int
	body           bytes.Buffer
	maxCaptureSize int
}

// WriteHeader captures the status code and delegates.
func (rc *responseCapture) WriteHeader(code int) {
	rc.statusCode = code
	rc.ResponseWriter.WriteHeader(code)
}

// Write captures up to maxCaptureSize bytes of the body and delegates.
func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.body.Len() < rc.maxCaptureSize {
		remaining := rc.maxCaptureSize - rc.body.Len()
		if len(b) <= remaining {
			rc.body.Write(b)
		} else {
			rc.body.Write(b[:remaining])
		}
	}
	return rc.ResponseWriter.Write(b)
}
