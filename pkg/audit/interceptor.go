package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/logging"
	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/mask"
	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/trace"
)

// Operation is a wrapped business invocation.
type Operation func(ctx context.Context) (any, error)

// Interceptor wraps business operations with the audit pipeline: resolve
// the effective policy, capture and mask payloads, and emit a record to the
// sink. The wrapped operation's result and error always pass through
// unchanged; any failure on the audit path is contained and logged.
type Interceptor struct {
	resolver       *Resolver
	sink           *Sink
	logger         *slog.Logger
	maxBodyCapture int
}

// InterceptorOption configures an Interceptor.
type InterceptorOption func(*Interceptor)

// WithInterceptorLogger sets the interceptor's logger.
func WithInterceptorLogger(l *slog.Logger) InterceptorOption {
	return func(i *Interceptor) { i.logger = l }
}

// WithMaxBodyCapture limits how many bytes of an HTTP body are captured
// into a record. Default: 64 KiB.
func WithMaxBodyCapture(n int) InterceptorOption {
	return func(i *Interceptor) {
		if n > 0 {
			i.maxBodyCapture = n
		}
	}
}

// NewInterceptor creates an Interceptor emitting through sink under the
// policies resolved by resolver.
func NewInterceptor(resolver *Resolver, sink *Sink, opts ...InterceptorOption) *Interceptor {
	i := &Interceptor{
		resolver:       resolver,
		sink:           sink,
		logger:         logging.Nop(),
		maxBodyCapture: DefaultMaxBodyCapture,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Around invokes fn under the audit policy resolved for info. When the
// policy is disabled fn runs with no side effects at all. Otherwise the
// request payload is captured and masked before fn runs (if logRequest),
// the response or error afterwards (if logResponse/logError), and a single
// record is handed to the sink, unless onlyOnError is set and fn
// succeeded, in which case nothing is emitted.
//
// fn's result and error are returned unmodified regardless of anything the
// audit path does.
func (i *Interceptor) Around(ctx context.Context, info OpInfo, reqBody any, fn Operation) (any, error) {
	st := i.resolver.Resolve(info.Method, info.Path)
	if !st.Enabled {
		return fn(ctx)
	}

	var reqJSON []byte
	if st.LogRequest {
		i.guard(ctx, "capture request", func() {
			reqJSON = mask.Mask(reqBody, st.MaskFields)
		})
	}

	start := time.Now()
	result, err := fn(ctx)
	duration := time.Since(start)

	i.guard(ctx, "emit", func() {
		if st.OnlyOnError && err == nil {
			return
		}
		rec := i.newRecord(ctx, info, start, duration)
		rec.RequestBody = reqJSON
		if err == nil && st.LogResponse {
			rec.ResponseBody = mask.Mask(result, st.MaskFields)
		}
		if err != nil && st.LogError {
			rec.ErrorSummary = err.Error()
		}
		i.sink.Submit(ctx, rec)
	})

	return result, err
}

// newRecord builds the common part of an audit record. A missing
// correlation id means the boundary layer did not run the trace middleware;
// the record still gets a usable id of its own.
func (i *Interceptor) newRecord(ctx context.Context, info OpInfo, start time.Time, duration time.Duration) *Record {
	id := trace.FromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	return &Record{
		CorrelationID: id,
		Method:        info.Method,
		Path:          info.Path,
		RemoteAddr:    info.RemoteAddr,
		StartedAt:     start,
		Duration:      duration,
	}
}

// guard runs an audit-path step, containing panics so they can never alter
// the outcome of the wrapped operation.
func (i *Interceptor) guard(ctx context.Context, stage string, f func()) {
	defer func() {
		if p := recover(); p != nil {
			logging.WithCorrelation(ctx, i.logger).Error("audit: stage failed, continuing",
				"stage", stage, "panic", p)
		}
	}()
	f()
}
