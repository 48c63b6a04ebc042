// Package audit implements the request audit interception pipeline.
//
// The pipeline decides, per inbound call, whether and what to record: a
// Resolver matches the request method and path against a dynamically
// refreshed rule set, the Interceptor captures and masks request/response
// payloads around the wrapped operation, and the Sink persists the finished
// record asynchronously so the business call never waits on audit I/O.
//
// # Basic Usage
//
//	resolver := audit.NewResolver(source)
//	refresher := audit.NewRefresher(resolver, 30*time.Minute)
//	refresher.Start(ctx)
//	defer refresher.Stop()
//
//	sink, err := audit.NewSink(store)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sink.Close()
//
//	ic := audit.NewInterceptor(resolver, sink)
//	handler = ic.Middleware(handler)
//
// Non-HTTP boundaries wrap individual operations instead:
//
//	result, err := ic.Around(ctx, audit.OpInfo{Method: "POST", Path: "/jobs"},
//		reqPayload, func(ctx context.Context) (any, error) {
//			return runJob(ctx, reqPayload)
//		})
//
// # Failure Isolation
//
// Nothing that goes wrong on the audit path (an unreachable rule source, a
// payload that will not serialize, a persistence error) ever changes the
// outcome of the wrapped call. Rule refresh failures keep the previous
// snapshot, masking failures substitute a placeholder, and persistence
// failures are logged and dropped.
package audit
