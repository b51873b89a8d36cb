/*
Package observable decorates a datastore.Store with prometheus metrics,
OpenTelemetry spans and structured logs.

	reg := prometheus.NewRegistry()
	store, err := observable.New(ddbStore,
	    observable.WithName("users_table"),
	    observable.WithRegisterer(reg),
	    observable.WithLogger(slog.Default()),
	)

Metrics are only collected when a registerer is given and logs only when a
logger is given. Spans always go to the tracer, which defaults to the global
otel provider and is a no-op unless one is installed.
*/
package observable
