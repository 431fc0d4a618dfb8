// Package middleware provides the observability layer of the storefront
// HTTP server.
//
// This package includes:
//   - OpenTelemetry tracing middleware for net/http
//   - Prometheus request metrics middleware
//   - NavMetrics, a nav.Recorder that counts navigation events
//
// # OpenTelemetry Middleware
//
// OTel wraps every request in a server span named after the matched chi
// route:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OTel(
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// # Prometheus Metrics
//
// One Metrics value backs both the HTTP middleware and the navigation
// recorder:
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(m.Middleware)
//	sync := nav.New(cat, loc, nav.WithRecorder(m.Nav()))
//
// Then expose the registry:
//
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package middleware
