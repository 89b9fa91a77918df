package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal counts requests by route pattern and status code
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bike_router_http_requests_total",
		Help: "Total HTTP requests by route and status code",
	}, []string{"route", "code"})

	// httpRequestDuration tracks handler latency
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bike_router_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"route"})

	// httpRejectedTotal counts requests shed by the concurrency limiter
	httpRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bike_router_http_rejected_total",
		Help: "Requests rejected because the server was at capacity",
	})

	// routeErrorsTotal counts failed route queries by error code
	routeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bike_router_route_errors_total",
		Help: "Failed route queries by error code",
	}, []string{"code"})

	// routeEvaluationsTotal counts successful routes by profile and evaluation status
	routeEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bike_router_route_evaluations_total",
		Help: "Computed routes by profile and evaluation status",
	}, []string{"profile", "status"})

	// routeDistance tracks the length of computed routes
	routeDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bike_router_route_distance_meters",
		Help:    "Length of computed routes in meters",
		Buckets: prometheus.ExponentialBuckets(100, 2, 12), // 100m to ~200km
	})
)
