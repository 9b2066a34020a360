package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

type ServerMiddleware struct {
	handler http.Handler
}

func (m *ServerMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	HttpRequestsTotal.WithLabelValues(path).Inc()
	ActiveConnections.Inc()

	timer := prometheus.NewTimer(HttpRequestDuration.WithLabelValues(path))

	m.handler.ServeHTTP(w, r)

	timer.ObserveDuration()
	ActiveConnections.Dec()
}

func NewServerMiddleware(handlerToWrap http.Handler) *ServerMiddleware {
	return &ServerMiddleware{handlerToWrap}
}
