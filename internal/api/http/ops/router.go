package ops

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/protobuf/encoding/protojson"

	statusapi "github.com/oshokin/redalert/internal/api/grpc/status"
	"github.com/oshokin/redalert/internal/domain/report"
	"github.com/oshokin/redalert/internal/logger"
)

// NewRouter registers /metrics, /healthz and /status.
func NewRouter(reporter report.Reporter, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", healthHandler(reporter))
	r.Get("/status", statusHandler(reporter))

	return r
}

// healthHandler is healthy while the broker session is up, since nothing can
// be published without it.
func healthHandler(reporter report.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		r := reporter.Report()
		if !r.BrokerConnected {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("broker " + r.Broker + "\n"))

			return
		}

		_, _ = w.Write([]byte("ok\n"))
	}
}

func statusHandler(reporter report.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		document, err := statusapi.Encode(reporter.Report())
		if err == nil {
			var body []byte

			body, err = protojson.Marshal(document)
			if err == nil {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(body)

				return
			}
		}

		logger.ErrorKV(req.Context(), "Failed to encode status", "error", err)
		http.Error(w, "unable to encode status", http.StatusInternalServerError)
	}
}
