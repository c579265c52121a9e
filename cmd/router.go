package main

import (
	"net/http"

	"github.com/angeloszaimis/provider-dispatcher/internal/handler"
	"github.com/angeloszaimis/provider-dispatcher/internal/metrics"
)

func setupRouter(
	dispatch *handler.DispatchHandler,
	providers *handler.ProvidersHandler,
	strategy *handler.StrategyHandler,
	collector *metrics.Collector,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /", dispatch)

	mux.HandleFunc("GET /providers", providers.List)
	mux.HandleFunc("POST /providers", providers.Create)
	mux.HandleFunc("DELETE /providers/{id}", providers.Delete)

	mux.HandleFunc("GET /strategy", strategy.Get)
	mux.HandleFunc("PUT /strategy", strategy.Put)

	mux.HandleFunc("GET /stats", collector.Handler(strategy.Current))
	mux.Handle("GET /metrics", collector.PrometheusHandler())

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}
