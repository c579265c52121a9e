// Provider is a stub HTTP provider for exercising the dispatcher locally.
// GET / answers with the provider's identity and GET /health reports
// health, failing at a configurable rate.
//
// Usage:
//
//	go run ./scripts/provider -port 8081
//	go run ./scripts/provider -port 8082 -health-failure-rate 0.3 -latency 50ms
//
// Register it with the dispatcher through config (providers.http) or
// POST /providers {"url": "http://localhost:8081"}.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/provider-dispatcher/pkg/logger"
)

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	failureRate := flag.Float64("health-failure-rate", 0, "probability that /health answers 503")
	latency := flag.Duration("latency", 0, "delay before answering GET /")
	flag.Parse()

	log := logger.New("info", false, "dev")
	id := uuid.New()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		if *latency > 0 {
			select {
			case <-time.After(*latency):
			case <-r.Context().Done():
				return
			}
		}

		log.Info("Request served", slog.String("from", r.RemoteAddr))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, id.String())
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float64() < *failureRate {
			log.Warn("Reporting unhealthy")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Info("Starting provider", slog.String("addr", addr), slog.String("id", id.String()))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
