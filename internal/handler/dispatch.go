package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/provider-dispatcher/internal/loadbalancer"
)

const HeaderProviderID = "X-Provider-Id"

type DispatchHandler struct {
	logger   *slog.Logger
	balancer *loadbalancer.LoadBalancer
}

func NewDispatchHandler(logger *slog.Logger, lb *loadbalancer.LoadBalancer) *DispatchHandler {
	return &DispatchHandler{
		logger:   logger,
		balancer: lb,
	}
}

func (h *DispatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	h.logger.Debug("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("user_agent", r.UserAgent()))

	res, err := h.balancer.DispatchResult(r.Context())
	if err != nil {
		h.writeDispatchError(w, clientIP, err)
		return
	}

	w.Header().Set(HeaderProviderID, res.ProviderID.String())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Response)
}

func (h *DispatchHandler) writeDispatchError(w http.ResponseWriter, clientIP string, err error) {
	var perr *loadbalancer.ProviderError

	switch {
	case errors.Is(err, loadbalancer.ErrCapacityExceeded):
		h.logger.Warn("Capacity exceeded", slog.String("client", clientIP))
		writeError(w, http.StatusTooManyRequests, err.Error())

	case errors.Is(err, loadbalancer.ErrNoProviderAvailable):
		h.logger.Warn("No provider available", slog.String("client", clientIP))
		writeError(w, http.StatusServiceUnavailable, err.Error())

	case errors.As(err, &perr):
		h.logger.Warn("Provider failed",
			slog.String("client", clientIP),
			slog.String("provider", perr.ProviderID.String()),
			slog.Any("err", perr.Err))
		w.Header().Set(HeaderProviderID, perr.ProviderID.String())
		writeError(w, http.StatusBadGateway, err.Error())

	case errors.Is(err, loadbalancer.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())

	default:
		h.logger.Error("Dispatch failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
