package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/angeloszaimis/provider-dispatcher/internal/loadbalancer"
	"github.com/angeloszaimis/provider-dispatcher/internal/strategy"
)

type strategyView struct {
	Name      string   `json:"name"`
	Available []string `json:"available,omitempty"`
}

// StrategyHandler reports and swaps the load balancer's strategy by name.
type StrategyHandler struct {
	logger   *slog.Logger
	balancer *loadbalancer.LoadBalancer

	mutex sync.RWMutex
	name  string
}

func NewStrategyHandler(logger *slog.Logger, lb *loadbalancer.LoadBalancer, current string) *StrategyHandler {
	return &StrategyHandler{
		logger:   logger,
		balancer: lb,
		name:     current,
	}
}

// Current returns the name of the strategy in use.
func (h *StrategyHandler) Current() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.name
}

func (h *StrategyHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, strategyView{Name: h.Current(), Available: strategy.Names()})
}

func (h *StrategyHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req strategyView
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<12)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s, err := strategy.ByName(req.Name)
	if err != nil {
		if errors.Is(err, strategy.ErrUnknownStrategy) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.mutex.Lock()
	previous := h.name
	h.balancer.SetStrategy(s)
	h.name = req.Name
	h.mutex.Unlock()

	h.logger.Info("Strategy changed",
		slog.String("from", previous),
		slog.String("to", req.Name))

	writeJSON(w, http.StatusOK, strategyView{Name: req.Name})
}
