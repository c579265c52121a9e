package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/angeloszaimis/provider-dispatcher/internal/loadbalancer"
	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
	"github.com/angeloszaimis/provider-dispatcher/internal/registry"
)

type ProviderView struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	Description string `json:"description,omitempty"`
}

type createProviderRequest struct {
	URL string `json:"url"`
}

func (r createProviderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, is.URL),
	)
}

// ProvidersHandler lists, registers and removes providers.
type ProvidersHandler struct {
	logger    *slog.Logger
	balancer  *loadbalancer.LoadBalancer
	synthetic []provider.SyntheticOption
}

// NewProvidersHandler creates the handler. synthetic configures providers
// registered without a URL.
func NewProvidersHandler(logger *slog.Logger, lb *loadbalancer.LoadBalancer, synthetic ...provider.SyntheticOption) *ProvidersHandler {
	return &ProvidersHandler{
		logger:    logger,
		balancer:  lb,
		synthetic: synthetic,
	}
}

func (h *ProvidersHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.balancer.Registry().Entries()

	views := make([]ProviderView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newProviderView(e.Provider, e.State))
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *ProvidersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProviderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.build(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.balancer.Register(p) {
		writeError(w, http.StatusConflict, "provider already registered or registry full")
		return
	}

	state, _ := h.balancer.Registry().State(p.ID())
	writeJSON(w, http.StatusCreated, newProviderView(p, state))
}

func (h *ProvidersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	p, ok := h.balancer.Registry().Lookup(id)
	if !ok || !h.balancer.Remove(p) {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProvidersHandler) build(req createProviderRequest) (provider.Provider, error) {
	if req.URL == "" {
		return provider.NewSynthetic(h.synthetic...), nil
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	return provider.NewHTTP(u), nil
}

func newProviderView(p provider.Provider, state registry.State) ProviderView {
	view := ProviderView{
		ID:    p.ID().String(),
		State: state.String(),
	}
	if s, ok := p.(fmt.Stringer); ok {
		view.Description = s.String()
	}
	return view
}
