package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tripscope/tripscope/internal/api/models"
	"github.com/tripscope/tripscope/internal/api/response"
	"github.com/tripscope/tripscope/internal/provider/resilience"
)

// ProvidersHandler reports external provider health from the adapter registry.
type ProvidersHandler struct {
	registry *resilience.Registry
}

// NewProvidersHandler creates a new ProvidersHandler.
func NewProvidersHandler(registry *resilience.Registry) *ProvidersHandler {
	return &ProvidersHandler{registry: registry}
}

// Health handles GET /v1/providers/health. The overall status is DEGRADED
// when any adapter's circuit is not closed.
func (h *ProvidersHandler) Health(w http.ResponseWriter, r *http.Request) {
	snapshots := h.registry.AllHealth()
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name < snapshots[j].Name
	})

	overall := models.HealthStatusOK
	providers := make([]models.ProviderStatus, 0, len(snapshots))
	for _, s := range snapshots {
		providers = append(providers, providerStatus(s))
		if !s.Healthy() {
			overall = models.HealthStatusDegraded
		}
	}

	response.JSON(w, r, http.StatusOK, models.ProvidersHealth{
		Status:    overall,
		Time:      models.Timestamp(time.Now()),
		Providers: providers,
	})
}

func providerStatus(s *resilience.AdapterHealth) models.ProviderStatus {
	status := models.HealthStatusOK
	switch s.CircuitState {
	case gobreaker.StateOpen.String():
		status = models.HealthStatusFail
	case gobreaker.StateHalfOpen.String():
		status = models.HealthStatusDegraded
	}

	ps := models.ProviderStatus{
		Provider:     s.Name,
		Status:       status,
		CircuitState: s.CircuitState,
	}
	if s.LastSuccessAt != nil {
		t := models.Timestamp(*s.LastSuccessAt)
		ps.LastSuccessAt = &t
	}
	if s.LastFailureAt != nil {
		t := models.Timestamp(*s.LastFailureAt)
		ps.LastFailureAt = &t
	}
	if s.LastError != "" {
		msg := s.LastError
		ps.Message = &msg
	}
	return ps
}
