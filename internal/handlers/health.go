package handlers

import (
	"net/http"
	"strings"
	"time"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/services"
)

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	system services.SystemService
	clock  func() time.Time
}

// NewHealthHandlers constructs health handlers. A nil system service degrades
// the readiness probe to a plain liveness response.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{
		system: system,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

type healthCheckPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	CheckedAt string `json:"checked_at,omitempty"`
}

type healthReportPayload struct {
	Status      string                        `json:"status"`
	Checks      map[string]healthCheckPayload `json:"checks,omitempty"`
	Version     string                        `json:"version,omitempty"`
	Environment string                        `json:"environment,omitempty"`
	Uptime      string                        `json:"uptime,omitempty"`
	GeneratedAt string                        `json:"generated_at"`
}

// Healthz reports process liveness only.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, healthReportPayload{
		Status:      domain.HealthStatusOK,
		GeneratedAt: formatTime(h.now()),
	})
}

// Readyz probes the service dependencies and reports 503 when a critical one
// is unavailable.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		h.Healthz(w, r)
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, healthReportPayload{
			Status:      domain.HealthStatusError,
			GeneratedAt: formatTime(h.now()),
		})
		return
	}

	payload := healthReportPayload{
		Status:      strings.TrimSpace(report.Status),
		Version:     strings.TrimSpace(report.Version),
		Environment: strings.TrimSpace(report.Environment),
		GeneratedAt: formatTime(report.GeneratedAt),
	}
	if report.Uptime > 0 {
		payload.Uptime = report.Uptime.Round(time.Second).String()
	}
	if len(report.Checks) > 0 {
		payload.Checks = make(map[string]healthCheckPayload, len(report.Checks))
		for name, check := range report.Checks {
			payload.Checks[name] = healthCheckPayload{
				Status:    strings.TrimSpace(check.Status),
				Detail:    strings.TrimSpace(check.Detail),
				Error:     strings.TrimSpace(check.Error),
				LatencyMS: check.Latency.Milliseconds(),
				CheckedAt: formatTime(check.CheckedAt),
			}
		}
	}

	status := http.StatusOK
	if payload.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, payload)
}

func (h *HealthHandlers) now() time.Time {
	if h.clock == nil {
		return time.Now().UTC()
	}
	return h.clock()
}
