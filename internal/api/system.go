package api

import (
	"context"
	"net/http"
	"time"

	"github.com/autoscribe/autoscribe-core/internal/inference"
)

// componentProbeTimeout bounds each infrastructure probe so one slow
// component cannot stall the status endpoint.
const componentProbeTimeout = 3 * time.Second

// ComponentStatus is one entry in the system status report.
type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SystemStatusResponse aggregates the health of every component.
type SystemStatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`

	Catalog struct {
		Entities   int     `json:"entities"`
		Version    uint64  `json:"version"`
		AgeSeconds float64 `json:"age_seconds"`
	} `json:"catalog"`

	Model *inference.Status `json:"model,omitempty"`

	HomeAssistant    ComponentStatus `json:"home_assistant"`
	MQTT             ComponentStatus `json:"mqtt"`
	InfluxDB         ComponentStatus `json:"influxdb"`
	Database         ComponentStatus `json:"database"`
	WebSocketClients int             `json:"websocket_clients"`
}

// handleSystemStatus reports component availability: catalog size and age,
// model availability, platform reachability, and infrastructure health.
// The overall status is degraded when any configured component is down.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), componentProbeTimeout)
	defer cancel()

	resp := SystemStatusResponse{Status: "ok", Version: s.version}

	snap := s.store.Current()
	resp.Catalog.Entities = snap.Len()
	resp.Catalog.Version = snap.Version()
	resp.Catalog.AgeSeconds = time.Since(snap.TakenAt()).Seconds()

	if s.availability != nil {
		status := s.availability.Status()
		resp.Model = &status
	}

	degraded := false

	resp.HomeAssistant = s.probeHA(ctx)
	if resp.HomeAssistant.Status == "error" {
		degraded = true
	}

	resp.MQTT = probe(ctx, s.mqttHealth)
	if resp.MQTT.Status == "error" {
		degraded = true
	}

	resp.InfluxDB = probe(ctx, s.influxHealth)
	if resp.InfluxDB.Status == "error" {
		degraded = true
	}

	resp.Database = probe(ctx, s.dbHealth)
	if resp.Database.Status == "error" {
		degraded = true
	}

	if s.hub != nil {
		resp.WebSocketClients = s.hub.ClientCount()
	}

	if degraded {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// probeHA pings the platform API. A missing client reports disabled.
func (s *Server) probeHA(ctx context.Context) ComponentStatus {
	if s.ha == nil {
		return ComponentStatus{Status: "disabled"}
	}
	if err := s.ha.Ping(ctx); err != nil {
		return ComponentStatus{Status: "error", Error: err.Error()}
	}
	return ComponentStatus{Status: "ok"}
}

// probe runs one health check, mapping a nil checker to disabled.
func probe(ctx context.Context, hc HealthChecker) ComponentStatus {
	if hc == nil {
		return ComponentStatus{Status: "disabled"}
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return ComponentStatus{Status: "error", Error: err.Error()}
	}
	return ComponentStatus{Status: "ok"}
}
