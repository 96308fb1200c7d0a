package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"sponsorama/pkg/contracts"
)

// ClientCounter reports how many push clients are connected.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	campaigns *CampaignService
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   contracts.VersionInfo    `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. clients may be nil when no push
// channel is running.
func NewHealthService(campaigns *CampaignService, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		campaigns: campaigns,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns the overall status with component details and runtime figures.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.GetVersionInfo(),
		Services: map[string]ServiceHealth{
			"session":   hs.checkSessionHealth(),
			"websocket": hs.checkWebSocketHealth(),
		},
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"goroutines":     runtime.NumGoroutine(),
		},
	}

	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "degraded"
			break
		}
	}

	hs.logger.DebugContext(ctx, "health check completed",
		slog.String("status", status.Status))
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.GetVersionInfo(),
	}
}

func (hs *HealthService) checkSessionHealth() ServiceHealth {
	if hs.campaigns == nil {
		return ServiceHealth{Status: "not_ready", Message: "campaign service not initialized"}
	}
	view := hs.campaigns.View()
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d campaign(s) loaded", view.Total),
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: "ready", Message: "push channel disabled"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d client(s) connected", hs.clients.ClientCount()),
		Uptime:  time.Since(hs.startTime).Round(time.Second).String(),
	}
}
