// Package healthchecker tracks dependency health. An opened circuit breaker
// marks the service unhealthy until a probe of that dependency succeeds.
package healthchecker

import (
	"context"
	"sync"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/circuitbreak"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"go.uber.org/zap"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type Status struct {
	Healthy       bool   `json:"healthy"`
	FailedService string `json:"failed_service,omitempty"`
}

type Healthchecker struct {
	Checks   map[string]Check
	Interval time.Duration

	mu           sync.RWMutex
	errorService string
}

func NewService(checks map[string]Check) *Healthchecker {
	return &Healthchecker{
		Checks:   checks,
		Interval: time.Duration(config.Conf.HealthCheckerMonitorInterval) * time.Second,
	}
}

func (h *Healthchecker) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return Status{Healthy: h.errorService == "", FailedService: h.errorService}
}

func (h *Healthchecker) TriggerError(service string) {
	logging.Logger.Error("Service error happened", zap.String("service", service))

	h.mu.Lock()
	h.errorService = service
	h.mu.Unlock()
}

func (h *Healthchecker) markHealthy() {
	h.mu.Lock()
	h.errorService = ""
	h.mu.Unlock()
}

// Monitor waits for breaker trips and probes the tripped dependency until it
// is healthy again. It returns when ctx is done.
func (h *Healthchecker) Monitor(ctx context.Context) {
	logging.Logger.Info("Health checker monitor started")

	for {
		select {
		case <-ctx.Done():
			return
		case service := <-circuitbreak.CircuitBreakChan:
			logging.Logger.Info("Circuit break happened", zap.String("service", service))
			h.TriggerError(service)

			if !h.waitHealthy(ctx, service) {
				return
			}

			h.markHealthy()
		}
	}
}

func (h *Healthchecker) waitHealthy(ctx context.Context, service string) bool {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if h.CheckService(ctx, service) {
				return true
			}
		}
	}
}

// CheckService runs the probe registered for service.
func (h *Healthchecker) CheckService(ctx context.Context, service string) bool {
	check, ok := h.Checks[service]
	if !ok {
		logging.Logger.Warn("Unknown service in health check", zap.String("service", service))
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.Interval)
	defer cancel()

	err := check(checkCtx)
	if err != nil {
		logging.Logger.Info("Service still unhealthy",
			zap.String("service", service),
			zap.String("error", err.Error()),
		)

		return false
	}

	logging.Logger.Info(service + " service back healthy")

	return true
}
