// Package health aggregates in-process health checks for the orrery: the frame
// loop, the texture loader's circuit breaker and memory usage. Results are
// logged rather than served, as the orrery exposes no network surface.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-orrery/pkg/logging"
)

// Status values reported by HealthChecker.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthCheck defines the interface for individual health checks.
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check performs the health check and returns an error if unhealthy
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the orrery.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// Healthy reports whether every check passed.
func (s HealthStatus) Healthy() bool {
	return s.Status == StatusHealthy
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker manages and executes health checks.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a health check. A check with the same name is replaced.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth executes all registered health checks and returns the aggregated status.
// The overall status is healthy only if all individual checks pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: StatusHealthy,
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[name] = ComponentHealth{
				Status:  StatusUnhealthy,
				Message: err.Error(),
			}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: StatusHealthy}
	}

	return status
}

// Report runs every check and logs the outcome: one INFO line when all pass,
// a WARN line per failing component otherwise.
func (hc *HealthChecker) Report(ctx context.Context, logger *logging.Logger) HealthStatus {
	status := hc.CheckHealth(ctx)
	if status.Healthy() {
		logger.Info(ctx, "health check passed", "checks", len(status.Checks))
		return status
	}

	names := make([]string, 0, len(status.Checks))
	for name := range status.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if c := status.Checks[name]; c.Status != StatusHealthy {
			logger.Warn(ctx, "health check failed", "component", name, "message", c.Message)
		}
	}
	return status
}

// LoopHealthCheck reports whether the frame loop has produced any frames.
type LoopHealthCheck struct {
	frames func() uint64
}

// NewLoopHealthCheck creates a health check over a frame counter.
func NewLoopHealthCheck(frames func() uint64) *LoopHealthCheck {
	return &LoopHealthCheck{frames: frames}
}

// Name returns the name of this health check.
func (l *LoopHealthCheck) Name() string {
	return "frame_loop"
}

// Check fails until the first frame has run.
func (l *LoopHealthCheck) Check(ctx context.Context) error {
	if l.frames() == 0 {
		return errors.New("no frames rendered")
	}
	return nil
}

// AssetHealthCheck reports on the texture loader's circuit breaker.
type AssetHealthCheck struct {
	state func() gobreaker.State
}

// NewAssetHealthCheck creates a health check over a breaker state source.
func NewAssetHealthCheck(state func() gobreaker.State) *AssetHealthCheck {
	return &AssetHealthCheck{state: state}
}

// Name returns the name of this health check.
func (a *AssetHealthCheck) Name() string {
	return "assets"
}

// Check fails while the breaker is open.
func (a *AssetHealthCheck) Check(ctx context.Context) error {
	if s := a.state(); s == gobreaker.StateOpen {
		return fmt.Errorf("texture loader circuit breaker is %s", s)
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}
