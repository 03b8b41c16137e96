// Package resource tracks the background work the orrery starts, mostly texture
// decoding, so it can be bounded and drained on exit.
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/logging"
)

// ErrShuttingDown is returned by StartGoroutine once Shutdown has begun.
var ErrShuttingDown = errors.New("resource manager is shutting down")

// ResourceManager manages system resources like memory and goroutines
// to prevent resource exhaustion and enable graceful shutdown.
type ResourceManager struct {
	maxMemoryMB     int64
	maxGoroutines   int64
	shutdownTimeout time.Duration
	checkInterval   time.Duration

	// Atomic counters for thread-safe access
	goroutineCount int64
	memoryUsageMB  int64
	started        int64
	panics         int64

	// Control channels and state
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.RWMutex
	running  bool
	stopping bool
	logger   *logging.Logger

	// Metrics for monitoring
	lastMemoryCheck    time.Time
	lastGoroutineCheck time.Time
}

// NewResourceManager creates a new resource manager with the given configuration.
// A nil logger logs to stdout.
func NewResourceManager(cfg *config.EnvironmentConfig, logger *logging.Logger) *ResourceManager {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = logging.NewLogger()
	}

	return &ResourceManager{
		maxMemoryMB:        cfg.MaxMemoryMB,
		maxGoroutines:      int64(cfg.MaxLoaderGoroutines),
		shutdownTimeout:    cfg.ShutdownTimeout,
		checkInterval:      cfg.ResourceCheckInterval,
		ctx:                ctx,
		cancel:             cancel,
		done:               make(chan struct{}),
		logger:             logger,
		lastMemoryCheck:    time.Now(),
		lastGoroutineCheck: time.Now(),
	}
}

// Start begins the resource monitoring loop.
func (rm *ResourceManager) Start() error {
	rm.mu.Lock()
	if rm.running {
		rm.mu.Unlock()
		return fmt.Errorf("resource manager already running")
	}
	if rm.stopping {
		rm.mu.Unlock()
		return ErrShuttingDown
	}
	rm.running = true
	rm.mu.Unlock()

	go rm.monitoringLoop()

	rm.logger.Info(rm.ctx, "Resource manager started",
		"max_memory_mb", rm.maxMemoryMB,
		"max_goroutines", rm.maxGoroutines,
		"check_interval", rm.checkInterval,
	)

	return nil
}

// StartGoroutine starts fn on a tracked goroutine. The context passed to fn is
// cancelled when ctx is, or when the manager shuts down. It returns an error if
// the goroutine limit would be exceeded.
func (rm *ResourceManager) StartGoroutine(ctx context.Context, name string, fn func(context.Context)) error {
	rm.mu.RLock()
	stopping := rm.stopping
	rm.mu.RUnlock()
	if stopping {
		return ErrShuttingDown
	}

	// Reserve a slot; back out if that overshoots the limit.
	if current := atomic.AddInt64(&rm.goroutineCount, 1); current > rm.maxGoroutines {
		atomic.AddInt64(&rm.goroutineCount, -1)
		rm.logger.Warn(ctx, "Goroutine limit exceeded",
			"current", current-1,
			"limit", rm.maxGoroutines,
			"name", name,
		)
		return fmt.Errorf("goroutine limit exceeded: %d/%d", current-1, rm.maxGoroutines)
	}
	atomic.AddInt64(&rm.started, 1)

	workCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(rm.ctx, cancel)

	go func() {
		defer atomic.AddInt64(&rm.goroutineCount, -1)
		defer stop()
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				atomic.AddInt64(&rm.panics, 1)
				rm.logger.Error(ctx, "Goroutine panic",
					fmt.Errorf("panic: %v", r),
					"name", name,
				)
			}
		}()

		fn(workCtx)
	}()

	return nil
}

// CheckMemoryUsage checks current memory usage against limits.
func (rm *ResourceManager) CheckMemoryUsage() error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	currentMB := int64(m.Alloc / 1024 / 1024)
	atomic.StoreInt64(&rm.memoryUsageMB, currentMB)
	rm.mu.Lock()
	rm.lastMemoryCheck = time.Now()
	rm.mu.Unlock()

	if currentMB > rm.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, rm.maxMemoryMB)
	}

	return nil
}

// GetGoroutineCount returns the current number of tracked goroutines.
func (rm *ResourceManager) GetGoroutineCount() int64 {
	return atomic.LoadInt64(&rm.goroutineCount)
}

// GetMemoryUsage returns the current memory usage in MB.
func (rm *ResourceManager) GetMemoryUsage() int64 {
	return atomic.LoadInt64(&rm.memoryUsageMB)
}

// GetResourceStats returns current resource usage statistics.
func (rm *ResourceManager) GetResourceStats() ResourceStats {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return ResourceStats{
		GoroutineCount:     rm.GetGoroutineCount(),
		MaxGoroutines:      rm.maxGoroutines,
		GoroutinesStarted:  atomic.LoadInt64(&rm.started),
		GoroutinePanics:    atomic.LoadInt64(&rm.panics),
		MemoryUsageMB:      rm.GetMemoryUsage(),
		MaxMemoryMB:        rm.maxMemoryMB,
		LastMemoryCheck:    rm.lastMemoryCheck,
		LastGoroutineCheck: rm.lastGoroutineCheck,
	}
}

// ResourceStats contains resource usage statistics.
type ResourceStats struct {
	GoroutineCount     int64     `json:"goroutine_count"`
	MaxGoroutines      int64     `json:"max_goroutines"`
	GoroutinesStarted  int64     `json:"goroutines_started"`
	GoroutinePanics    int64     `json:"goroutine_panics"`
	MemoryUsageMB      int64     `json:"memory_usage_mb"`
	MaxMemoryMB        int64     `json:"max_memory_mb"`
	LastMemoryCheck    time.Time `json:"last_memory_check"`
	LastGoroutineCheck time.Time `json:"last_goroutine_check"`
}

// Wait blocks until no tracked goroutine is running or ctx is done.
func (rm *ResourceManager) Wait(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if rm.GetGoroutineCount() == 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Shutdown cancels tracked goroutines, stops monitoring and waits for both,
// bounded by the configured shutdown timeout. Calling it again is a no-op.
func (rm *ResourceManager) Shutdown(ctx context.Context) error {
	rm.mu.Lock()
	if rm.stopping {
		rm.mu.Unlock()
		return nil
	}
	rm.stopping = true
	wasRunning := rm.running
	rm.running = false
	rm.mu.Unlock()

	rm.logger.Info(ctx, "Shutting down resource manager")

	rm.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, rm.shutdownTimeout)
	defer cancel()

	if wasRunning {
		select {
		case <-rm.done:
		case <-shutdownCtx.Done():
			rm.logger.Warn(ctx, "Resource manager monitoring loop did not stop gracefully")
		}
	}

	return rm.waitForGoroutines(shutdownCtx)
}

// waitForGoroutines waits for all tracked goroutines to finish or timeout.
func (rm *ResourceManager) waitForGoroutines(ctx context.Context) error {
	if err := rm.Wait(ctx); err != nil {
		remaining := rm.GetGoroutineCount()
		rm.logger.Warn(ctx, "Shutdown timeout exceeded with goroutines still running",
			"remaining", remaining,
		)
		return fmt.Errorf("shutdown timeout: %d goroutines still running", remaining)
	}
	rm.logger.Debug(ctx, "All tracked goroutines finished")
	return nil
}

// monitoringLoop runs periodic resource checks.
func (rm *ResourceManager) monitoringLoop() {
	defer close(rm.done)

	ticker := time.NewTicker(rm.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.performResourceChecks()
		case <-rm.ctx.Done():
			rm.logger.Debug(rm.ctx, "Resource monitoring loop stopping")
			return
		}
	}
}

// performResourceChecks executes periodic resource usage checks.
func (rm *ResourceManager) performResourceChecks() {
	if err := rm.CheckMemoryUsage(); err != nil {
		rm.logger.Error(rm.ctx, "Memory limit exceeded", err,
			"current_mb", rm.GetMemoryUsage(),
			"limit_mb", rm.maxMemoryMB,
		)
	}

	rm.mu.Lock()
	rm.lastGoroutineCheck = time.Now()
	rm.mu.Unlock()

	rm.logger.Debug(rm.ctx, "Resource usage check",
		"goroutines", rm.GetGoroutineCount(),
		"max_goroutines", rm.maxGoroutines,
		"memory_mb", rm.GetMemoryUsage(),
		"max_memory_mb", rm.maxMemoryMB,
	)
}
