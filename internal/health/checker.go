// Package health probes the ledger gateway in the background so the HTTP
// health endpoint can report degradation without issuing a canister call per
// probe request.
package health

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/ledger"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Checker runs periodic ledger liveness probes. It starts out healthy and
// only reports degraded after FailThreshold consecutive probe failures, so a
// single slow canister call does not flap the health endpoint.
type Checker struct {
	gw     ledger.Gateway
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	failCount int
	degraded  bool
	lastErr   error
	lastProbe time.Time
}

// New creates a Checker.
func New(gw ledger.Gateway, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{gw: gw, cfg: cfg, logger: logger}
}

// Start runs the probe loop until quit is signalled.
func (c *Checker) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ProbeTimeout)
			c.Check(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// Check issues one probe: the cheapest read the canister offers. It returns
// whether the probe itself succeeded, not the aggregate health state.
func (c *Checker) Check(ctx context.Context) bool {
	_, err := c.gw.Call(ctx, ledger.MethodGetAllProducts, "()")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastProbe = time.Now().UTC()
	c.lastErr = err

	if err == nil {
		if c.degraded {
			c.logger.Info("health: ledger recovered")
		}
		c.failCount = 0
		c.degraded = false
		return true
	}

	c.failCount++
	if c.failCount == c.cfg.FailThreshold {
		c.degraded = true
		c.logger.Warn("health: ledger degraded",
			zap.Int("fail_count", c.failCount),
			zap.Error(err),
		)
	}
	return false
}

// Healthy reports the aggregate state and, when degraded, the last probe
// error. A checker that has never probed reports healthy.
func (c *Checker) Healthy() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.degraded {
		return false, c.lastErr
	}
	return true, nil
}

// LastProbe returns when the most recent probe ran, zero before the first.
func (c *Checker) LastProbe() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastProbe
}
