package ledger

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	canisterCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traceview_canister_calls_total",
		Help: "Total canister gateway invocations by method and result.",
	}, []string{"method", "result"})

	canisterCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "traceview_canister_call_duration_seconds",
		Help:    "Canister gateway invocation duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

// DfxConfig holds dfx gateway configuration.
type DfxConfig struct {
	Bin         string        // dfx binary; default "dfx"
	Canister    string        // canister name or principal; required
	Network     string        // --network value; empty = local replica
	CallTimeout time.Duration // per-call ceiling; 0 = caller's ctx only
	RateLimit   float64       // steady-state calls per second; 0 = unlimited
	RateBurst   int           // burst size; defaults to max(1, RateLimit)
}

// DfxGateway executes canister methods by shelling out to the dfx CLI.
// Stdout carries the Candid textual reply; a non-zero exit or exec failure
// becomes a GatewayError with the captured stderr.
type DfxGateway struct {
	cfg     DfxConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewDfxGateway creates a gateway for one canister.
func NewDfxGateway(cfg DfxConfig, logger *zap.Logger) *DfxGateway {
	if cfg.Bin == "" {
		cfg.Bin = "dfx"
	}
	g := &DfxGateway{cfg: cfg, logger: logger}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = int(cfg.RateLimit)
			if burst < 1 {
				burst = 1
			}
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return g
}

// Call implements Gateway. It issues a single request with no retries; the
// rate limiter caps sustained call pressure on the local replica.
func (g *DfxGateway) Call(ctx context.Context, method, args string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", &GatewayError{Method: method, Err: err}
		}
	}
	if g.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
	}

	argv := []string{"canister", "call"}
	if g.cfg.Network != "" {
		argv = append(argv, "--network", g.cfg.Network)
	}
	argv = append(argv, g.cfg.Canister, method)
	if args != "" {
		argv = append(argv, args)
	}

	cmd := exec.CommandContext(ctx, g.cfg.Bin, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	canisterCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		canisterCallsTotal.WithLabelValues(method, "error").Inc()
		g.logger.Error("canister call failed",
			zap.String("method", method),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
		return "", &GatewayError{
			Method: method,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	canisterCallsTotal.WithLabelValues(method, "ok").Inc()
	g.logger.Debug("canister call",
		zap.String("method", method),
		zap.Int("reply_bytes", stdout.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return stdout.String(), nil
}
