package health

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/ledger"
)

type flakyGateway struct {
	fail bool
}

func (g *flakyGateway) Call(_ context.Context, method, _ string) (string, error) {
	if g.fail {
		return "", &ledger.GatewayError{Method: method, Err: errors.New("dfx exploded")}
	}
	return "(vec {})", nil
}

func TestChecker_StartsHealthy(t *testing.T) {
	c := New(&flakyGateway{}, Config{}, zap.NewNop())
	if ok, err := c.Healthy(); !ok || err != nil {
		t.Fatalf("Healthy() = %v, %v; want healthy before any probe", ok, err)
	}
}

func TestChecker_DegradesAtThreshold(t *testing.T) {
	gw := &flakyGateway{fail: true}
	c := New(gw, Config{FailThreshold: 3}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c.Check(ctx)
		if ok, _ := c.Healthy(); !ok {
			t.Fatalf("degraded after %d failures, threshold is 3", i+1)
		}
	}

	c.Check(ctx)
	ok, err := c.Healthy()
	if ok {
		t.Fatal("expected degraded after 3 consecutive failures")
	}
	var gwErr *ledger.GatewayError
	if !errors.As(err, &gwErr) {
		t.Errorf("expected the probe's gateway error, got %v", err)
	}
}

func TestChecker_RecoversOnSuccess(t *testing.T) {
	gw := &flakyGateway{fail: true}
	c := New(gw, Config{FailThreshold: 1}, zap.NewNop())
	ctx := context.Background()

	c.Check(ctx)
	if ok, _ := c.Healthy(); ok {
		t.Fatal("expected degraded")
	}

	gw.fail = false
	if !c.Check(ctx) {
		t.Fatal("probe should succeed")
	}
	if ok, err := c.Healthy(); !ok || err != nil {
		t.Fatalf("Healthy() = %v, %v after recovery", ok, err)
	}
}

func TestChecker_SingleFailureDoesNotFlap(t *testing.T) {
	gw := &flakyGateway{fail: true}
	c := New(gw, Config{FailThreshold: 3}, zap.NewNop())
	ctx := context.Background()

	c.Check(ctx)
	gw.fail = false
	c.Check(ctx)
	gw.fail = true
	c.Check(ctx)
	c.Check(ctx)

	// Failure streak was broken, so the count restarts.
	if ok, _ := c.Healthy(); !ok {
		t.Fatal("intermittent failures below the threshold must stay healthy")
	}
}
