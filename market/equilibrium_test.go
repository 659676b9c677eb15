package market

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestMonopolyPrice(t *testing.T) {
	m := newDefaultMarket(t)
	res, err := m.MonopolyPrice(context.Background(), DefaultSolverConfig())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !res.Converged {
		t.Errorf("expected convergence")
	}
	if res.Price < m.Grid().Min() || res.Price > m.Grid().Max() {
		t.Fatalf("monopoly price %v outside the grid", res.Price)
	}
	if math.Abs(res.Price-9.1698) > 1e-3 {
		t.Errorf("expected monopoly price near 9.1698, got %v", res.Price)
	}
	// first order condition of the single firm problem
	p := m.Params()
	u := (p.A12 - res.Price) / p.Mu
	share := 1 / (1 + math.Exp(p.A0/p.Mu-u))
	foc := 1 - (res.Price-p.MarginalCost)*(1-share)/p.Mu
	if math.Abs(foc) > 1e-3 {
		t.Errorf("first order condition %v not close to 0", foc)
	}
	if res.GridIndex != m.Grid().Nearest(res.Price) {
		t.Errorf("unexpected grid index %d", res.GridIndex)
	}
	if res.Profit <= m.monopolyProfit(res.Price-0.1) || res.Profit <= m.monopolyProfit(res.Price+0.1) {
		t.Errorf("monopoly price is not a local maximum")
	}
}

func TestNashEquilibrium(t *testing.T) {
	m := newDefaultMarket(t)
	res, err := m.NashEquilibrium(context.Background(), DefaultSolverConfig())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !res.Converged || !res.InBounds {
		t.Errorf("expected a converged in-bounds result, got %+v", res)
	}
	for k := 0; k < 2; k++ {
		if math.Abs(res.Prices[k]-2.5) > 1e-2 {
			t.Errorf("firm %d: expected Nash price near 2.5, got %v", k, res.Prices[k])
		}
		if res.Profits[k] <= 0 {
			t.Errorf("firm %d: expected positive profit, got %v", k, res.Profits[k])
		}
	}
	if res.Residual >= 1e-10 {
		t.Errorf("residual %v above tolerance", res.Residual)
	}
	if res.GridIndices[0] != m.Grid().Nearest(res.Prices[0]) {
		t.Errorf("unexpected grid index %d", res.GridIndices[0])
	}
}

func TestNashBelowMonopoly(t *testing.T) {
	m := newDefaultMarket(t)
	eq, err := m.SolveEquilibria(context.Background(), DefaultSolverConfig())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if eq.Nash.Prices[0] >= eq.Monopoly.Price {
		t.Errorf("Nash price %v should be below the monopoly price %v", eq.Nash.Prices[0], eq.Monopoly.Price)
	}
}

func TestSolverBudgetExhausted(t *testing.T) {
	m := newDefaultMarket(t)
	cfg := DefaultSolverConfig()
	cfg.MaxIterations = 1

	nash, err := m.NashEquilibrium(context.Background(), cfg)
	if !errors.Is(err, ErrConvergenceFailure) {
		t.Fatalf("expected ErrConvergenceFailure, got %v", err)
	}
	if nash == nil || nash.Converged || nash.Iterations != 1 {
		t.Errorf("expected a best-effort unconverged result, got %+v", nash)
	}

	monopoly, err := m.MonopolyPrice(context.Background(), cfg)
	if !errors.Is(err, ErrConvergenceFailure) {
		t.Fatalf("expected ErrConvergenceFailure, got %v", err)
	}
	if monopoly == nil || monopoly.Converged {
		t.Errorf("expected a best-effort unconverged result, got %+v", monopoly)
	}

	eq, err := m.SolveEquilibria(context.Background(), cfg)
	if !errors.Is(err, ErrConvergenceFailure) || eq == nil {
		t.Errorf("expected both results with ErrConvergenceFailure, got %v", err)
	}
}

func TestSolverCanceledContext(t *testing.T) {
	m := newDefaultMarket(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.NashEquilibrium(ctx, DefaultSolverConfig()); !errors.Is(err, ErrConvergenceFailure) {
		t.Errorf("expected ErrConvergenceFailure, got %v", err)
	}
	if _, err := m.MonopolyPrice(ctx, DefaultSolverConfig()); !errors.Is(err, ErrConvergenceFailure) {
		t.Errorf("expected ErrConvergenceFailure, got %v", err)
	}
}

func TestNashOutsideGrid(t *testing.T) {
	cfg := DefaultLogitConfig()
	cfg.PriceMax = 2.2
	m, err := NewLogitMarket(cfg)
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.NashEquilibrium(context.Background(), DefaultSolverConfig())
	if !errors.Is(err, ErrConvergenceFailure) {
		t.Fatalf("expected ErrConvergenceFailure, got %v", err)
	}
	if res.InBounds {
		t.Errorf("root %v should be reported out of bounds", res.Prices)
	}
	if !res.Converged {
		t.Errorf("the root itself should have converged")
	}
}
