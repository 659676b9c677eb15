package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/metrics"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SolverConfig bounds the work done by the equilibrium solver
type SolverConfig struct {
	MaxIterations int
	// interval width for the monopoly search, max-norm of the first order
	// conditions for the Nash equilibrium
	Tolerance float64
	// zero means no timeout other than the caller's context
	Timeout time.Duration
	Log     logrus.FieldLogger
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations: 200,
		Tolerance:     1e-10,
	}
}

func (c SolverConfig) withDefaults() SolverConfig {
	d := DefaultSolverConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	return c
}

type MonopolyResult struct {
	Price      float64 `json:"price"`
	Profit     float64 `json:"profit"`
	GridIndex  int     `json:"grid_index"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
}

type NashResult struct {
	Prices      [2]float64 `json:"prices"`
	Profits     [2]float64 `json:"profits"`
	GridIndices [2]int     `json:"grid_indices"`
	Iterations  int        `json:"iterations"`
	Residual    float64    `json:"residual"`
	Converged   bool       `json:"converged"`
	InBounds    bool       `json:"in_bounds"`
}

// Equilibria is advisory, check the Converged and InBounds flags
type Equilibria struct {
	Monopoly MonopolyResult `json:"monopoly"`
	Nash     NashResult     `json:"nash"`
}

// monopolyProfit is the profit of a single firm facing only the outside option
func (m *LogitMarket) monopolyProfit(p float64) float64 {
	u := []float64{(m.params.A12 - p) / m.params.Mu, m.params.A0 / m.params.Mu}
	return (p - m.params.MarginalCost) * math.Exp(u[0]-floats.LogSumExp(u))
}

// MonopolyPrice maximizes the single firm profit on [price_min, price_max]
// with a golden-section search
func (m *LogitMarket) MonopolyPrice(ctx context.Context, cfg SolverConfig) (*MonopolyResult, error) {
	cfg = cfg.withDefaults()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	invPhi := (math.Sqrt(5) - 1) / 2
	a, b := m.grid.Min(), m.grid.Max()
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := m.monopolyProfit(c), m.monopolyProfit(d)

	result := &MonopolyResult{}
	var err error
	for {
		if b-a < cfg.Tolerance {
			result.Converged = true
			break
		}
		if result.Iterations >= cfg.MaxIterations {
			err = fmt.Errorf("%w: monopoly search used %d iterations", ErrConvergenceFailure, result.Iterations)
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ErrConvergenceFailure, ctxErr)
			break
		}
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = m.monopolyProfit(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = m.monopolyProfit(d)
		}
		result.Iterations++
	}

	result.Price = (a + b) / 2
	result.Profit = m.monopolyProfit(result.Price)
	result.GridIndex = m.grid.Nearest(result.Price)
	metrics.RecordSolverRun("monopoly", result.Converged, result.Iterations)
	cfg.Log.WithFields(logrus.Fields{
		"price":      result.Price,
		"iterations": result.Iterations,
		"converged":  result.Converged,
	}).Debug("monopoly price search finished")
	return result, err
}

// firstOrderConditions fills y with the Nash first order conditions at the
// prices x. The derivative of firm k's profit is d_k * y_k, dividing by the
// share keeps high-price regions from becoming spurious roots.
func (m *LogitMarket) firstOrderConditions(y, x []float64) {
	p := m.params
	u := []float64{(p.A12 - x[0]) / p.Mu, (p.A12 - x[1]) / p.Mu, p.A0 / p.Mu}
	norm := floats.LogSumExp(u)
	for k := 0; k < 2; k++ {
		d := math.Exp(u[k] - norm)
		y[k] = 1 - (x[k]-p.MarginalCost)*(1-d)/p.Mu
	}
}

// NashEquilibrium runs Newton's method on the first order conditions of both
// firms, seeded at the lowest grid price. The root is not guaranteed to be
// the equilibrium, a result outside the grid bounds is reported as a failure.
func (m *LogitMarket) NashEquilibrium(ctx context.Context, cfg SolverConfig) (*NashResult, error) {
	cfg = cfg.withDefaults()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	x := []float64{m.grid.Min(), m.grid.Min()}
	prev := make([]float64, 2)
	g := make([]float64, 2)
	jac := mat.NewDense(2, 2, nil)
	settings := &fd.JacobianSettings{Formula: fd.Central}

	result := &NashResult{}
	var err error
	for {
		m.firstOrderConditions(g, x)
		result.Residual = floats.Norm(g, math.Inf(1))
		if math.IsNaN(result.Residual) || math.IsInf(result.Residual, 0) {
			err = fmt.Errorf("%w: non-finite first order conditions at %v", ErrConvergenceFailure, x)
			// report the last finite iterate
			if result.Iterations > 0 {
				copy(x, prev)
				m.firstOrderConditions(g, x)
				result.Residual = floats.Norm(g, math.Inf(1))
			}
			break
		}
		if result.Residual < cfg.Tolerance {
			result.Converged = true
			break
		}
		if result.Iterations >= cfg.MaxIterations {
			err = fmt.Errorf("%w: newton used %d iterations, residual %g", ErrConvergenceFailure, result.Iterations, result.Residual)
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ErrConvergenceFailure, ctxErr)
			break
		}

		fd.Jacobian(jac, m.firstOrderConditions, x, settings)
		var step mat.VecDense
		if solveErr := step.SolveVec(jac, mat.NewVecDense(2, []float64{-g[0], -g[1]})); solveErr != nil {
			var cond mat.Condition
			if !errors.As(solveErr, &cond) {
				err = fmt.Errorf("%w: %v", ErrConvergenceFailure, solveErr)
				break
			}
		}
		copy(prev, x)
		x[0] += step.AtVec(0)
		x[1] += step.AtVec(1)
		result.Iterations++
	}

	lo, hi := m.grid.Min(), m.grid.Max()
	result.InBounds = x[0] >= lo && x[0] <= hi && x[1] >= lo && x[1] <= hi
	if err == nil && !result.InBounds {
		err = fmt.Errorf("%w: root %v outside [%v, %v]", ErrConvergenceFailure, x, lo, hi)
	}
	result.Prices = [2]float64{x[0], x[1]}
	if demand, dErr := m.Demand(x, BuyBox{}); dErr == nil {
		for k := 0; k < 2; k++ {
			result.Profits[k] = (x[k] - m.params.MarginalCost) * demand[k]
		}
	}
	result.GridIndices = [2]int{m.grid.Nearest(x[0]), m.grid.Nearest(x[1])}

	metrics.RecordSolverRun("nash", err == nil, result.Iterations)
	cfg.Log.WithFields(logrus.Fields{
		"prices":     result.Prices,
		"iterations": result.Iterations,
		"residual":   result.Residual,
		"converged":  result.Converged,
		"in_bounds":  result.InBounds,
	}).Debug("nash equilibrium search finished")
	return result, err
}

// SolveEquilibria computes the monopoly price and the symmetric Nash
// equilibrium. Both results are always returned; the error wraps
// ErrConvergenceFailure when either problem failed.
func (m *LogitMarket) SolveEquilibria(ctx context.Context, cfg SolverConfig) (*Equilibria, error) {
	monopoly, mErr := m.MonopolyPrice(ctx, cfg)
	nash, nErr := m.NashEquilibrium(ctx, cfg)
	eq := &Equilibria{
		Monopoly: *monopoly,
		Nash:     *nash,
	}
	return eq, errors.Join(mErr, nErr)
}
