package market

import (
	"fmt"
	"math"
	"time"

	"github.com/zeu5/pricing-rl/metrics"
	"github.com/zeu5/pricing-rl/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// DefaultBuyBoxUtility is the utility bonus of the Buy Box holder. At equal
// prices it gives the holder roughly 80% of the inside-good demand.
const DefaultBuyBoxUtility = 1.5

// LogitConfig holds the construction parameters of a LogitMarket
type LogitConfig struct {
	PriceMin     float64
	PriceMax     float64
	GridSize     int
	MarginalCost float64
	// outside option quality
	A0 float64
	// inside good quality, shared by both firms
	A12 float64
	// horizontal differentiation, must be positive
	Mu            float64
	BuyBoxUtility float64
	// discount factor handed to learning agents, unused by the market itself
	Discount float64
	// seed of the reset distribution, 0 seeds from the clock
	Seed uint64
}

func DefaultLogitConfig() LogitConfig {
	return LogitConfig{
		PriceMin:      0.01,
		PriceMax:      10.0,
		GridSize:      100,
		MarginalCost:  2.0,
		A0:            0,
		A12:           10,
		Mu:            0.25,
		BuyBoxUtility: DefaultBuyBoxUtility,
		Discount:      0.95,
	}
}

// DemandParams are the immutable economic parameters of a LogitMarket
type DemandParams struct {
	A0           float64
	A12          float64
	Mu           float64
	MarginalCost float64
}

// BuyBox holds one 0/1 flag per firm, at most one of them set
type BuyBox [2]int

// BuyBoxFor gives the Buy Box to firm, a negative firm gives it to nobody
func BuyBoxFor(firm int) BuyBox {
	bb := BuyBox{}
	if firm >= 0 && firm < len(bb) {
		bb[firm] = 1
	}
	return bb
}

func (b BuyBox) Validate() error {
	set := 0
	for i, f := range b {
		if f != 0 && f != 1 {
			return fmt.Errorf("%w: buy box flag %d is %d", ErrInvalidParameter, i, f)
		}
		set += f
	}
	if set > 1 {
		return fmt.Errorf("%w: buy box assigned to both firms", ErrInvalidParameter)
	}
	return nil
}

// Winner returns the firm holding the Buy Box
func (b BuyBox) Winner() (int, bool) {
	for i, f := range b {
		if f == 1 {
			return i, true
		}
	}
	return -1, false
}

// LogitMarket is the two-firm repeated pricing game with Logit demand and an
// outside option. The observation is the pair of price indices played in the
// previous period. There is no terminal state.
type LogitMarket struct {
	grid          *PriceGrid
	params        DemandParams
	buyBoxUtility float64
	discount      float64
	rand          *rand.Rand
	state         types.Observation
}

var _ types.Environment = &LogitMarket{}
var _ types.ProfitModel = &LogitMarket{}

// NewLogitMarket validates the configuration and builds the price grid
func NewLogitMarket(cfg LogitConfig) (*LogitMarket, error) {
	for name, v := range map[string]float64{
		"price_min":       cfg.PriceMin,
		"price_max":       cfg.PriceMax,
		"marginal_cost":   cfg.MarginalCost,
		"a_0":             cfg.A0,
		"a_12":            cfg.A12,
		"mu":              cfg.Mu,
		"buy_box_utility": cfg.BuyBoxUtility,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s must be finite", ErrInvalidParameter, name)
		}
	}
	if cfg.PriceMin >= cfg.PriceMax {
		return nil, fmt.Errorf("%w: price_min %v >= price_max %v", ErrInvalidParameter, cfg.PriceMin, cfg.PriceMax)
	}
	if cfg.GridSize < 2 {
		return nil, fmt.Errorf("%w: grid_size %d < 2", ErrInvalidParameter, cfg.GridSize)
	}
	if cfg.Mu <= 0 {
		return nil, fmt.Errorf("%w: mu %v <= 0", ErrInvalidParameter, cfg.Mu)
	}
	grid, err := NewPriceGrid(cfg.PriceMin, cfg.PriceMax, cfg.GridSize)
	if err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &LogitMarket{
		grid: grid,
		params: DemandParams{
			A0:           cfg.A0,
			A12:          cfg.A12,
			Mu:           cfg.Mu,
			MarginalCost: cfg.MarginalCost,
		},
		buyBoxUtility: cfg.BuyBoxUtility,
		discount:      cfg.Discount,
		rand:          rand.New(rand.NewSource(seed)),
		state:         types.Observation{0, 0},
	}, nil
}

func (m *LogitMarket) Grid() *PriceGrid {
	return m.grid
}

func (m *LogitMarket) Params() DemandParams {
	return m.params
}

func (m *LogitMarket) BuyBoxUtility() float64 {
	return m.buyBoxUtility
}

func (m *LogitMarket) Discount() float64 {
	return m.discount
}

func (m *LogitMarket) NumFirms() int {
	return 2
}

func (m *LogitMarket) NumActions() int {
	return m.grid.Len()
}

// State returns a copy of the last joint action
func (m *LogitMarket) State() types.Observation {
	return m.state.Copy()
}

// Reset draws both previous-period indices uniformly from the grid
func (m *LogitMarket) Reset() (types.Observation, types.Info, error) {
	n := m.grid.Len()
	m.state = types.Observation{m.rand.Intn(n), m.rand.Intn(n)}
	return m.state.Copy(), types.Info{}, nil
}

// ResetTo starts the episode from a given pair of indices
func (m *LogitMarket) ResetTo(obs types.Observation) (types.Observation, types.Info, error) {
	if len(obs) != 2 {
		return nil, nil, fmt.Errorf("%w: observation has %d entries, expected 2", ErrInvalidParameter, len(obs))
	}
	if err := m.grid.Validate(obs...); err != nil {
		return nil, nil, err
	}
	m.state = obs.Copy()
	return m.state.Copy(), types.Info{}, nil
}

// Demand returns the Logit choice probability of each firm at the given
// prices. The outside option takes the remaining mass.
func (m *LogitMarket) Demand(prices []float64, bb BuyBox) ([]float64, error) {
	if len(prices) != 2 {
		return nil, fmt.Errorf("%w: %d prices, expected 2", ErrInvalidParameter, len(prices))
	}
	if err := bb.Validate(); err != nil {
		return nil, err
	}
	p := m.params
	utilities := []float64{
		(p.A12-prices[0])/p.Mu + m.buyBoxUtility*float64(bb[0]),
		(p.A12-prices[1])/p.Mu + m.buyBoxUtility*float64(bb[1]),
		p.A0 / p.Mu,
	}
	top := floats.Max(utilities)
	e0 := math.Exp(utilities[0] - top)
	e1 := math.Exp(utilities[1] - top)
	s := (e0 + e1) + math.Exp(utilities[2]-top)
	d0, d1 := e0/s, e1/s
	// rounding can push the inside mass past one when the outside option vanishes
	for d0+d1 > 1 {
		d0, d1 = math.Nextafter(d0, 0), math.Nextafter(d1, 0)
	}
	return []float64{d0, d1}, nil
}

func (m *LogitMarket) profits(action types.JointAction, bb BuyBox) ([]float64, error) {
	if len(action) != 2 {
		return nil, fmt.Errorf("%w: action has %d entries, expected 2", ErrInvalidParameter, len(action))
	}
	prices, err := m.grid.Lookup(action)
	if err != nil {
		return nil, err
	}
	demand, err := m.Demand(prices, bb)
	if err != nil {
		return nil, err
	}
	return []float64{
		(prices[0] - m.params.MarginalCost) * demand[0],
		(prices[1] - m.params.MarginalCost) * demand[1],
	}, nil
}

// Profits evaluates a joint action without a Buy Box and without changing the state
func (m *LogitMarket) Profits(action types.JointAction) ([]float64, error) {
	return m.profits(action, BuyBox{})
}

// Step plays the joint action with nobody holding the Buy Box
func (m *LogitMarket) Step(action types.JointAction) (*types.StepResult, error) {
	return m.StepWithBuyBox(action, BuyBox{})
}

// StepWithBuyBox plays the joint action, the holder of the Buy Box gets the
// utility bonus. The state is only updated when the step succeeds.
func (m *LogitMarket) StepWithBuyBox(action types.JointAction, bb BuyBox) (*types.StepResult, error) {
	return m.step(action, bb, "logit")
}

func (m *LogitMarket) step(action types.JointAction, bb BuyBox, label string) (*types.StepResult, error) {
	rewards, err := m.profits(action, bb)
	if err != nil {
		return nil, err
	}
	m.state = types.Observation(action.Copy())
	metrics.MarketSteps.WithLabelValues(label).Inc()

	return &types.StepResult{
		Observation: m.state.Copy(),
		Rewards:     rewards,
		Terminated:  false,
		Truncated:   false,
		Info:        types.Info{},
	}, nil
}
