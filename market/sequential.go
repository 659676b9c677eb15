package market

import (
	"fmt"

	"github.com/zeu5/pricing-rl/metrics"
	"github.com/zeu5/pricing-rl/types"
	"gonum.org/v1/gonum/floats"
)

const (
	InfoProfit = "profit"
	InfoPrice  = "price"
)

// SequentialConfig holds the construction parameters of a SequentialMarket
type SequentialConfig struct {
	NumFirms       int
	NumPrices      int
	DiscountFactor float64
}

func DefaultSequentialConfig() SequentialConfig {
	return SequentialConfig{
		NumFirms:       2,
		NumPrices:      6,
		DiscountFactor: 0.95,
	}
}

// SequentialMarket is the homogeneous goods oligopoly of Klein (2021) with
// linear demand 1 - p and prices on [0, 1]. Only the cheapest firms sell.
type SequentialMarket struct {
	grid     *PriceGrid
	numFirms int
	discount float64
	state    types.Observation
}

var _ types.Environment = &SequentialMarket{}
var _ types.ProfitModel = &SequentialMarket{}

func NewSequentialMarket(cfg SequentialConfig) (*SequentialMarket, error) {
	if cfg.NumFirms < 2 {
		return nil, fmt.Errorf("%w: n_firms %d < 2", ErrInvalidParameter, cfg.NumFirms)
	}
	if cfg.NumPrices < 2 {
		return nil, fmt.Errorf("%w: n_prices %d < 2", ErrInvalidParameter, cfg.NumPrices)
	}
	grid, err := NewPriceGrid(0, 1, cfg.NumPrices)
	if err != nil {
		return nil, err
	}
	return &SequentialMarket{
		grid:     grid,
		numFirms: cfg.NumFirms,
		discount: cfg.DiscountFactor,
		state:    make(types.Observation, cfg.NumFirms),
	}, nil
}

func (m *SequentialMarket) Grid() *PriceGrid {
	return m.grid
}

func (m *SequentialMarket) NumFirms() int {
	return m.numFirms
}

func (m *SequentialMarket) NumActions() int {
	return m.grid.Len()
}

func (m *SequentialMarket) DiscountFactor() float64 {
	return m.discount
}

// NashIndex is the competitive price index
func (m *SequentialMarket) NashIndex() int {
	return 0
}

// MonopolyIndex is the collusive price index
func (m *SequentialMarket) MonopolyIndex() int {
	return m.grid.Len() - 1
}

func (m *SequentialMarket) State() types.Observation {
	return m.state.Copy()
}

// Reset sets every firm's previous price to index 0
func (m *SequentialMarket) Reset() (types.Observation, types.Info, error) {
	m.state = make(types.Observation, m.numFirms)
	return m.state.Copy(), types.Info{}, nil
}

func (m *SequentialMarket) prices(action types.JointAction) ([]float64, error) {
	if len(action) != m.numFirms {
		return nil, fmt.Errorf("%w: action has %d entries, expected %d", ErrInvalidParameter, len(action), m.numFirms)
	}
	return m.grid.Lookup(action)
}

// Demand splits 1 - p between the firms charging the lowest price
func (m *SequentialMarket) Demand(action types.JointAction) ([]float64, error) {
	prices, err := m.prices(action)
	if err != nil {
		return nil, err
	}
	low := floats.Min(prices)
	winners := 0
	for _, p := range prices {
		if p == low {
			winners++
		}
	}
	demand := make([]float64, len(prices))
	for i, p := range prices {
		if p == low {
			demand[i] = (1 - p) / float64(winners)
		}
	}
	return demand, nil
}

func (m *SequentialMarket) Profits(action types.JointAction) ([]float64, error) {
	demand, err := m.Demand(action)
	if err != nil {
		return nil, err
	}
	prices, _ := m.grid.Lookup(action)
	profits := make([]float64, len(prices))
	floats.MulTo(profits, prices, demand)
	return profits, nil
}

func (m *SequentialMarket) Step(action types.JointAction) (*types.StepResult, error) {
	profits, err := m.Profits(action)
	if err != nil {
		return nil, err
	}
	prices, _ := m.grid.Lookup(action)
	m.state = types.Observation(action.Copy())
	metrics.MarketSteps.WithLabelValues("sequential").Inc()

	rewards := make([]float64, len(profits))
	copy(rewards, profits)
	return &types.StepResult{
		Observation: m.state.Copy(),
		Rewards:     rewards,
		Info: types.Info{
			InfoProfit: profits,
			InfoPrice:  prices,
		},
	}, nil
}
