package market

import (
	"fmt"

	"github.com/zeu5/pricing-rl/metrics"
	"github.com/zeu5/pricing-rl/types"
)

// BertrandConfig holds the construction parameters of a BertrandMarket
type BertrandConfig struct {
	PriceMin     float64
	PriceMax     float64
	GridSize     int
	MarginalCost float64
}

func DefaultBertrandConfig() BertrandConfig {
	return BertrandConfig{
		PriceMin:     0.01,
		PriceMax:     10.0,
		GridSize:     100,
		MarginalCost: 2.0,
	}
}

// BertrandMarket is the two-firm game with homogeneous goods: the cheaper firm
// serves the whole unit demand, equal prices split it. The state is a
// singleton, every observation is [0].
type BertrandMarket struct {
	grid *PriceGrid
	cost float64
}

var _ types.Environment = &BertrandMarket{}
var _ types.ProfitModel = &BertrandMarket{}

func NewBertrandMarket(cfg BertrandConfig) (*BertrandMarket, error) {
	if cfg.GridSize < 2 {
		return nil, fmt.Errorf("%w: grid_size %d < 2", ErrInvalidParameter, cfg.GridSize)
	}
	grid, err := NewPriceGrid(cfg.PriceMin, cfg.PriceMax, cfg.GridSize)
	if err != nil {
		return nil, err
	}
	return &BertrandMarket{
		grid: grid,
		cost: cfg.MarginalCost,
	}, nil
}

func (m *BertrandMarket) Grid() *PriceGrid {
	return m.grid
}

func (m *BertrandMarket) NumFirms() int {
	return 2
}

func (m *BertrandMarket) NumActions() int {
	return m.grid.Len()
}

func (m *BertrandMarket) Reset() (types.Observation, types.Info, error) {
	return types.Observation{0}, types.Info{}, nil
}

func (m *BertrandMarket) Profits(action types.JointAction) ([]float64, error) {
	if len(action) != 2 {
		return nil, fmt.Errorf("%w: action has %d entries, expected 2", ErrInvalidParameter, len(action))
	}
	prices, err := m.grid.Lookup(action)
	if err != nil {
		return nil, err
	}
	demand := []float64{0, 0}
	switch {
	case prices[0] < prices[1]:
		demand[0] = 1
	case prices[1] < prices[0]:
		demand[1] = 1
	default:
		demand[0], demand[1] = 0.5, 0.5
	}
	return []float64{
		(prices[0] - m.cost) * demand[0],
		(prices[1] - m.cost) * demand[1],
	}, nil
}

func (m *BertrandMarket) Step(action types.JointAction) (*types.StepResult, error) {
	rewards, err := m.Profits(action)
	if err != nil {
		return nil, err
	}
	metrics.MarketSteps.WithLabelValues("bertrand").Inc()
	return &types.StepResult{
		Observation: types.Observation{0},
		Rewards:     rewards,
		Info:        types.Info{},
	}, nil
}
