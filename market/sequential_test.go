package market

import (
	"errors"
	"math"
	"testing"

	"github.com/zeu5/pricing-rl/types"
)

func TestSequentialDemand(t *testing.T) {
	m, err := NewSequentialMarket(DefaultSequentialConfig())
	if err != nil {
		t.Fatal(err)
	}
	if m.NumActions() != 6 || m.NumFirms() != 2 || m.DiscountFactor() != 0.95 {
		t.Fatalf("unexpected defaults")
	}
	cases := []struct {
		action  types.JointAction
		profits []float64
	}{
		// p = 0.2 undercuts 0.6 and serves 0.8
		{types.JointAction{1, 3}, []float64{0.16, 0}},
		{types.JointAction{4, 2}, []float64{0, 0.24}},
		// tie at 0.4 splits 0.6
		{types.JointAction{2, 2}, []float64{0.12, 0.12}},
		{types.JointAction{0, 0}, []float64{0, 0}},
		{types.JointAction{5, 5}, []float64{0, 0}},
	}
	for _, c := range cases {
		res, err := m.Step(c.action)
		if err != nil {
			t.Fatalf("%v: unexpected error: %s", c.action, err)
		}
		for k := range c.profits {
			if math.Abs(res.Rewards[k]-c.profits[k]) > 1e-12 {
				t.Errorf("%v firm %d: expected %v, got %v", c.action, k, c.profits[k], res.Rewards[k])
			}
		}
		if res.Observation.Hash() != types.Observation(c.action).Hash() {
			t.Errorf("observation should be the action, got %v", res.Observation)
		}
		if _, ok := res.Info[InfoProfit]; !ok {
			t.Errorf("missing profit info")
		}
		prices, ok := res.Info[InfoPrice].([]float64)
		if !ok || len(prices) != 2 {
			t.Errorf("missing price info")
		}
	}
}

func TestSequentialThreeFirmTie(t *testing.T) {
	m, err := NewSequentialMarket(SequentialConfig{NumFirms: 3, NumPrices: 6})
	if err != nil {
		t.Fatal(err)
	}
	d, err := m.Demand(types.JointAction{1, 1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d[0]-0.4) > 1e-12 || math.Abs(d[1]-0.4) > 1e-12 || d[2] != 0 {
		t.Errorf("unexpected demand %v", d)
	}
}

func TestSequentialReset(t *testing.T) {
	m, _ := NewSequentialMarket(DefaultSequentialConfig())
	m.Step(types.JointAction{3, 4})
	obs, _, err := m.Reset()
	if err != nil || obs.Hash() != "(0, 0)" || m.State().Hash() != "(0, 0)" {
		t.Errorf("unexpected reset %v, %v", obs, err)
	}
	if m.NashIndex() != 0 || m.MonopolyIndex() != 5 {
		t.Errorf("unexpected reference indices")
	}
}

func TestSequentialErrors(t *testing.T) {
	if _, err := NewSequentialMarket(SequentialConfig{NumFirms: 1, NumPrices: 6}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
	if _, err := NewSequentialMarket(SequentialConfig{NumFirms: 2, NumPrices: 1}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
	m, _ := NewSequentialMarket(DefaultSequentialConfig())
	if _, err := m.Step(types.JointAction{0, 6}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := m.Step(types.JointAction{0}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}
