package market

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// PriceGrid is the strictly increasing set of prices a firm can choose from
type PriceGrid struct {
	prices []float64
}

// NewPriceGrid spaces size prices equally on [min, max], both ends included
func NewPriceGrid(min, max float64, size int) (*PriceGrid, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: grid size %d < 1", ErrInvalidParameter, size)
	}
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil, fmt.Errorf("%w: grid bounds must be finite", ErrInvalidParameter)
	}
	if size == 1 {
		return &PriceGrid{prices: []float64{min}}, nil
	}
	if min >= max {
		return nil, fmt.Errorf("%w: price_min %v >= price_max %v", ErrInvalidParameter, min, max)
	}
	prices := floats.Span(make([]float64, size), min, max)
	// pin the upper end against rounding in the span
	prices[size-1] = max
	return &PriceGrid{prices: prices}, nil
}

func (g *PriceGrid) Len() int {
	return len(g.prices)
}

func (g *PriceGrid) Min() float64 {
	return g.prices[0]
}

func (g *PriceGrid) Max() float64 {
	return g.prices[len(g.prices)-1]
}

// Price returns the price at index i
func (g *PriceGrid) Price(i int) (float64, error) {
	if i < 0 || i >= len(g.prices) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(g.prices))
	}
	return g.prices[i], nil
}

// Prices returns a copy of the grid
func (g *PriceGrid) Prices() []float64 {
	out := make([]float64, len(g.prices))
	copy(out, g.prices)
	return out
}

// Validate checks that every index is a legal grid index
func (g *PriceGrid) Validate(indices ...int) error {
	for _, i := range indices {
		if i < 0 || i >= len(g.prices) {
			return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(g.prices))
		}
	}
	return nil
}

// Lookup maps indices to prices
func (g *PriceGrid) Lookup(indices []int) ([]float64, error) {
	if err := g.Validate(indices...); err != nil {
		return nil, err
	}
	out := make([]float64, len(indices))
	for k, i := range indices {
		out[k] = g.prices[i]
	}
	return out, nil
}

// Nearest returns the index of the grid price closest to p
func (g *PriceGrid) Nearest(p float64) int {
	i := sort.SearchFloat64s(g.prices, p)
	if i == 0 {
		return 0
	}
	if i == len(g.prices) {
		return len(g.prices) - 1
	}
	if p-g.prices[i-1] <= g.prices[i]-p {
		return i - 1
	}
	return i
}
