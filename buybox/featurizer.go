package buybox

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HistoryLength is the longest window the features look back on
const HistoryLength = 60

// SellerProfile holds the static attributes of a seller
type SellerProfile struct {
	IsAmazon bool `yaml:"is_amazon" json:"is_amazon"`
	IsFBA    bool `yaml:"is_fba" json:"is_fba"`
}

// Featurizer keeps a rolling price history and derives the classifier
// features of every seller from it
type Featurizer struct {
	sellers []SellerProfile
	// one entry per period, oldest first
	prices [][]float64
	ranks  [][]float64
}

func NewFeaturizer(sellers []SellerProfile) *Featurizer {
	s := make([]SellerProfile, len(sellers))
	copy(s, sellers)
	return &Featurizer{
		sellers: s,
	}
}

func (f *Featurizer) NumSellers() int {
	return len(f.sellers)
}

// Periods returns the number of periods currently in the history
func (f *Featurizer) Periods() int {
	return len(f.prices)
}

func (f *Featurizer) Reset() {
	f.prices = nil
	f.ranks = nil
}

// Observe records the prices of one period and returns the features of every
// seller, in seller order
func (f *Featurizer) Observe(prices []float64) ([]Features, error) {
	feats, priceHistory, rankHistory, err := f.compute(prices)
	if err != nil {
		return nil, err
	}
	f.prices, f.ranks = priceHistory, rankHistory
	return feats, nil
}

// Peek returns the features Observe would return without recording the period
func (f *Featurizer) Peek(prices []float64) ([]Features, error) {
	feats, _, _, err := f.compute(prices)
	return feats, err
}

func (f *Featurizer) compute(prices []float64) ([]Features, [][]float64, [][]float64, error) {
	if len(f.sellers) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no sellers", ErrInvalidFeatures)
	}
	if len(prices) != len(f.sellers) {
		return nil, nil, nil, fmt.Errorf("%w: %d prices for %d sellers", ErrInvalidFeatures, len(prices), len(f.sellers))
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, nil, nil, fmt.Errorf("%w: price of seller %d is not finite", ErrInvalidFeatures, i)
		}
	}

	current := make([]float64, len(prices))
	copy(current, prices)
	ranks := priceRanks(current)

	start := len(f.prices) - (HistoryLength - 1)
	if start < 0 {
		start = 0
	}
	priceHistory := make([][]float64, 0, HistoryLength)
	priceHistory = append(append(priceHistory, f.prices[start:]...), current)
	rankHistory := make([][]float64, 0, HistoryLength)
	rankHistory = append(append(rankHistory, f.ranks[start:]...), ranks)

	low := floats.Min(current)
	out := make([]Features, len(f.sellers))
	for i, s := range f.sellers {
		out[i] = Features{
			IsAmazon:        s.IsAmazon,
			IsFBA:           s.IsFBA,
			AvgPriceRank14d: average(rankHistory, i, 14),
			AvgPriceRank30d: average(rankHistory, i, 30),
			AvgPriceRank60d: average(rankHistory, i, 60),
			AvgSelfPrice14d: average(priceHistory, i, 14),
			AvgSelfPrice30d: average(priceHistory, i, 30),
			AvgSelfPrice60d: average(priceHistory, i, 60),
			PriceRank:       ranks[i],
			PriceDiff:       current[i] - low,
		}
	}
	return out, priceHistory, rankHistory, nil
}

// average of column i over the last window periods, or all periods when the
// history is shorter
func average(history [][]float64, i, window int) float64 {
	start := len(history) - window
	if start < 0 {
		start = 0
	}
	column := make([]float64, 0, len(history)-start)
	for _, period := range history[start:] {
		column = append(column, period[i])
	}
	return stat.Mean(column, nil)
}

// priceRanks gives the cheapest seller rank 1, equal prices share a rank
func priceRanks(prices []float64) []float64 {
	ranks := make([]float64, len(prices))
	for i, p := range prices {
		cheaper := 0
		for _, q := range prices {
			if q < p {
				cheaper++
			}
		}
		ranks[i] = float64(1 + cheaper)
	}
	return ranks
}
