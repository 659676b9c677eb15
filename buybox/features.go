// Package buybox is the featured-offer oracle consulted by the Buy Box
// market. It wraps an opaque classifier that, given the attributes of a
// seller's offer, predicts whether the seller wins the Buy Box.
package buybox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidFeatures   = errors.New("invalid buy box features")
	ErrInvalidPrediction = errors.New("invalid buy box prediction")
)

// FeatureNames is the column order expected by the serialized classifier
var FeatureNames = []string{
	"isAmazon",
	"isFBA",
	"avg_price_rank_60d",
	"avg_price_rank_14d",
	"avg_price_rank_30d",
	"avg_self_price_30d",
	"avg_self_price_14d",
	"price_rank",
	"avg_self_price_60d",
	"price_diff",
}

// Features describes one seller's offer in one period
type Features struct {
	IsAmazon        bool    `json:"is_amazon" yaml:"is_amazon"`
	IsFBA           bool    `json:"is_fba" yaml:"is_fba"`
	AvgPriceRank14d float64 `json:"avg_price_rank_14d" yaml:"avg_price_rank_14d"`
	AvgPriceRank30d float64 `json:"avg_price_rank_30d" yaml:"avg_price_rank_30d"`
	AvgPriceRank60d float64 `json:"avg_price_rank_60d" yaml:"avg_price_rank_60d"`
	AvgSelfPrice14d float64 `json:"avg_self_price_14d" yaml:"avg_self_price_14d"`
	AvgSelfPrice30d float64 `json:"avg_self_price_30d" yaml:"avg_self_price_30d"`
	AvgSelfPrice60d float64 `json:"avg_self_price_60d" yaml:"avg_self_price_60d"`
	// 1 is the cheapest offer
	PriceRank float64 `json:"price_rank" yaml:"price_rank"`
	// own price minus the lowest price in the market
	PriceDiff float64 `json:"price_diff" yaml:"price_diff"`
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Vector returns the features in FeatureNames order
func (f Features) Vector() []float64 {
	return []float64{
		boolToFloat(f.IsAmazon),
		boolToFloat(f.IsFBA),
		f.AvgPriceRank60d,
		f.AvgPriceRank14d,
		f.AvgPriceRank30d,
		f.AvgSelfPrice30d,
		f.AvgSelfPrice14d,
		f.PriceRank,
		f.AvgSelfPrice60d,
		f.PriceDiff,
	}
}

// FeaturesFromVector is the inverse of Vector
func FeaturesFromVector(v []float64) (Features, error) {
	if len(v) != len(FeatureNames) {
		return Features{}, fmt.Errorf("%w: %d values, expected %d", ErrInvalidFeatures, len(v), len(FeatureNames))
	}
	for i, flag := range v[:2] {
		if flag != 0 && flag != 1 {
			return Features{}, fmt.Errorf("%w: %s must be 0 or 1", ErrInvalidFeatures, FeatureNames[i])
		}
	}
	return Features{
		IsAmazon:        v[0] == 1,
		IsFBA:           v[1] == 1,
		AvgPriceRank60d: v[2],
		AvgPriceRank14d: v[3],
		AvgPriceRank30d: v[4],
		AvgSelfPrice30d: v[5],
		AvgSelfPrice14d: v[6],
		PriceRank:       v[7],
		AvgSelfPrice60d: v[8],
		PriceDiff:       v[9],
	}, nil
}

// Key identifies the feature vector in a prediction cache
func (f Features) Key() string {
	vec := f.Vector()
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(hash[:])
}

// Prediction of the classifier for one seller
type Prediction struct {
	Label       int     `json:"label" yaml:"label"`
	Probability float64 `json:"probability" yaml:"probability"`
}

func (p Prediction) Validate() error {
	if p.Label != 0 && p.Label != 1 {
		return fmt.Errorf("%w: label %d", ErrInvalidPrediction, p.Label)
	}
	if p.Probability < 0 || p.Probability > 1 {
		return fmt.Errorf("%w: probability %v", ErrInvalidPrediction, p.Probability)
	}
	return nil
}

// Wins reports whether the seller is predicted to hold the Buy Box
func (p Prediction) Wins() bool {
	return p.Label == 1
}
