package buybox

import (
	"errors"
	"testing"
)

func TestFeaturesVectorRoundTrip(t *testing.T) {
	f := Features{
		IsAmazon:        true,
		AvgPriceRank14d: 1.5,
		AvgPriceRank30d: 1.25,
		AvgPriceRank60d: 1.1,
		AvgSelfPrice14d: 4,
		AvgSelfPrice30d: 4.5,
		AvgSelfPrice60d: 5,
		PriceRank:       2,
		PriceDiff:       0.3,
	}
	v := f.Vector()
	if len(v) != len(FeatureNames) {
		t.Fatalf("expected %d values, got %d", len(FeatureNames), len(v))
	}
	if v[0] != 1 || v[1] != 0 || v[2] != 1.1 || v[7] != 2 || v[9] != 0.3 {
		t.Errorf("unexpected column order: %v", v)
	}
	back, err := FeaturesFromVector(v)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if back != f {
		t.Errorf("expected %+v, got %+v", f, back)
	}
}

func TestFeaturesFromVectorRejectsBadInput(t *testing.T) {
	if _, err := FeaturesFromVector([]float64{1, 2}); !errors.Is(err, ErrInvalidFeatures) {
		t.Errorf("expected ErrInvalidFeatures for short vector, got %v", err)
	}
	v := make([]float64, len(FeatureNames))
	v[1] = 0.5
	if _, err := FeaturesFromVector(v); !errors.Is(err, ErrInvalidFeatures) {
		t.Errorf("expected ErrInvalidFeatures for non binary flag, got %v", err)
	}
}

func TestFeaturesKey(t *testing.T) {
	a := Features{PriceRank: 1, PriceDiff: 0}
	b := Features{PriceRank: 1, PriceDiff: 0}
	c := Features{PriceRank: 2, PriceDiff: 0.5}
	if a.Key() != b.Key() {
		t.Errorf("equal features should share a key")
	}
	if a.Key() == c.Key() {
		t.Errorf("different features should not share a key")
	}
	if len(a.Key()) != 64 {
		t.Errorf("expected hex sha256 key, got %q", a.Key())
	}
}

func TestPredictionValidate(t *testing.T) {
	cases := []struct {
		p     Prediction
		valid bool
	}{
		{Prediction{Label: 1, Probability: 0.7}, true},
		{Prediction{Label: 0, Probability: 0}, true},
		{Prediction{Label: 2, Probability: 0.5}, false},
		{Prediction{Label: 1, Probability: 1.5}, false},
		{Prediction{Label: 0, Probability: -0.1}, false},
	}
	for _, c := range cases {
		err := c.p.Validate()
		if c.valid && err != nil {
			t.Errorf("%+v: unexpected error %s", c.p, err)
		}
		if !c.valid && !errors.Is(err, ErrInvalidPrediction) {
			t.Errorf("%+v: expected ErrInvalidPrediction, got %v", c.p, err)
		}
	}
}
