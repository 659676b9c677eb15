package buybox

import (
	"context"
	"errors"
	"testing"
)

// tableClassifier returns a fixed prediction per price rank
type tableClassifier map[float64]Prediction

func (c tableClassifier) Predict(_ context.Context, f Features) (Prediction, error) {
	p, ok := c[f.PriceRank]
	if !ok {
		return Prediction{}, errors.New("no prediction")
	}
	return p, nil
}

func TestAssigner(t *testing.T) {
	cases := []struct {
		name   string
		preds  tableClassifier
		ranks  []float64
		winner int
	}{
		{
			name:   "single winner",
			preds:  tableClassifier{1: {1, 0.8}, 2: {0, 0.3}},
			ranks:  []float64{2, 1},
			winner: 1,
		},
		{
			name:   "nobody wins",
			preds:  tableClassifier{1: {0, 0.4}, 2: {0, 0.3}},
			ranks:  []float64{1, 2},
			winner: -1,
		},
		{
			name:   "highest probability among winners",
			preds:  tableClassifier{1: {1, 0.6}, 2: {1, 0.9}},
			ranks:  []float64{1, 2},
			winner: 1,
		},
		{
			name:   "ties go to the lower index",
			preds:  tableClassifier{1: {1, 0.7}},
			ranks:  []float64{1, 1},
			winner: 0,
		},
		{
			name:   "losers with high probability are ignored",
			preds:  tableClassifier{1: {0, 0.95}, 2: {1, 0.55}},
			ranks:  []float64{1, 2},
			winner: 1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sellers := make([]Features, len(c.ranks))
			for i, r := range c.ranks {
				sellers[i] = Features{PriceRank: r}
			}
			a, err := NewAssigner(c.preds).Assign(context.Background(), sellers)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if a.Winner != c.winner {
				t.Errorf("expected winner %d, got %d", c.winner, a.Winner)
			}
			if len(a.Probabilities()) != len(sellers) {
				t.Errorf("expected %d probabilities", len(sellers))
			}
		})
	}
}

func TestAssignerPropagatesErrors(t *testing.T) {
	a := NewAssigner(tableClassifier{1: {1, 0.5}})
	res, err := a.Assign(context.Background(), []Features{{PriceRank: 1}, {PriceRank: 3}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if res.Winner != -1 {
		t.Errorf("failed assignment should have no winner")
	}

	a = NewAssigner(tableClassifier{1: {5, 0.5}})
	if _, err := a.Assign(context.Background(), []Features{{PriceRank: 1}}); !errors.Is(err, ErrInvalidPrediction) {
		t.Errorf("expected ErrInvalidPrediction, got %v", err)
	}
}
