package buybox

import (
	"context"
	"fmt"
)

// Assignment is the outcome of one Buy Box auction
type Assignment struct {
	// index of the winning seller, -1 when nobody wins
	Winner      int          `json:"winner"`
	Predictions []Prediction `json:"predictions"`
}

// Probabilities returns the predicted win probability of every seller
func (a Assignment) Probabilities() []float64 {
	out := make([]float64, len(a.Predictions))
	for i, p := range a.Predictions {
		out[i] = p.Probability
	}
	return out
}

// Assigner turns per-seller predictions into a single Buy Box holder
type Assigner struct {
	classifier Classifier
}

func NewAssigner(classifier Classifier) *Assigner {
	return &Assigner{
		classifier: classifier,
	}
}

// Assign predicts every seller. Among the sellers predicted to win, the one
// with the highest probability gets the Buy Box, ties go to the lower index.
func (a *Assigner) Assign(ctx context.Context, sellers []Features) (Assignment, error) {
	result := Assignment{
		Winner:      -1,
		Predictions: make([]Prediction, len(sellers)),
	}
	best := -1.0
	for i, f := range sellers {
		p, err := a.classifier.Predict(ctx, f)
		if err != nil {
			return Assignment{Winner: -1}, fmt.Errorf("seller %d: %w", i, err)
		}
		if err := p.Validate(); err != nil {
			return Assignment{Winner: -1}, fmt.Errorf("seller %d: %w", i, err)
		}
		result.Predictions[i] = p
		if p.Wins() && p.Probability > best {
			best = p.Probability
			result.Winner = i
		}
	}
	return result, nil
}
