package types

import (
	"math"
	"testing"
)

func TestRandomPolicyStaysInRange(t *testing.T) {
	p := NewRandomPolicy(4, 1)
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		a := p.NextAction(i, 0, Observation{0, 0})
		if a < 0 || a >= 4 {
			t.Fatalf("action %d out of range", a)
		}
		seen[a] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected all actions, saw %v", seen)
	}
}

func TestSoftmaxResponseWeights(t *testing.T) {
	env := newCountingEnv(2, 4)
	p := NewSoftmaxResponsePolicy(env, 4, 0.5, 1)
	w := p.Weights(1, Observation{2, 0})
	sum := 0.0
	for i := range w {
		sum += w[i]
		if i > 0 && w[i] <= w[i-1] {
			t.Errorf("weights should increase with profit, got %v", w)
		}
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("weights should sum to 1, got %v", sum)
	}
	// exp(2*3) / exp(2*2)
	if math.Abs(w[3]/w[2]-math.Exp(2)) > 1e-9 {
		t.Errorf("unexpected weight ratio %v", w[3]/w[2])
	}
}

func TestSoftmaxResponseUniformFallback(t *testing.T) {
	env := newCountingEnv(2, 4)
	p := NewSoftmaxResponsePolicy(env, 4, 1, 1)
	// a singleton observation carries no rival price
	for _, w := range p.Weights(1, Observation{0}) {
		if w != 0.25 {
			t.Errorf("expected uniform weights, got %v", w)
		}
	}
	// every profit fails, e.g. the rival index is out of range
	for _, w := range p.Weights(0, Observation{0, 9}) {
		if w != 0.25 {
			t.Errorf("expected uniform weights, got %v", w)
		}
	}
}

func TestSoftmaxResponseSamplesGreedilyAtLowTemperature(t *testing.T) {
	env := newCountingEnv(2, 4)
	p := NewSoftmaxResponsePolicy(env, 4, 1e-3, 5)
	for i := 0; i < 50; i++ {
		if a := p.NextAction(i, 0, Observation{1, 1}); a != 3 {
			t.Fatalf("expected the most profitable action 3, got %d", a)
		}
	}
}
