package types

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Policy picks the price index of a single firm. Learning agents live outside
// this repository and implement the same interface, Update is their hook.
type Policy interface {
	NextAction(step int, firm int, obs Observation) int
	Update(step int, firm int, obs Observation, action int, reward float64, next Observation)
	Reset()
}

func newSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.NewSource(seed)
}

type RandomPolicy struct {
	numActions int
	rand       *rand.Rand
}

var _ Policy = &RandomPolicy{}

func NewRandomPolicy(numActions int, seed uint64) *RandomPolicy {
	return &RandomPolicy{
		numActions: numActions,
		rand:       rand.New(newSource(seed)),
	}
}

func (r *RandomPolicy) Reset() {}

func (r *RandomPolicy) NextAction(_ int, _ int, _ Observation) int {
	return r.rand.Intn(r.numActions)
}

func (r *RandomPolicy) Update(_ int, _ int, _ Observation, _ int, _ float64, _ Observation) {}

// FixedPolicy always plays the same index
type FixedPolicy struct {
	Action int
}

var _ Policy = &FixedPolicy{}

func NewFixedPolicy(action int) *FixedPolicy {
	return &FixedPolicy{Action: action}
}

func (f *FixedPolicy) Reset() {}

func (f *FixedPolicy) NextAction(_ int, _ int, _ Observation) int {
	return f.Action
}

func (f *FixedPolicy) Update(_ int, _ int, _ Observation, _ int, _ float64, _ Observation) {}

// SoftmaxResponsePolicy samples its own price with probability proportional to
// exp(profit/temperature), where profit is evaluated against the prices the
// rivals played in the previous period. It keeps no state between steps.
type SoftmaxResponsePolicy struct {
	model       ProfitModel
	numActions  int
	temperature float64
	rand        rand.Source
}

var _ Policy = &SoftmaxResponsePolicy{}

func NewSoftmaxResponsePolicy(model ProfitModel, numActions int, temperature float64, seed uint64) *SoftmaxResponsePolicy {
	if temperature <= 0 {
		temperature = 1
	}
	return &SoftmaxResponsePolicy{
		model:       model,
		numActions:  numActions,
		temperature: temperature,
		rand:        newSource(seed),
	}
}

func (s *SoftmaxResponsePolicy) Reset() {}

// Weights returns the normalized sampling weights over the firm's actions.
// Observations that do not carry one index per firm give uniform weights.
func (s *SoftmaxResponsePolicy) Weights(firm int, obs Observation) []float64 {
	if firm < 0 || firm >= len(obs) {
		return uniform(s.numActions)
	}
	vals := make([]float64, s.numActions)
	joint := JointAction(obs.Copy())
	for a := 0; a < s.numActions; a++ {
		joint[firm] = a
		profits, err := s.model.Profits(joint)
		if err != nil {
			vals[a] = math.Inf(-1)
			continue
		}
		vals[a] = profits[firm] / s.temperature
	}
	norm := floats.LogSumExp(vals)
	if math.IsInf(norm, 0) || math.IsNaN(norm) {
		return uniform(s.numActions)
	}
	weights := make([]float64, s.numActions)
	for i, v := range vals {
		weights[i] = math.Exp(v - norm)
	}
	return weights
}

func (s *SoftmaxResponsePolicy) NextAction(_ int, firm int, obs Observation) int {
	weights := s.Weights(firm, obs)
	i, ok := sampleuv.NewWeighted(weights, s.rand).Take()
	if !ok {
		return 0
	}
	return i
}

func (s *SoftmaxResponsePolicy) Update(_ int, _ int, _ Observation, _ int, _ float64, _ Observation) {}

func uniform(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}
	return weights
}
