package types

import (
	"strconv"
	"strings"
)

// Environment is the step/reset contract consumed by an agent loop.
// Implementations own their state and are not safe for concurrent use,
// run independent instances instead.
type Environment interface {
	// Reset called at the start of each episode
	Reset() (Observation, Info, error)
	// Step applies the joint action of all firms
	Step(JointAction) (*StepResult, error)
	// Number of firms acting in the market
	NumFirms() int
	// Number of discrete actions available to each firm
	NumActions() int
}

// ProfitModel computes the per-firm rewards of a joint action without
// touching the environment state
type ProfitModel interface {
	Profits(JointAction) ([]float64, error)
}

// Observation of the market, the grid indices played in the previous period
type Observation []int

// Hash of the observation, deterministic
func (o Observation) Hash() string {
	parts := make([]string, len(o))
	for i, idx := range o {
		parts[i] = strconv.Itoa(idx)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (o Observation) Copy() Observation {
	c := make(Observation, len(o))
	copy(c, o)
	return c
}

// JointAction contains one grid index per firm
type JointAction []int

func (a JointAction) Copy() JointAction {
	c := make(JointAction, len(a))
	copy(c, a)
	return c
}

// Info is the auxiliary information returned with each step
type Info map[string]interface{}

// StepResult bundles what a step returns to the caller
type StepResult struct {
	Observation Observation `json:"observation"`
	Rewards     []float64   `json:"rewards"`
	Terminated  bool        `json:"terminated"`
	Truncated   bool        `json:"truncated"`
	Info        Info        `json:"info"`
}
