package types

import (
	"errors"
	"fmt"
)

// countingEnv pays each firm its own action index and terminates after
// terminateAfter steps when set
type countingEnv struct {
	firms          int
	actions        int
	steps          int
	terminateAfter int
	failAt         int
}

func newCountingEnv(firms, actions int) *countingEnv {
	return &countingEnv{firms: firms, actions: actions, failAt: -1}
}

func (c *countingEnv) Reset() (Observation, Info, error) {
	c.steps = 0
	return make(Observation, c.firms), Info{}, nil
}

func (c *countingEnv) Step(a JointAction) (*StepResult, error) {
	if c.steps == c.failAt {
		return nil, errors.New("market closed")
	}
	if len(a) != c.firms {
		return nil, fmt.Errorf("expected %d actions", c.firms)
	}
	c.steps++
	rewards := make([]float64, c.firms)
	for i, v := range a {
		if v < 0 || v >= c.actions {
			return nil, fmt.Errorf("action %d out of range", v)
		}
		rewards[i] = float64(v)
	}
	return &StepResult{
		Observation: Observation(a.Copy()),
		Rewards:     rewards,
		Terminated:  c.terminateAfter > 0 && c.steps >= c.terminateAfter,
		Info:        Info{},
	}, nil
}

func (c *countingEnv) Profits(a JointAction) ([]float64, error) {
	rewards := make([]float64, c.firms)
	for i, v := range a {
		if v < 0 || v >= c.actions {
			return nil, fmt.Errorf("action %d out of range", v)
		}
		rewards[i] = float64(v)
	}
	return rewards, nil
}

func (c *countingEnv) NumFirms() int {
	return c.firms
}

func (c *countingEnv) NumActions() int {
	return c.actions
}
