package types

// TraceStep is one transition of an episode
type TraceStep struct {
	Step        int         `json:"step"`
	Observation Observation `json:"observation"`
	Action      JointAction `json:"action"`
	Rewards     []float64   `json:"rewards"`
	Next        Observation `json:"next"`
}

// Trace of an episode as (observation, action, rewards, next observation) tuples
type Trace struct {
	Steps []TraceStep `json:"steps"`
}

func NewTrace() *Trace {
	return &Trace{
		Steps: make([]TraceStep, 0),
	}
}

// Slice copies steps [from, to) into a new trace numbered from zero
func (t *Trace) Slice(from, to int) *Trace {
	if to > len(t.Steps) {
		to = len(t.Steps)
	}
	slicedTrace := NewTrace()
	for i := from; i < to; i++ {
		s := t.Steps[i]
		slicedTrace.Append(i-from, s.Observation, s.Action, s.Rewards, s.Next)
	}
	return slicedTrace
}

func (t *Trace) Append(step int, obs Observation, action JointAction, rewards []float64, next Observation) {
	r := make([]float64, len(rewards))
	copy(r, rewards)
	t.Steps = append(t.Steps, TraceStep{
		Step:        step,
		Observation: obs.Copy(),
		Action:      action.Copy(),
		Rewards:     r,
		Next:        next.Copy(),
	})
}

func (t *Trace) Len() int {
	return len(t.Steps)
}
