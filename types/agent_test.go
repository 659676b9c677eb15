package types

import "testing"

type recordingPolicy struct {
	FixedPolicy
	updates []float64
}

func (r *recordingPolicy) Update(_ int, _ int, _ Observation, _ int, reward float64, _ Observation) {
	r.updates = append(r.updates, reward)
}

func TestAgentRunEpisode(t *testing.T) {
	env := newCountingEnv(2, 5)
	p0 := &recordingPolicy{FixedPolicy: FixedPolicy{Action: 1}}
	p1 := &recordingPolicy{FixedPolicy: FixedPolicy{Action: 3}}
	agent, err := NewAgent(&AgentConfig{Horizon: 4, Policies: []Policy{p0, p1}, Environment: env})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	trace, err := agent.RunEpisode()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if trace.Len() != 4 {
		t.Fatalf("expected 4 steps, got %d", trace.Len())
	}
	first := trace.Steps[0]
	if first.Observation.Hash() != "(0, 0)" || first.Next.Hash() != "(1, 3)" {
		t.Errorf("unexpected first step %+v", first)
	}
	totals := make([]float64, 2)
	for _, s := range trace.Steps {
		totals[0] += s.Rewards[0]
		totals[1] += s.Rewards[1]
	}
	if totals[0] != 4 || totals[1] != 12 {
		t.Errorf("unexpected totals %v", totals)
	}
	if len(p0.updates) != 4 || p1.updates[0] != 3 {
		t.Errorf("policies not updated: %v %v", p0.updates, p1.updates)
	}
}

func TestAgentStopsOnTermination(t *testing.T) {
	env := newCountingEnv(2, 5)
	env.terminateAfter = 2
	agent, _ := NewAgent(&AgentConfig{Horizon: 10, Policies: []Policy{NewFixedPolicy(0), NewFixedPolicy(0)}, Environment: env})
	trace, err := agent.RunEpisode()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if trace.Len() != 2 {
		t.Errorf("expected 2 steps, got %d", trace.Len())
	}
}

func TestAgentReturnsPartialTraceOnError(t *testing.T) {
	env := newCountingEnv(2, 5)
	env.failAt = 3
	agent, _ := NewAgent(&AgentConfig{Horizon: 10, Policies: []Policy{NewFixedPolicy(0), NewFixedPolicy(0)}, Environment: env})
	trace, err := agent.RunEpisode()
	if err == nil {
		t.Fatalf("expected error")
	}
	if trace.Len() != 3 {
		t.Errorf("expected partial trace of 3 steps, got %d", trace.Len())
	}
}

func TestNewAgentChecksPolicyCount(t *testing.T) {
	if _, err := NewAgent(&AgentConfig{Horizon: 1, Policies: []Policy{NewFixedPolicy(0)}, Environment: newCountingEnv(2, 5)}); err == nil {
		t.Errorf("expected error for missing policy")
	}
}

func TestTrace(t *testing.T) {
	trace := NewTrace()
	obs := Observation{0, 0}
	action := JointAction{1, 2}
	trace.Append(0, obs, action, []float64{1, 2}, Observation{1, 2})
	trace.Append(1, Observation{1, 2}, JointAction{2, 2}, []float64{2, 2}, Observation{2, 2})
	action[0] = 4
	if trace.Steps[0].Action[0] != 1 {
		t.Errorf("Append should copy the action")
	}
	sliced := trace.Slice(1, 2)
	if sliced.Len() != 1 || sliced.Steps[0].Step != 0 || sliced.Steps[0].Action[0] != 2 {
		t.Errorf("unexpected slice %+v", sliced)
	}
	if whole := trace.Slice(0, 5); whole.Len() != 2 {
		t.Errorf("slice past the end should stop at the last step, got %d", whole.Len())
	}
}
