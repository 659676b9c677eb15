package types

import "fmt"

type AgentConfig struct {
	Horizon     int
	Policies    []Policy
	Environment Environment
}

// Agent drives one environment with one policy per firm
type Agent struct {
	config      *AgentConfig
	policies    []Policy
	environment Environment
}

// Instantiates a new Agent
func NewAgent(config *AgentConfig) (*Agent, error) {
	if len(config.Policies) != config.Environment.NumFirms() {
		return nil, fmt.Errorf("agent: %d policies for %d firms", len(config.Policies), config.Environment.NumFirms())
	}
	return &Agent{
		config:      config,
		policies:    config.Policies,
		environment: config.Environment,
	}, nil
}

// RunEpisode resets the environment and plays until the horizon is reached
// or the environment terminates. The partial trace is returned on error.
func (a *Agent) RunEpisode() (*Trace, error) {
	trace := NewTrace()
	obs, _, err := a.environment.Reset()
	if err != nil {
		return trace, err
	}

	for i := 0; i < a.config.Horizon; i++ {
		action := make(JointAction, len(a.policies))
		for f, p := range a.policies {
			action[f] = p.NextAction(i, f, obs)
		}
		res, err := a.environment.Step(action)
		if err != nil {
			return trace, fmt.Errorf("step %d: %w", i, err)
		}
		for f, p := range a.policies {
			p.Update(i, f, obs, action[f], res.Rewards[f], res.Observation)
		}

		trace.Append(i, obs, action, res.Rewards, res.Observation)
		obs = res.Observation
		if res.Terminated || res.Truncated {
			break
		}
	}
	return trace, nil
}
