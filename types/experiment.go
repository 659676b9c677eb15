package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/util"
)

type experimentRunConfig struct {
	CurrentRun int
	Episodes   int
	Horizon    int
	Analyzers  map[string]Analyzer

	// threshold to abort the experiment
	ConsecutiveErrorsAbort int

	RecordTraces bool
	RecordPath   string

	Output            *ParallelOutput
	LongestExpNameLen int
	Log               logrus.FieldLogger
}

// Experiment encapsulates the policies of the firms and the market they play in
type Experiment struct {
	Name        string
	policies    []Policy
	environment Environment
}

// NewExperiment creates a new experiment instance, one policy per firm
func NewExperiment(name string, environment Environment, policies ...Policy) *Experiment {
	return &Experiment{
		Name:        name,
		policies:    policies,
		environment: environment,
	}
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, trace *Trace) error {
	tracesFile := path.Join(rConfig.RecordPath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	bs, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	return util.AppendToFile(tracesFile, string(bs))
}

func (e *Experiment) status(rConfig *experimentRunConfig, episode, failed int) string {
	EPPadding := len(strconv.Itoa(rConfig.Episodes))
	return fmt.Sprintf("Exp:%*s, Run:%d, Eps:%*d/%d, Err:%*d",
		rConfig.LongestExpNameLen, e.Name, rConfig.CurrentRun+1, EPPadding, episode, rConfig.Episodes, EPPadding, failed)
}

// Run the experiment for the specified number of episodes, every trace is
// handed to the analyzers even when the episode ended with an error
func (e *Experiment) Run(ctx context.Context, rConfig *experimentRunConfig) error {
	agent, err := NewAgent(&AgentConfig{
		Horizon:     rConfig.Horizon,
		Policies:    e.policies,
		Environment: e.environment,
	})
	if err != nil {
		return err
	}

	totalWithError := 0
	consecutiveErrors := 0
	rConfig.Output.Set(e.status(rConfig, 0, 0))

	for episode := 0; episode < rConfig.Episodes; episode++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		trace, err := agent.RunEpisode()
		if err != nil {
			totalWithError += 1
			consecutiveErrors += 1
			rConfig.Log.WithFields(logrus.Fields{
				"experiment": e.Name,
				"run":        rConfig.CurrentRun,
				"episode":    episode,
			}).WithError(err).Warn("episode failed")
		} else {
			consecutiveErrors = 0
		}

		if rConfig.RecordTraces {
			if err := e.recordTrace(rConfig, trace); err != nil {
				rConfig.Log.WithError(err).Error("could not record trace")
			}
		}

		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, episode, e.Name, trace)
		}

		if consecutiveErrors >= rConfig.ConsecutiveErrorsAbort {
			return fmt.Errorf("aborting experiment %s: %d consecutive errors", e.Name, consecutiveErrors)
		}
		rConfig.Output.TrySet(e.status(rConfig, episode+1, totalWithError))
	}
	rConfig.Output.Set(e.status(rConfig, rConfig.Episodes, totalWithError))
	return nil
}

// Reset the policies between runs
func (e *Experiment) Reset() {
	for _, p := range e.policies {
		p.Reset()
	}
}

// Generic Dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses the information in the traces to a DataSet
type Analyzer interface {
	// Run, episode, experiment, trace
	Analyze(int, int, string, *Trace)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// AnalyzerCtor creates a fresh analyzer for every experiment, so that
// experiments can run in parallel
type AnalyzerCtor func() Analyzer

// Comparator differentiates between different datasets with associated names
// run, total episodes, experiment names, datasets
type Comparator func(int, int, []string, []DataSet) error

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs     int // number of runs
	Episodes int // number of episodes
	Horizon  int // number of steps

	RecordPath   string // path to store the results
	RecordTraces bool

	// number of experiments executed at the same time
	Parallelism int

	// threshold to abort an experiment
	ConsecutiveErrorsAbort int

	Log logrus.FieldLogger
}

// Comparison contains the different experiments to compare
// The traces obtained from the experiments are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]AnalyzerCtor
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
}

// NewComparison creates a comparison instance
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	if config.Parallelism < 1 {
		config.Parallelism = 1
	}
	if config.ConsecutiveErrorsAbort == 0 {
		config.ConsecutiveErrorsAbort = 10
	}
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}

	foldersToCreate := []string{""}
	if config.RecordTraces {
		foldersToCreate = append(foldersToCreate, "traces")
	}
	for _, s := range foldersToCreate {
		if err := os.MkdirAll(path.Join(config.RecordPath, s), 0777); err != nil {
			return nil, err
		}
	}

	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]AnalyzerCtor),
		comparators: make(map[string]Comparator),
		cConfig:     config,
	}, nil
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer AnalyzerCtor, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	out := make(map[string]interface{})
	out["runs"] = cfg.Runs
	out["episodes"] = cfg.Episodes
	out["horizon"] = cfg.Horizon
	out["record_traces"] = cfg.RecordTraces
	out["parallelism"] = cfg.Parallelism

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	analyzers := make([]string, 0)
	for name := range c.analyzers {
		analyzers = append(analyzers, name)
	}
	out["analyzers"] = analyzers

	return util.WriteJSON(path.Join(cfg.RecordPath, "comparison_config.json"), out)
}

// Run the comparison
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil {
		return err
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		if len(e.Name) > longestNameLen {
			longestNameLen = len(e.Name)
		}
	}

	for run := 0; run < c.cConfig.Runs; run++ {
		c.cConfig.Log.WithField("run", run+1).Info("starting run")
		datasets, err := c.runExperiments(ctx, run, longestNameLen)
		if err != nil {
			return err
		}

		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			names[i] = e.Name
			e.Reset()
		}
		for name, comp := range c.comparators {
			if err := comp(run, c.cConfig.Episodes, names, datasets[name]); err != nil {
				return fmt.Errorf("comparator %s: %w", name, err)
			}
		}
	}
	return nil
}

func (c *Comparison) runExperiments(ctx context.Context, run int, longestNameLen int) (map[string][]DataSet, error) {
	datasets := make(map[string][]DataSet)
	for name := range c.analyzers {
		datasets[name] = make([]DataSet, len(c.Experiments))
	}

	outputs := make([]*ParallelOutput, len(c.Experiments))
	for i := range outputs {
		outputs[i] = NewParallelOutput()
	}
	printer := NewTerminalPrinter(ctx, outputs, 1)
	printer.Start()
	defer printer.Stop()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	slots := make(chan struct{}, c.cConfig.Parallelism)

	for i, e := range c.Experiments {
		wg.Add(1)
		go func(i int, e *Experiment) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			analyzers := make(map[string]Analyzer, len(c.analyzers))
			for name, ctor := range c.analyzers {
				analyzers[name] = ctor()
			}
			outputs[i].SetRunning(true)
			err := e.Run(ctx, &experimentRunConfig{
				CurrentRun:             run,
				Episodes:               c.cConfig.Episodes,
				Horizon:                c.cConfig.Horizon,
				Analyzers:              analyzers,
				ConsecutiveErrorsAbort: c.cConfig.ConsecutiveErrorsAbort,
				RecordTraces:           c.cConfig.RecordTraces,
				RecordPath:             c.cConfig.RecordPath,
				Output:                 outputs[i],
				LongestExpNameLen:      longestNameLen,
				Log:                    c.cConfig.Log,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			for name, a := range analyzers {
				datasets[name][i] = a.DataSet()
			}
		}(i, e)
	}
	wg.Wait()
	printer.Flush()

	return datasets, errors.Join(errs...)
}
