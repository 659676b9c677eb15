package benchmarks

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/market"
	"github.com/zeu5/pricing-rl/storage"
	"github.com/zeu5/pricing-rl/types"
	"gopkg.in/yaml.v3"
)

// experimentPlan describes one experiment of a comparison. policies returns
// one policy per firm of env, or nil when the experiment does not apply to it.
type experimentPlan struct {
	name     string
	policies func(env types.Environment, seed uint64) []types.Policy
}

func randomExperiment() experimentPlan {
	return experimentPlan{
		name: "random",
		policies: func(env types.Environment, seed uint64) []types.Policy {
			out := make([]types.Policy, env.NumFirms())
			for i := range out {
				out[i] = types.NewRandomPolicy(env.NumActions(), offsetSeed(seed, i))
			}
			return out
		},
	}
}

func fixedExperiment(name string, action int) experimentPlan {
	return experimentPlan{
		name: name,
		policies: func(env types.Environment, _ uint64) []types.Policy {
			if action < 0 || action >= env.NumActions() {
				return nil
			}
			out := make([]types.Policy, env.NumFirms())
			for i := range out {
				out[i] = types.NewFixedPolicy(action)
			}
			return out
		},
	}
}

func softmaxExperiment(temperature float64) experimentPlan {
	return experimentPlan{
		name: "softmax",
		policies: func(env types.Environment, seed uint64) []types.Policy {
			model, ok := env.(types.ProfitModel)
			if !ok {
				return nil
			}
			out := make([]types.Policy, env.NumFirms())
			for i := range out {
				out[i] = types.NewSoftmaxResponsePolicy(model, env.NumActions(), temperature, offsetSeed(seed, i))
			}
			return out
		},
	}
}

// offsetSeed derives the seed of the i-th instance, zero stays zero so that
// unseeded runs draw from the clock
func offsetSeed(seed uint64, i int) uint64 {
	if seed == 0 {
		return 0
	}
	return seed + uint64(i)
}

// sustainedSteps is the number of consecutive periods a pricing pattern must
// last to be reported as an event
const sustainedSteps = 10

// runComparison runs every plan against its own market instance of the given
// kind. Profits and coverage are plotted, summaries are written as JSON and,
// when a database is configured, stored there too.
func runComparison(ctx context.Context, kind string, deps market.Deps, plans []experimentPlan, events []types.EventDesc) error {
	exp := cfg.Experiment
	savePath := path.Join(exp.SavePath, kind)
	log := logger.WithField("market", kind)

	c, err := types.NewComparison(&types.ComparisonConfig{
		Runs:         exp.Runs,
		Episodes:     exp.Episodes,
		Horizon:      exp.Horizon,
		RecordPath:   savePath,
		RecordTraces: exp.RecordTraces,
		Parallelism:  exp.Parallelism,
		Log:          log,
	})
	if err != nil {
		return err
	}
	c.AddAnalysis("profit", types.NewProfitAnalyzer, types.ProfitPlotter(savePath))
	c.AddAnalysis("coverage", types.NewCoverageAnalyzer, types.CoveragePlotter(savePath))
	c.AddAnalysis("summary", types.NewEpisodeSummaryAnalyzer, types.DatasetRecorder(savePath, "summary"))
	c.AddAnalysis("visits", types.NewVisitGraphAnalyzer, types.VisitGraphRecorder(savePath))
	if len(events) > 0 {
		eventsPath := path.Join(savePath, "events")
		c.AddAnalysis("events", types.NewEventAnalyzerCtor(eventsPath, log, events...), types.EventComparator(eventsPath, log))
	}

	if cfg.Database.DSN != "" {
		comparator, closeDB, err := openStorage(ctx, kind, log)
		if err != nil {
			return err
		}
		defer closeDB()
		c.AddAnalysis("database", types.NewEpisodeSummaryAnalyzer, comparator)
	}

	for i, plan := range plans {
		mc := cfg.Market
		mc.Kind = kind
		mc.Seed = offsetSeed(exp.Seed, i)
		env, err := market.New(kind, &mc, deps)
		if err != nil {
			return fmt.Errorf("experiment %s: %w", plan.name, err)
		}
		policies := plan.policies(env, offsetSeed(exp.Seed, 100*(i+1)))
		if policies == nil {
			log.WithField("experiment", plan.name).Warn("experiment does not apply to this market, skipping")
			continue
		}
		c.AddExperiment(types.NewExperiment(plan.name, env, policies...))
	}

	stop := startProfiling()
	defer stop()

	start := time.Now()
	if err := c.Run(ctx); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"duration": time.Since(start).String(),
		"path":     savePath,
	}).Info("comparison finished")
	return nil
}

// openStorage records the comparison and returns the comparator that stores
// the episode summaries under it
func openStorage(ctx context.Context, kind string, log logrus.FieldLogger) (types.Comparator, func(), error) {
	db, err := storage.New(cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(); err != nil {
		db.Close()
		return nil, nil, err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	record := &storage.ComparisonRecord{
		Name:     fmt.Sprintf("%s-%d", kind, time.Now().Unix()),
		Market:   kind,
		Runs:     cfg.Experiment.Runs,
		Episodes: cfg.Experiment.Episodes,
		Horizon:  cfg.Experiment.Horizon,
		Config:   string(raw),
	}
	if err := db.SaveComparison(ctx, record); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.WithField("comparison", record.ID).Info("storing episode summaries")
	return storage.Comparator(ctx, db, record.ID), func() { db.Close() }, nil
}

// withInterrupt runs f with a context that is canceled on an interrupt
func withInterrupt(f func(context.Context) error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	doneCh := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigCh:
			logger.Info("interrupted, stopping")
		case <-doneCh:
		}
		cancel()
	}()

	err := f(ctx)
	close(doneCh)
	return err
}

func solverConfig() market.SolverConfig {
	return market.SolverConfig{
		MaxIterations: cfg.Solver.MaxIterations,
		Tolerance:     cfg.Solver.Tolerance,
		Timeout:       cfg.Solver.Timeout,
		Log:           logger,
	}
}
