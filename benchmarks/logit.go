package benchmarks

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zeu5/pricing-rl/config"
	"github.com/zeu5/pricing-rl/market"
	"github.com/zeu5/pricing-rl/types"
)

// logitExperiments compares random and softmax play with both firms fixed at
// the grid points closest to the Nash and the monopoly prices. Prices sustained
// above Nash or at monopoly level are reported as events.
func logitExperiments(ctx context.Context) ([]experimentPlan, []types.EventDesc, error) {
	m, err := market.NewLogitMarket(market.LogitConfigFrom(&cfg.Market, cfg.BuyBox))
	if err != nil {
		return nil, nil, err
	}
	plans := []experimentPlan{
		randomExperiment(),
		softmaxExperiment(cfg.Experiment.Temperature),
	}

	eq, err := m.SolveEquilibria(ctx, solverConfig())
	if err != nil && !errors.Is(err, market.ErrConvergenceFailure) {
		return nil, nil, err
	}
	if err != nil {
		logger.WithError(err).Warn("equilibria did not converge")
	}
	logger.WithFields(logrus.Fields{
		"nash":     eq.Nash.Prices,
		"monopoly": eq.Monopoly.Price,
	}).Info("benchmark prices")
	var events []types.EventDesc
	if eq.Nash.InBounds {
		nash := eq.Nash.GridIndices[0]
		plans = append(plans, fixedExperiment("nash", nash))
		events = append(events, types.EventDesc{Name: "supracompetitive", Check: types.SustainedAbove(nash+1, sustainedSteps)})
	}
	if eq.Monopoly.Converged {
		plans = append(plans, fixedExperiment("monopoly", eq.Monopoly.GridIndex))
		events = append(events, types.EventDesc{Name: "monopoly", Check: types.SustainedAbove(eq.Monopoly.GridIndex, sustainedSteps)})
	}
	return plans, events, nil
}

func LogitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logit",
		Short: "Compare baseline policies in the Logit market",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInterrupt(func(ctx context.Context) error {
				plans, events, err := logitExperiments(ctx)
				if err != nil {
					return err
				}
				return runComparison(ctx, config.KindLogit, market.Deps{BuyBox: cfg.BuyBox, Log: logger}, plans, events)
			})
		},
	}
}

func BuyBoxCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "buybox",
		Short: "Compare baseline policies in the Logit market with a Buy Box oracle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInterrupt(func(ctx context.Context) error {
				oracle, err := market.NewOracle(ctx, cfg.BuyBox, logger)
				if err != nil {
					return err
				}
				defer oracle.Close()

				plans, events, err := logitExperiments(ctx)
				if err != nil {
					return err
				}
				deps := market.Deps{
					Classifier: oracle,
					BuyBox:     cfg.BuyBox,
					Log:        logger,
				}
				return runComparison(ctx, config.KindBuyBox, deps, plans, events)
			})
		},
	}
}
