package benchmarks

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/zeu5/pricing-rl/config"
	"github.com/zeu5/pricing-rl/market"
	"github.com/zeu5/pricing-rl/types"
)

func BertrandCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bertrand",
		Short: "Compare baseline policies in the winner-takes-all Bertrand market",
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := market.NewPriceGrid(cfg.Market.PriceMin, cfg.Market.PriceMax, cfg.Market.GridSize)
			if err != nil {
				return err
			}
			// the competitive outcome prices at marginal cost
			cost := grid.Nearest(cfg.Market.MarginalCost)
			plans := []experimentPlan{
				randomExperiment(),
				softmaxExperiment(cfg.Experiment.Temperature),
				fixedExperiment("cost", cost),
			}
			events := []types.EventDesc{
				{Name: "supracompetitive", Check: types.SustainedAbove(cost+1, sustainedSteps)},
				{Name: "below-cost", Check: types.SustainedBelow(cost-1, sustainedSteps)},
			}
			return withInterrupt(func(ctx context.Context) error {
				return runComparison(ctx, config.KindBertrand, market.Deps{Log: logger}, plans, events)
			})
		},
	}
}
