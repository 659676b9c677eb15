package benchmarks

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/zeu5/pricing-rl/config"
	"github.com/zeu5/pricing-rl/market"
	"github.com/zeu5/pricing-rl/types"
)

func SequentialCommand() *cobra.Command {
	var firms int
	var prices int

	cmd := &cobra.Command{
		Use:   "sequential",
		Short: "Compare baseline policies in the sequential pricing market",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("firms") {
				cfg.Market.NumFirms = firms
			}
			if cmd.Flags().Changed("prices") {
				cfg.Market.NumPrices = prices
			}
			return withInterrupt(func(ctx context.Context) error {
				m, err := market.NewSequentialMarket(market.SequentialConfig{
					NumFirms:       cfg.Market.NumFirms,
					NumPrices:      cfg.Market.NumPrices,
					DiscountFactor: cfg.Market.Discount,
				})
				if err != nil {
					return err
				}
				plans := []experimentPlan{
					randomExperiment(),
					softmaxExperiment(cfg.Experiment.Temperature),
					fixedExperiment("nash", m.NashIndex()),
					fixedExperiment("monopoly", m.MonopolyIndex()),
				}
				events := []types.EventDesc{
					{Name: "supracompetitive", Check: types.SustainedAbove(m.NashIndex()+1, sustainedSteps)},
					{Name: "monopoly", Check: types.SustainedAbove(m.MonopolyIndex(), sustainedSteps)},
				}
				return runComparison(ctx, config.KindSequential, market.Deps{Log: logger}, plans, events)
			})
		},
	}
	cmd.Flags().IntVar(&firms, "firms", 2, "Number of firms")
	cmd.Flags().IntVar(&prices, "prices", 6, "Number of prices on [0, 1]")
	return cmd
}
