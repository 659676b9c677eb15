package benchmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeu5/pricing-rl/market"
)

func EquilibriaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "equilibria",
		Short: "Print the monopoly and Nash prices of the configured Logit market",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := market.NewLogitMarket(market.LogitConfigFrom(&cfg.Market, cfg.BuyBox))
			if err != nil {
				return err
			}
			eq, err := m.SolveEquilibria(context.Background(), solverConfig())
			if err != nil && !errors.Is(err, market.ErrConvergenceFailure) {
				return err
			}
			if err != nil {
				logger.WithError(err).Warn("best-effort result, check the converged and in_bounds flags")
			}
			bs, err := json.MarshalIndent(eq, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(bs))
			return nil
		},
	}
}
