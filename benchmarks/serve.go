package benchmarks

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/zeu5/pricing-rl/config"
	"github.com/zeu5/pricing-rl/market"
	"github.com/zeu5/pricing-rl/server"
)

func ServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve markets over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}
			return withInterrupt(func(ctx context.Context) error {
				oracle, err := market.NewOracle(ctx, cfg.BuyBox, logger)
				if err != nil {
					return err
				}
				defer oracle.Close()

				// the configured market section is the default of its kind
				defaults := map[string]config.MarketConfig{
					cfg.Market.Kind: cfg.Market,
				}
				s := server.New(server.Options{
					Deps: market.Deps{
						Classifier: oracle,
						BuyBox:     cfg.BuyBox,
						Log:        logger,
					},
					Markets: defaults,
					Solver:  solverConfig(),
					Mode:    cfg.Server.Mode,
					Log:     logger,

					AllowedOrigins: cfg.Server.AllowedOrigins,
				})
				return s.Run(ctx, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}
