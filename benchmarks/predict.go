package benchmarks

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zeu5/pricing-rl/buybox"
	"github.com/zeu5/pricing-rl/market"
)

// PredictCommand feeds a constant price vector through the featurizer for a
// number of periods and prints the Buy Box assignment of the last period
func PredictCommand() *cobra.Command {
	var prices []float64
	var periods int

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Query the Buy Box oracle for a price vector",
		RunE: func(cmd *cobra.Command, args []string) error {
			if periods < 1 {
				return fmt.Errorf("periods must be positive, got %d", periods)
			}
			ctx := context.Background()
			oracle, err := market.NewOracle(ctx, cfg.BuyBox, logger)
			if err != nil {
				return err
			}
			defer oracle.Close()

			featurizer := buybox.NewFeaturizer(cfg.BuyBox.Sellers)
			if len(prices) != featurizer.NumSellers() {
				return fmt.Errorf("%d prices given for %d sellers", len(prices), featurizer.NumSellers())
			}
			var features []buybox.Features
			for i := 0; i < periods; i++ {
				features, err = featurizer.Observe(prices)
				if err != nil {
					return err
				}
			}
			assignment, err := buybox.NewAssigner(oracle).Assign(ctx, features)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SELLER\tPRICE\tRANK\tAVG_RANK_14D\tDIFF\tLABEL\tPROBABILITY")
			for i, f := range features {
				p := assignment.Predictions[i]
				fmt.Fprintf(w, "%d\t%.4f\t%.0f\t%.3f\t%.4f\t%d\t%.4f\n", i, prices[i], f.PriceRank, f.AvgPriceRank14d, f.PriceDiff, p.Label, p.Probability)
			}
			w.Flush()
			if assignment.Winner < 0 {
				fmt.Println("no seller wins the Buy Box")
			} else {
				fmt.Printf("seller %d wins the Buy Box\n", assignment.Winner)
			}
			return nil
		},
	}
	cmd.Flags().Float64SliceVarP(&prices, "prices", "p", []float64{5, 5}, "Price of each seller")
	cmd.Flags().IntVar(&periods, "periods", 1, "Number of periods the prices are repeated")
	return cmd
}
