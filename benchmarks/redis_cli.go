package benchmarks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// CacheInfoCommand reports how many Buy Box predictions the Redis cache holds
func CacheInfoCommand() *cobra.Command {
	var flush bool

	cmd := &cobra.Command{
		Use:   "cache-info",
		Short: "Inspect the Redis prediction cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := cfg.BuyBox.Redis
			cli := redis.NewClient(&redis.Options{
				Addr:     rc.Addr,
				Password: rc.Password,
				DB:       rc.DB,
			})
			defer cli.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			prefix := rc.Prefix
			if prefix == "" {
				prefix = "buybox:"
			}
			keys := 0
			iter := cli.Scan(ctx, 0, prefix+"*", 1000).Iterator()
			for iter.Next(ctx) {
				keys++
				if flush {
					if err := cli.Del(ctx, iter.Val()).Err(); err != nil {
						return err
					}
				}
			}
			if err := iter.Err(); err != nil {
				return err
			}

			size, err := cli.DBSize(ctx).Result()
			if err != nil {
				return err
			}
			fmt.Printf("addr: %s\ndb: %d\nprefix: %s\npredictions: %d\ntotal keys: %d\n", rc.Addr, rc.DB, prefix, keys, size)
			if flush {
				fmt.Printf("deleted %d predictions\n", keys)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flush, "flush", false, "Delete the cached predictions")
	return cmd
}
