package market

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/buybox"
	"github.com/zeu5/pricing-rl/config"
	"github.com/zeu5/pricing-rl/types"
)

// Deps are the collaborators a market may need besides its configuration
type Deps struct {
	// required for logit-buybox
	Classifier buybox.Classifier
	BuyBox     config.BuyBoxConfig
	Log        logrus.FieldLogger
}

// LogitConfigFrom maps the market and buy box sections onto a LogitConfig.
// A zero utility falls back to DefaultBuyBoxUtility.
func LogitConfigFrom(cfg *config.MarketConfig, bb config.BuyBoxConfig) LogitConfig {
	utility := bb.Utility
	if utility == 0 {
		utility = DefaultBuyBoxUtility
	}
	return LogitConfig{
		PriceMin:      cfg.PriceMin,
		PriceMax:      cfg.PriceMax,
		GridSize:      cfg.GridSize,
		MarginalCost:  cfg.MarginalCost,
		A0:            cfg.A0,
		A12:           cfg.A12,
		Mu:            cfg.Mu,
		BuyBoxUtility: utility,
		Discount:      cfg.Discount,
		Seed:          cfg.Seed,
	}
}

// New builds the market of the given kind
func New(kind string, cfg *config.MarketConfig, deps Deps) (types.Environment, error) {
	if cfg == nil {
		d := config.DefaultMarket(kind)
		cfg = &d
	}
	var (
		env types.Environment
		err error
	)
	switch kind {
	case config.KindLogit:
		env, err = NewLogitMarket(LogitConfigFrom(cfg, deps.BuyBox))
	case config.KindBuyBox:
		env, err = NewBuyBoxMarket(BuyBoxMarketConfig{
			Logit:         LogitConfigFrom(cfg, deps.BuyBox),
			Sellers:       deps.BuyBox.Sellers,
			Classifier:    deps.Classifier,
			OracleTimeout: deps.BuyBox.OracleTimeout,
			Log:           deps.Log,
		})
	case config.KindBertrand:
		env, err = NewBertrandMarket(BertrandConfig{
			PriceMin:     cfg.PriceMin,
			PriceMax:     cfg.PriceMax,
			GridSize:     cfg.GridSize,
			MarginalCost: cfg.MarginalCost,
		})
	case config.KindSequential:
		env, err = NewSequentialMarket(SequentialConfig{
			NumFirms:       cfg.NumFirms,
			NumPrices:      cfg.NumPrices,
			DiscountFactor: cfg.Discount,
		})
	default:
		return nil, fmt.Errorf("%w: unknown market kind %q", ErrInvalidParameter, kind)
	}
	if err != nil {
		return nil, err
	}
	return env, nil
}

// Oracle is a classifier together with the resources it holds
type Oracle struct {
	buybox.Classifier
	closers []func() error
}

func (o *Oracle) Close() error {
	var err error
	for _, c := range o.closers {
		if cErr := c(); cErr != nil && err == nil {
			err = cErr
		}
	}
	return err
}

// NewOracle assembles the Buy Box classifier described by the configuration:
// remote or logistic model, optionally memoized in memory or Redis and
// preloaded with a prediction table
func NewOracle(ctx context.Context, cfg config.BuyBoxConfig, log logrus.FieldLogger) (*Oracle, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	oracle := &Oracle{}

	var classifier buybox.Classifier
	switch {
	case cfg.RemoteURL != "":
		classifier = buybox.NewRemoteClassifier(cfg.RemoteURL, cfg.RemoteTimeout)
		log.WithField("url", cfg.RemoteURL).Info("using remote buy box classifier")
	case cfg.ModelFile != "":
		model, err := buybox.LoadLogisticModel(cfg.ModelFile)
		if err != nil {
			return nil, fmt.Errorf("load buy box model: %w", err)
		}
		classifier = model
		log.WithField("file", cfg.ModelFile).Info("loaded buy box model")
	default:
		classifier = buybox.DefaultLogisticModel()
	}

	var cache buybox.Cache
	switch cfg.Cache {
	case "memory":
		cache = buybox.NewMemoryCache()
	case "redis":
		rc := buybox.NewRedisCache(buybox.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		oracle.closers = append(oracle.closers, rc.Close)
		cache = rc
	}

	if cache == nil {
		if cfg.TableFile != "" {
			log.Warn("buybox.table_file is ignored without a cache")
		}
		oracle.Classifier = classifier
		return oracle, nil
	}
	if cfg.TableFile != "" {
		entries, err := buybox.LoadTable(cfg.TableFile)
		if err != nil {
			oracle.Close()
			return nil, fmt.Errorf("load prediction table: %w", err)
		}
		if err := buybox.Preload(ctx, cache, entries); err != nil {
			oracle.Close()
			return nil, fmt.Errorf("preload prediction table: %w", err)
		}
		log.WithField("entries", len(entries)).Info("preloaded buy box predictions")
	}
	oracle.Classifier = buybox.NewCachedClassifier(classifier, cache, log)
	return oracle, nil
}
