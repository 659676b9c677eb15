package market

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/buybox"
	"github.com/zeu5/pricing-rl/types"
)

const (
	InfoBuyBoxWinner        = "buy_box_winner"
	InfoBuyBoxProbabilities = "buy_box_probabilities"

	DefaultOracleTimeout = 5 * time.Second
)

// BuyBoxMarket is the Logit market where the featured offer is decided every
// period by the Buy Box oracle from the sellers' price history
type BuyBoxMarket struct {
	*LogitMarket
	assigner      *buybox.Assigner
	featurizer    *buybox.Featurizer
	oracleTimeout time.Duration
	log           logrus.FieldLogger
}

var _ types.Environment = &BuyBoxMarket{}

type BuyBoxMarketConfig struct {
	Logit LogitConfig
	// one profile per firm
	Sellers       []buybox.SellerProfile
	Classifier    buybox.Classifier
	OracleTimeout time.Duration
	Log           logrus.FieldLogger
}

func NewBuyBoxMarket(cfg BuyBoxMarketConfig) (*BuyBoxMarket, error) {
	logit, err := NewLogitMarket(cfg.Logit)
	if err != nil {
		return nil, err
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("%w: buy box market needs a classifier", ErrInvalidParameter)
	}
	sellers := cfg.Sellers
	if len(sellers) == 0 {
		sellers = make([]buybox.SellerProfile, logit.NumFirms())
	}
	if len(sellers) != logit.NumFirms() {
		return nil, fmt.Errorf("%w: %d seller profiles for %d firms", ErrInvalidParameter, len(sellers), logit.NumFirms())
	}
	timeout := cfg.OracleTimeout
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BuyBoxMarket{
		LogitMarket:   logit,
		assigner:      buybox.NewAssigner(cfg.Classifier),
		featurizer:    buybox.NewFeaturizer(sellers),
		oracleTimeout: timeout,
		log:           log,
	}, nil
}

// Logit returns the underlying market
func (m *BuyBoxMarket) Logit() *LogitMarket {
	return m.LogitMarket
}

// Reset draws a new state and clears the price history of the oracle
func (m *BuyBoxMarket) Reset() (types.Observation, types.Info, error) {
	m.featurizer.Reset()
	return m.LogitMarket.Reset()
}

func (m *BuyBoxMarket) ResetTo(obs types.Observation) (types.Observation, types.Info, error) {
	o, info, err := m.LogitMarket.ResetTo(obs)
	if err != nil {
		return nil, nil, err
	}
	m.featurizer.Reset()
	return o, info, nil
}

func (m *BuyBoxMarket) Step(action types.JointAction) (*types.StepResult, error) {
	return m.StepContext(context.Background(), action)
}

// StepContext asks the oracle for the Buy Box holder at the chosen prices and
// plays the period with it. Nothing is recorded when the oracle fails.
func (m *BuyBoxMarket) StepContext(ctx context.Context, action types.JointAction) (*types.StepResult, error) {
	if len(action) != m.NumFirms() {
		return nil, fmt.Errorf("%w: action has %d entries, expected %d", ErrInvalidParameter, len(action), m.NumFirms())
	}
	prices, err := m.grid.Lookup(action)
	if err != nil {
		return nil, err
	}
	features, err := m.featurizer.Peek(prices)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.oracleTimeout)
	defer cancel()
	assignment, err := m.assigner.Assign(ctx, features)
	if err != nil {
		m.log.WithError(err).WithField("action", action).Warn("buy box oracle failed")
		return nil, fmt.Errorf("buy box oracle: %w", err)
	}

	result, err := m.step(action, BuyBoxFor(assignment.Winner), "logit-buybox")
	if err != nil {
		return nil, err
	}
	if _, err := m.featurizer.Observe(prices); err != nil {
		return nil, err
	}
	result.Info[InfoBuyBoxWinner] = assignment.Winner
	result.Info[InfoBuyBoxProbabilities] = assignment.Probabilities()
	return result, nil
}
