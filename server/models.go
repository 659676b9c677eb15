package server

import (
	"encoding/json"

	"github.com/zeu5/pricing-rl/market"
	"github.com/zeu5/pricing-rl/types"
)

// CreateMarketRequest creates a market session. Fields missing from Config
// keep the defaults of the kind.
type CreateMarketRequest struct {
	Kind   string          `json:"kind" binding:"required"`
	Config json.RawMessage `json:"config,omitempty"`
}

type CreateMarketResponse struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	NumFirms   int       `json:"num_firms"`
	NumActions int       `json:"num_actions"`
	Prices     []float64 `json:"prices,omitempty"`
}

// ResetRequest optionally fixes the starting state
type ResetRequest struct {
	State []int `json:"state,omitempty"`
}

type ResetResponse struct {
	Observation types.Observation `json:"observation"`
	Info        types.Info        `json:"info"`
}

// StepRequest plays one period. BuyBox is only accepted by the logit market.
type StepRequest struct {
	Action []int   `json:"action" binding:"required"`
	BuyBox *[2]int `json:"buy_box,omitempty"`
}

type EquilibriaResponse struct {
	Converged bool   `json:"converged"`
	Message   string `json:"message,omitempty"`
	*market.Equilibria
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
