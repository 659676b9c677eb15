// Package server exposes markets over HTTP so that an agent loop written in
// any language can drive them through the reset/step contract.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/config"
	"github.com/zeu5/pricing-rl/market"
	"github.com/zeu5/pricing-rl/metrics"
	"github.com/zeu5/pricing-rl/types"
)

// Options configures a Server
type Options struct {
	// collaborators handed to the market factory
	Deps market.Deps
	// defaults applied to the market section of create requests
	Markets map[string]config.MarketConfig
	Solver  market.SolverConfig
	Mode    string
	// browser origins allowed to call the API, CORS is off when empty
	AllowedOrigins []string
	Log            logrus.FieldLogger
}

// session owns one market. Markets are not safe for concurrent use, the
// session lock serializes the requests on it.
type session struct {
	mu   sync.Mutex
	kind string
	env  types.Environment
}

type Server struct {
	router  *gin.Engine
	handler http.Handler
	deps    market.Deps
	solver  market.SolverConfig
	log     logrus.FieldLogger

	defaults map[string]config.MarketConfig

	mu       sync.RWMutex
	sessions map[string]*session
}

func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	s := &Server{
		router:   gin.New(),
		deps:     opts.Deps,
		solver:   opts.Solver,
		log:      opts.Log,
		defaults: opts.Markets,
		sessions: make(map[string]*session),
	}
	if s.deps.Log == nil {
		s.deps.Log = opts.Log
	}
	s.routes()
	s.handler = s.router
	if len(opts.AllowedOrigins) > 0 {
		s.handler = cors.New(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler(s.router)
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(requestLogger(s.log))
	s.router.Use(recovery(s.log))

	s.router.GET("/health", func(c *gin.Context) {
		s.mu.RLock()
		n := len(s.sessions)
		s.mu.RUnlock()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": n})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	{
		api.POST("/markets", s.createMarket)
		api.POST("/markets/:id/reset", s.resetMarket)
		api.POST("/markets/:id/step", s.stepMarket)
		api.GET("/markets/:id/equilibria", s.equilibria)
		api.DELETE("/markets/:id", s.deleteMarket)
	}
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until the context is done
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("serving markets")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) session(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Server) marketConfig(kind string, raw json.RawMessage) (*config.MarketConfig, error) {
	cfg, ok := s.defaults[kind]
	if !ok {
		cfg = config.DefaultMarket(kind)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("%w: config: %v", ErrInvalidRequest, err)
		}
	}
	cfg.Kind = kind
	return &cfg, nil
}

// createMarket handles POST /api/v1/markets
func (s *Server) createMarket(c *gin.Context) {
	var req CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	cfg, err := s.marketConfig(req.Kind, req.Config)
	if err != nil {
		writeError(c, err)
		return
	}
	env, err := market.New(req.Kind, cfg, s.deps)
	if err != nil {
		writeError(c, err)
		return
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = &session{kind: req.Kind, env: env}
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()
	s.log.WithFields(logrus.Fields{"id": id, "kind": req.Kind}).Info("created market")

	resp := CreateMarketResponse{
		ID:         id,
		Kind:       req.Kind,
		NumFirms:   env.NumFirms(),
		NumActions: env.NumActions(),
	}
	if g, ok := env.(interface{ Grid() *market.PriceGrid }); ok {
		resp.Prices = g.Grid().Prices()
	}
	c.JSON(http.StatusCreated, resp)
}

// resetMarket handles POST /api/v1/markets/:id/reset
func (s *Server) resetMarket(c *gin.Context) {
	sess, err := s.session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req ResetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
			return
		}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	var (
		obs  types.Observation
		info types.Info
	)
	if req.State != nil {
		r, ok := sess.env.(interface {
			ResetTo(types.Observation) (types.Observation, types.Info, error)
		})
		if !ok {
			writeError(c, fmt.Errorf("%w: %s market has no settable state", ErrUnsupported, sess.kind))
			return
		}
		obs, info, err = r.ResetTo(types.Observation(req.State))
	} else {
		obs, info, err = sess.env.Reset()
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResetResponse{Observation: obs, Info: info})
}

// stepMarket handles POST /api/v1/markets/:id/step
func (s *Server) stepMarket(c *gin.Context) {
	sess, err := s.session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	action := types.JointAction(req.Action)
	var res *types.StepResult
	switch env := sess.env.(type) {
	case *market.BuyBoxMarket:
		if req.BuyBox != nil {
			writeError(c, fmt.Errorf("%w: the buy box of a %s market is assigned by the oracle", ErrUnsupported, sess.kind))
			return
		}
		res, err = env.StepContext(c.Request.Context(), action)
	case *market.LogitMarket:
		bb := market.BuyBox{}
		if req.BuyBox != nil {
			bb = market.BuyBox(*req.BuyBox)
		}
		res, err = env.StepWithBuyBox(action, bb)
	default:
		if req.BuyBox != nil {
			writeError(c, fmt.Errorf("%w: %s market has no buy box", ErrUnsupported, sess.kind))
			return
		}
		res, err = env.Step(action)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// equilibria handles GET /api/v1/markets/:id/equilibria. A solver that did
// not converge still answers 200 with its best-effort result.
func (s *Server) equilibria(c *gin.Context) {
	sess, err := s.session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	solver, ok := sess.env.(interface {
		SolveEquilibria(context.Context, market.SolverConfig) (*market.Equilibria, error)
	})
	if !ok {
		writeError(c, fmt.Errorf("%w: %s market has no equilibrium solver", ErrUnsupported, sess.kind))
		return
	}

	cfg := s.solver
	cfg.Log = s.log
	sess.mu.Lock()
	eq, err := solver.SolveEquilibria(c.Request.Context(), cfg)
	sess.mu.Unlock()
	if err != nil && !errors.Is(err, market.ErrConvergenceFailure) {
		writeError(c, err)
		return
	}
	resp := EquilibriaResponse{
		Converged:  err == nil,
		Equilibria: eq,
	}
	if err != nil {
		resp.Message = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// deleteMarket handles DELETE /api/v1/markets/:id
func (s *Server) deleteMarket(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		writeError(c, fmt.Errorf("%w: %s", ErrSessionNotFound, id))
		return
	}
	metrics.ActiveSessions.Dec()
	c.Status(http.StatusNoContent)
}
