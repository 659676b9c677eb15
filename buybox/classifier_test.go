package buybox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDefaultLogisticModelPrefersCheapSeller(t *testing.T) {
	m := DefaultLogisticModel()
	ctx := context.Background()
	cheap, err := m.Predict(ctx, Features{IsFBA: true, PriceRank: 1, AvgPriceRank14d: 1})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	dear, err := m.Predict(ctx, Features{IsFBA: true, PriceRank: 2, AvgPriceRank14d: 2, PriceDiff: 3})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cheap.Probability <= dear.Probability {
		t.Errorf("cheap seller %v should be more likely than %v", cheap.Probability, dear.Probability)
	}
	if cheap.Label != 1 || dear.Label != 0 {
		t.Errorf("unexpected labels %d, %d", cheap.Label, dear.Label)
	}
}

func TestLogisticModelExtremeScoresStayFinite(t *testing.T) {
	m := &LogisticModel{Intercept: -1e6}
	p, err := m.Predict(context.Background(), Features{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if p.Probability != 0 || p.Label != 0 {
		t.Errorf("expected probability 0, got %+v", p)
	}
	m = &LogisticModel{Intercept: 1e6}
	p, _ = m.Predict(context.Background(), Features{})
	if p.Probability != 1 || p.Label != 1 {
		t.Errorf("expected probability 1, got %+v", p)
	}
}

func TestLogisticModelConcurrentPredict(t *testing.T) {
	m := &LogisticModel{Coefficients: map[string]float64{"price_rank": -1}}
	var wg sync.WaitGroup
	probs := make([]float64, 8)
	errs := make([]error, 8)
	for i := range probs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := m.Predict(context.Background(), Features{PriceRank: 1})
			probs[i], errs[i] = p.Probability, err
		}(i)
	}
	wg.Wait()
	for i := range probs {
		if errs[i] != nil {
			t.Fatalf("unexpected error: %s", errs[i])
		}
		if probs[i] != probs[0] {
			t.Errorf("predictions differ: %v", probs)
		}
	}
	if m.Threshold != 0.5 {
		t.Errorf("expected the default threshold, got %v", m.Threshold)
	}
}

func TestLogisticModelUnknownFeature(t *testing.T) {
	m := &LogisticModel{Coefficients: map[string]float64{"colour": 1}}
	for i := 0; i < 2; i++ {
		if _, err := m.Predict(context.Background(), Features{}); !errors.Is(err, ErrInvalidFeatures) {
			t.Errorf("expected ErrInvalidFeatures, got %v", err)
		}
	}
}

func TestLoadLogisticModel(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "model.yaml")
	os.WriteFile(good, []byte("intercept: 0.5\ncoefficients:\n  price_rank: -2\nthreshold: 0.4\n"), 0644)
	m, err := LoadLogisticModel(good)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if m.Threshold != 0.4 || m.Intercept != 0.5 {
		t.Errorf("unexpected model %+v", m)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("coefficients:\n  shipping_speed: 1\n"), 0644)
	if _, err := LoadLogisticModel(bad); !errors.Is(err, ErrInvalidFeatures) {
		t.Errorf("expected ErrInvalidFeatures for unknown feature, got %v", err)
	}
}

func TestRemoteClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(req.Features) != len(FeatureNames) || req.FeatureNames[0] != "isAmazon" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		label := 0
		if req.Features[7] == 1 {
			label = 1
		}
		json.NewEncoder(w).Encode(Prediction{Label: label, Probability: 0.9})
	}))
	defer srv.Close()

	c := NewRemoteClassifier(srv.URL+"/", time.Second)
	p, err := c.Predict(context.Background(), Features{PriceRank: 1})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if p.Label != 1 || p.Probability != 0.9 {
		t.Errorf("unexpected prediction %+v", p)
	}
	p, err = c.Predict(context.Background(), Features{PriceRank: 2})
	if err != nil || p.Label != 0 {
		t.Errorf("unexpected prediction %+v, %v", p, err)
	}
}

func TestRemoteClassifierErrors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	if _, err := NewRemoteClassifier(failing.URL, time.Second).Predict(context.Background(), Features{}); err == nil {
		t.Errorf("expected error on status 500")
	}

	invalid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label": 3, "probability": 0.2}`))
	}))
	defer invalid.Close()
	_, err := NewRemoteClassifier(invalid.URL, time.Second).Predict(context.Background(), Features{})
	if !errors.Is(err, ErrInvalidPrediction) {
		t.Errorf("expected ErrInvalidPrediction, got %v", err)
	}
}
