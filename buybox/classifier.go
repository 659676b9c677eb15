package buybox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Classifier predicts the Buy Box outcome of a single offer
type Classifier interface {
	Predict(ctx context.Context, f Features) (Prediction, error)
}

// LogisticModel is a serialized linear classifier over the feature columns
type LogisticModel struct {
	Intercept    float64            `yaml:"intercept" json:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients" json:"coefficients"`
	// probability at or above which the label is 1, defaults to 0.5
	Threshold float64 `yaml:"threshold" json:"threshold"`

	once       sync.Once
	weights    []float64
	compileErr error
}

var _ Classifier = &LogisticModel{}

// DefaultLogisticModel favours cheap, consistently cheap and FBA offers
func DefaultLogisticModel() *LogisticModel {
	m := &LogisticModel{
		Intercept: 1.0,
		Coefficients: map[string]float64{
			"isAmazon":           1.5,
			"isFBA":              0.75,
			"avg_price_rank_14d": -0.25,
			"price_rank":         -1.0,
			"price_diff":         -0.5,
		},
		Threshold: 0.5,
	}
	// the default coefficients only use known feature names
	_ = m.compiled()
	return m
}

// LoadLogisticModel reads a model from a YAML file
func LoadLogisticModel(path string) (*LogisticModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m LogisticModel
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if err := m.compiled(); err != nil {
		return nil, err
	}
	return &m, nil
}

// compiled resolves the coefficients into weights once, and is safe for
// concurrent use
func (m *LogisticModel) compiled() error {
	m.once.Do(func() { m.compileErr = m.compile() })
	return m.compileErr
}

func (m *LogisticModel) compile() error {
	if m.Threshold == 0 {
		m.Threshold = 0.5
	}
	if m.Threshold < 0 || m.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v", ErrInvalidFeatures, m.Threshold)
	}
	index := make(map[string]int, len(FeatureNames))
	for i, name := range FeatureNames {
		index[name] = i
	}
	m.weights = make([]float64, len(FeatureNames))
	for name, w := range m.Coefficients {
		i, ok := index[name]
		if !ok {
			return fmt.Errorf("%w: unknown feature %q", ErrInvalidFeatures, name)
		}
		m.weights[i] = w
	}
	return nil
}

func (m *LogisticModel) Predict(_ context.Context, f Features) (Prediction, error) {
	if err := m.compiled(); err != nil {
		return Prediction{}, err
	}
	z := m.Intercept + floats.Dot(m.weights, f.Vector())
	var prob float64
	if z >= 0 {
		prob = 1 / (1 + math.Exp(-z))
	} else {
		e := math.Exp(z)
		prob = e / (1 + e)
	}
	label := 0
	if prob >= m.Threshold {
		label = 1
	}
	return Prediction{Label: label, Probability: prob}, nil
}

// RemoteClassifier calls a model server that hosts the trained pipeline
type RemoteClassifier struct {
	baseURL    string
	httpClient *http.Client
}

var _ Classifier = &RemoteClassifier{}

func NewRemoteClassifier(baseURL string, timeout time.Duration) *RemoteClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type predictRequest struct {
	FeatureNames []string  `json:"feature_names"`
	Features     []float64 `json:"features"`
}

func (r *RemoteClassifier) Predict(ctx context.Context, f Features) (Prediction, error) {
	body, err := json.Marshal(predictRequest{
		FeatureNames: FeatureNames,
		Features:     f.Vector(),
	})
	if err != nil {
		return Prediction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Prediction{}, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(msg))
	}

	var p Prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Prediction{}, err
	}
	return p, nil
}
