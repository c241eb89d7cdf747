package ml

import "fmt"

// Supported evaluation metric names
const (
	MetricLogLoss = "logloss"
	MetricError   = "error"
	MetricAUC     = "auc"
)

// Hyperparameters configures the gradient-boosted tree classifier
type Hyperparameters struct {
	NEstimators     int     `yaml:"n_estimators" json:"n_estimators"`
	MaxDepth        int     `yaml:"max_depth" json:"max_depth"`
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate"`
	RandomState     int64   `yaml:"random_state" json:"random_state"`
	Subsample       float64 `yaml:"subsample" json:"subsample"`
	ColsampleByTree float64 `yaml:"colsample_bytree" json:"colsample_bytree"`
	EvalMetric      string  `yaml:"eval_metric" json:"eval_metric"`
	Lambda          float64 `yaml:"lambda" json:"lambda"`                     // L2 regularisation on leaf weights
	MinChildWeight  float64 `yaml:"min_child_weight" json:"min_child_weight"` // minimum hessian sum per child
}

// DefaultHyperparameters returns the default classifier configuration
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		NEstimators:     100,
		MaxDepth:        6,
		LearningRate:    0.1,
		RandomState:     42,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		EvalMetric:      MetricLogLoss,
		Lambda:          1.0,
		MinChildWeight:  1.0,
	}
}

// Validate checks that every hyperparameter is in range
func (p Hyperparameters) Validate() error {
	if p.NEstimators <= 0 {
		return fmt.Errorf("n_estimators must be positive, got %d", p.NEstimators)
	}
	if p.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	}
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0, 1], got %v", p.LearningRate)
	}
	if p.RandomState < 0 {
		return fmt.Errorf("random_state must be non-negative, got %d", p.RandomState)
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return fmt.Errorf("subsample must be in (0, 1], got %v", p.Subsample)
	}
	if p.ColsampleByTree <= 0 || p.ColsampleByTree > 1 {
		return fmt.Errorf("colsample_bytree must be in (0, 1], got %v", p.ColsampleByTree)
	}
	if p.Lambda < 0 {
		return fmt.Errorf("lambda must be non-negative, got %v", p.Lambda)
	}
	if p.MinChildWeight < 0 {
		return fmt.Errorf("min_child_weight must be non-negative, got %v", p.MinChildWeight)
	}
	switch p.EvalMetric {
	case MetricLogLoss, MetricError, MetricAUC:
	default:
		return fmt.Errorf("unsupported eval_metric %q", p.EvalMetric)
	}
	return nil
}
