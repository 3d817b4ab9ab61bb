// Package calibrate fuses the scorer's output with rule-based trust signals
// into a single rule confidence by weighted pooling in log-odds space.
package calibrate

import (
	"math"

	"github.com/hoanghai1803/newspulse/internal/classify"
)

const epsilon = 1e-6

// Options holds the pooling parameters. The zero value is not usable; start
// from DefaultOptions.
type Options struct {
	// K is the steepness of the intensity logistic, S0 its center on the
	// [0,1] magnitude scale.
	K  float64
	S0 float64

	WeightIntensity float64
	WeightModel     float64
	WeightSource    float64
	WeightEvent     float64
	WeightPrice     float64

	// ReturnScale is the absolute return at which the price signal reaches
	// tanh(1).
	ReturnScale float64
}

// DefaultOptions returns the production calibration parameters.
func DefaultOptions() Options {
	return Options{
		K:               4,
		S0:              0.5,
		WeightIntensity: 1.0,
		WeightModel:     1.0,
		WeightSource:    0.7,
		WeightEvent:     0.8,
		WeightPrice:     0.5,
		ReturnScale:     0.02,
	}
}

// Input is one calibration request.
type Input struct {
	Score           int
	ConfidenceModel float64
	Source          classify.SourceTier
	Event           classify.EventCategory

	// ShortReturnAbs is an optional absolute short-horizon market return.
	ShortReturnAbs *float64
}

// Components exposes the per-signal probabilities that went into a result.
type Components struct {
	Intensity float64  `json:"p_intensity"`
	Model     float64  `json:"p_model"`
	Source    float64  `json:"p_source"`
	Event     float64  `json:"p_event"`
	Price     *float64 `json:"p_price,omitempty"`
}

// Result is the calibrated output.
type Result struct {
	ConfidenceRule float64
	PseudoScore    int
	Components     Components
}

// Calibrator is stateless; the same input always yields the same result.
type Calibrator struct {
	opts Options
}

// New creates a Calibrator with the given options.
func New(opts Options) *Calibrator {
	return &Calibrator{opts: opts}
}

// Default creates a Calibrator with DefaultOptions.
func Default() *Calibrator {
	return New(DefaultOptions())
}

// Calibrate computes the rule confidence and the dampened pseudo score.
func (c *Calibrator) Calibrate(in Input) Result {
	score := ClampScore(in.Score)
	mag := math.Abs(float64(score)) / 100

	comp := Components{
		Intensity: clamp01(sigmoid(c.opts.K * (mag - c.opts.S0))),
		Model:     modelProbability(in.ConfidenceModel),
		Source:    SourceTrust(in.Source),
		Event:     EventWeight(in.Event),
	}

	type part struct{ p, w float64 }
	parts := []part{
		{comp.Intensity, c.opts.WeightIntensity},
		{comp.Model, c.opts.WeightModel},
		{comp.Source, c.opts.WeightSource},
		{comp.Event, c.opts.WeightEvent},
	}
	if in.ShortReturnAbs != nil && !math.IsNaN(*in.ShortReturnAbs) {
		p := clamp01(0.5 + 0.5*math.Tanh(math.Abs(*in.ShortReturnAbs)/c.opts.ReturnScale))
		comp.Price = &p
		parts = append(parts, part{p, c.opts.WeightPrice})
	}

	var num, den float64
	for _, pt := range parts {
		pp := math.Min(1-epsilon, math.Max(epsilon, pt.p))
		num += pt.w * logit(pp)
		den += pt.w
	}
	rule := clamp01(sigmoid(num / math.Max(den, epsilon)))

	return Result{
		ConfidenceRule: rule,
		PseudoScore:    Dampen(score, rule),
		Components:     comp,
	}
}

// Dampen shrinks score toward zero in proportion to (1 - confidence). The
// magnitude never grows and the sign never flips.
func Dampen(score int, confidence float64) int {
	score = ClampScore(score)
	if score == 0 {
		return 0
	}
	factor := 0.5 + clamp01(confidence)/2
	mag := int(math.Round(math.Abs(float64(score)) * factor))
	if score < 0 {
		return -mag
	}
	return mag
}

// ClampScore bounds a score to [-100, 100].
func ClampScore(score int) int {
	return max(-100, min(100, score))
}

// Clamp01 bounds v to [0, 1]; NaN maps to 0.
func Clamp01(v float64) float64 {
	return clamp01(v)
}

func modelProbability(conf float64) float64 {
	if math.IsNaN(conf) || math.IsInf(conf, 0) {
		return 0.5
	}
	return clamp01(conf)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
