// tuner/tuner.go
package tuner

import (
	"context"
	"io"
	"math"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"texel-tuner/attacks"
)

var (
	ErrEmptyDataset        = errors.New("dataset is empty")
	ErrKNotConverged       = errors.New("k calibration did not converge")
	ErrLayoutMismatch      = errors.New("parameter layout mismatch")
	ErrFingerprintMismatch = errors.New("checkpoint belongs to a different dataset")
)

// Config holds everything a Tuner is constructed with.
type Config struct {
	Threads int
	Table   attacks.Table // slider lookups for decoding; nil picks attacks.Default

	KStart   float64 // first k probed by CalibrateK
	KDelta   float64 // finite-difference step
	KGoal    float64 // stop once |slope| is at most this
	KMaxIter int     // 0 = no cap
}

func DefaultConfig() Config {
	return Config{
		Threads: 6,
		KStart:  0.009,
		KDelta:  1e-5,
		KGoal:   1e-6,
	}
}

// Tuner owns the dataset, the weights and the optimizer moments.
type Tuner struct {
	cfg     Config
	codec   *Codec
	data    []DataPoint
	weights Params
	adam    *Adam

	fingerprint uint64
	hashed      int // dataset length fingerprint was computed at
}

// New returns a tuner with zero weights and zero moments. Unset fields of
// cfg take their DefaultConfig values.
func New(cfg Config) *Tuner {
	def := DefaultConfig()
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	if cfg.KStart == 0 {
		cfg.KStart = def.KStart
	}
	if cfg.KDelta == 0 {
		cfg.KDelta = def.KDelta
	}
	if cfg.KGoal == 0 {
		cfg.KGoal = def.KGoal
	}
	return &Tuner{
		cfg:     cfg,
		codec:   NewCodec(cfg.Table),
		weights: NewParams(),
		adam:    NewAdam(NumParams),
	}
}

func (t *Tuner) Config() Config { return t.cfg }

func (t *Tuner) NumDataPoints() int { return len(t.data) }

// Weights returns the live weight vector; callers must not modify it.
func (t *Tuner) Weights() Params { return t.weights }

// SetWeights replaces the weights, e.g. with a previously saved model.
func (t *Tuner) SetWeights(w Params) error {
	if len(w) != NumParams {
		return errors.Wrapf(ErrLayoutMismatch, "got %d weights, want %d", len(w), NumParams)
	}
	copy(t.weights, w)
	return nil
}

// SeedWeights gives every piece-square slot its kind's material value and
// zeroes the rest.
func (t *Tuner) SeedWeights() {
	for i := range t.weights {
		t.weights[i] = S{}
	}
	for kind := P; kind <= K; kind++ {
		v := seedMaterial[kind]
		for sq := 0; sq < 64; sq++ {
			t.weights[PSTStart+64*kind+sq] = S{v, v}
		}
	}
}

// AddPoints appends already decoded points.
func (t *Tuner) AddPoints(points ...DataPoint) {
	t.data = append(t.data, points...)
}

// AddData decodes every record of r and appends it. Nothing is appended
// when a record fails to decode.
func (t *Tuner) AddData(ctx context.Context, r io.Reader) (int, error) {
	points, err := LoadDataset(ctx, r, t.codec)
	if err != nil {
		return 0, err
	}
	t.AddPoints(points...)
	return len(points), nil
}

// Error returns the mean squared error over the dataset at scale k.
func (t *Tuner) Error(k float64) (float64, error) {
	if len(t.data) == 0 {
		return 0, ErrEmptyDataset
	}
	parts, err := parallelReduce(t.data, t.cfg.Threads, func(chunk []DataPoint) (float64, error) {
		sum := 0.0
		for i := range chunk {
			sum += SquaredError(&chunk[i], t.weights, k)
		}
		return sum, nil
	})
	if err != nil {
		return 0, errors.WithMessage(err, "computing error")
	}
	total := 0.0
	for _, p := range parts {
		total += p
	}
	return total / float64(len(t.data)), nil
}

// gradients sums the per-point gradient over the dataset.
func (t *Tuner) gradients(k float64) (Params, error) {
	parts, err := parallelReduce(t.data, t.cfg.Threads, func(chunk []DataPoint) (Params, error) {
		grad := NewParams()
		accumulateGradient(grad, t.weights, chunk, k)
		return grad, nil
	})
	if err != nil {
		return nil, errors.WithMessage(err, "computing gradients")
	}
	grad := NewParams()
	for _, p := range parts {
		grad.Add(p)
	}
	return grad, nil
}

// CalibrateK searches for the k minimizing the mean error, stepping k by
// the normalized central-difference slope until the slope is small enough.
func (t *Tuner) CalibrateK() (float64, error) {
	if len(t.data) == 0 {
		return 0, ErrEmptyDataset
	}
	k, delta := t.cfg.KStart, t.cfg.KDelta
	for iter := 1; ; iter++ {
		right, err := t.Error(k + delta)
		if err != nil {
			return k, err
		}
		left, err := t.Error(k - delta)
		if err != nil {
			return k, err
		}
		slope := (right - left) / (kSlopeScale * 2 * delta)
		klog.V(1).Infof("k %.6f decr %.5f incr %.5f", k, left, right)
		k -= slope
		if math.Abs(slope) <= t.cfg.KGoal {
			break
		}
		if t.cfg.KMaxIter > 0 && iter >= t.cfg.KMaxIter {
			return k, errors.Wrapf(ErrKNotConverged, "after %d iterations, slope %g", iter, slope)
		}
	}
	if klog.V(1).Enabled() {
		e, err := t.Error(k)
		if err != nil {
			return k, err
		}
		klog.Infof("k %.7f error %.5f", k, e)
	}
	return k, nil
}

// RunEpoch applies one full-batch Adam step at scale k.
func (t *Tuner) RunEpoch(k, rate float64) error {
	if len(t.data) == 0 {
		return ErrEmptyDataset
	}
	grad, err := t.gradients(k)
	if err != nil {
		return err
	}
	t.adam.Step(t.weights, grad, -2*k/float64(len(t.data)), rate)
	return nil
}
