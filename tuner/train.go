// tuner/train.go
package tuner

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Train calibrates k when cfg.K is 0, then runs epochs cfg.StartEpoch+1
// through cfg.Epochs. Cancellation is checked between epochs.
func (t *Tuner) Train(ctx context.Context, cfg TrainConfig) (TrainResult, error) {
	res := TrainResult{K: cfg.K, Epochs: cfg.StartEpoch}
	if len(t.data) == 0 {
		return res, ErrEmptyDataset
	}
	if res.K == 0 {
		klog.Infof("Optimising k over %s positions...", humanize.Comma(int64(len(t.data))))
		k, err := t.CalibrateK()
		switch {
		case errors.Is(err, ErrKNotConverged):
			klog.Warningf("%v; continuing with k = %.7f", err, k)
		case err != nil:
			return res, err
		}
		res.K = k
		klog.Infof("k = %.7f", k)
	}

	timer := time.Now()
	for epoch := cfg.StartEpoch + 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := t.RunEpoch(res.K, cfg.Rate); err != nil {
			return res, errors.WithMessagef(err, "epoch %d", epoch)
		}
		res.Epochs = epoch

		if cfg.ReportEvery > 0 && epoch%cfg.ReportEvery == 0 {
			elapsed := time.Since(timer).Seconds()
			pps := float64(len(t.data)*cfg.ReportEvery) / elapsed
			e, err := t.Error(res.K)
			if err != nil {
				return res, err
			}
			klog.Infof("epoch %d error %.5f time %.2fs pos/sec %s", epoch, e, elapsed, humanize.Comma(int64(pps)))
			timer = time.Now()
		}
		if cfg.Checkpointer != nil && cfg.CheckpointEvery > 0 && epoch%cfg.CheckpointEvery == 0 {
			if err := cfg.Checkpointer.Save(t.Snapshot(epoch, res.K)); err != nil {
				return res, errors.WithMessagef(err, "checkpoint at epoch %d", epoch)
			}
			klog.V(1).Infof("checkpoint saved at epoch %d", epoch)
		}
	}

	e, err := t.Error(res.K)
	if err != nil {
		return res, err
	}
	res.Error = e
	return res, nil
}

// Snapshot copies the optimizer state.
func (t *Tuner) Snapshot(epoch int, k float64) *Snapshot {
	return &Snapshot{
		Layout:      modelLayoutTag,
		Epoch:       epoch,
		K:           k,
		Fingerprint: t.Fingerprint(),
		Steps:       t.adam.T,
		Weights:     t.weights.Clone(),
		Momentum:    t.adam.M.Clone(),
		Velocity:    t.adam.V.Clone(),
	}
}

// Restore loads a snapshot taken on the same dataset.
func (t *Tuner) Restore(s *Snapshot) error {
	if s.Layout != modelLayoutTag {
		return errors.Wrapf(ErrLayoutMismatch, "snapshot layout %q, want %q", s.Layout, modelLayoutTag)
	}
	for _, p := range []Params{s.Weights, s.Momentum, s.Velocity} {
		if len(p) != NumParams {
			return errors.Wrapf(ErrLayoutMismatch, "snapshot vector of length %d, want %d", len(p), NumParams)
		}
	}
	if fp := t.Fingerprint(); s.Fingerprint != fp {
		return errors.Wrapf(ErrFingerprintMismatch, "snapshot %016x, dataset %016x", s.Fingerprint, fp)
	}
	copy(t.weights, s.Weights)
	copy(t.adam.M, s.Momentum)
	copy(t.adam.V, s.Velocity)
	t.adam.T = s.Steps
	return nil
}

// Fingerprint hashes the dataset contents in order. The value is cached
// until more points are added.
func (t *Tuner) Fingerprint() uint64 {
	if t.hashed == len(t.data) && t.fingerprint != 0 {
		return t.fingerprint
	}
	h := xxhash.New()
	var buf [8]byte
	for i := range t.data {
		p := &t.data[i]
		for side := White; side <= Black; side++ {
			binary.LittleEndian.PutUint16(buf[:2], uint16(len(p.Active[side])))
			_, _ = h.Write(buf[:2])
			for _, id := range p.Active[side] {
				binary.LittleEndian.PutUint16(buf[:2], id)
				_, _ = h.Write(buf[:2])
			}
		}
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Phase))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Result))
		_, _ = h.Write(buf[:])
	}
	t.fingerprint, t.hashed = h.Sum64(), len(t.data)
	return t.fingerprint
}
