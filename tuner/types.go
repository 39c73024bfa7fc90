// tuner/types.go
package tuner

// TrainConfig drives Tuner.Train.
type TrainConfig struct {
	Epochs      int
	Rate        float64
	K           float64 // 0 = calibrate before the first epoch
	ReportEvery int     // epochs between progress reports, 0 = never

	// Checkpointing (optional)
	Checkpointer    Checkpointer
	CheckpointEvery int
	StartEpoch      int // epochs already done when resuming
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:          5000,
		Rate:            0.05,
		ReportEvery:     100,
		CheckpointEvery: 500,
	}
}

// TrainResult summarizes a finished run.
type TrainResult struct {
	K      float64
	Epochs int // last completed epoch
	Error  float64
}

// Snapshot is the complete optimizer state at the end of an epoch.
type Snapshot struct {
	Layout      string  `json:"layout"`
	Epoch       int     `json:"epoch"`
	K           float64 `json:"k"`
	Fingerprint uint64  `json:"fingerprint"`
	Steps       int     `json:"steps"`
	Weights     Params  `json:"weights"`
	Momentum    Params  `json:"momentum"`
	Velocity    Params  `json:"velocity"`
}

// Checkpointer persists snapshots during training.
type Checkpointer interface {
	Save(s *Snapshot) error
}
