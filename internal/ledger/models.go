package ledger

import "time"

// RunStatus tracks the lifecycle of a batch run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunAborted   RunStatus = "aborted"
)

// AssetStatus is the outcome recorded for one asset.
type AssetStatus string

const (
	AssetProcessed AssetStatus = "processed"
	AssetSkipped   AssetStatus = "skipped"
	AssetFailed    AssetStatus = "failed"
)

// Run is one invocation of the batch pipeline.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Language   string
	Roots      []string
	Summary
	Error string
}

// Summary counts asset outcomes for a run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
}

// Total returns the number of assets the run looked at.
func (s Summary) Total() int {
	return s.Processed + s.Skipped + s.Failed
}

// AssetRecord is the outcome for one asset within a run.
type AssetRecord struct {
	RunID        string
	Path         string
	ArtifactPath string
	Status       AssetStatus
	Stage        string
	ErrorKind    string
	Error        string
	Tokens       int
	Captions     int
	Duration     time.Duration
	RecordedAt   time.Time
}
