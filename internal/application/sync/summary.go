package sync

import (
	"time"
)

// ProductOutcome is the terminal state of one product within a run.
type ProductOutcome string

const (
	OutcomeCreated   ProductOutcome = "created"
	OutcomeUpdated   ProductOutcome = "updated"
	OutcomeSkipped   ProductOutcome = "skipped"
	OutcomePartial   ProductOutcome = "partial"
	OutcomeError     ProductOutcome = "error"
	OutcomeCancelled ProductOutcome = "cancelled"
)

// Skip reasons recorded on skipped products.
const (
	SkipEmpty     = "SkippedEmpty"
	SkipZeroStock = "SkippedZeroStock"
	SkipUnchanged = "SkippedUnchanged"
)

// maxErrorSamples bounds the error excerpt carried in a summary.
const maxErrorSamples = 10

// RunSummary is the structured result of one sync run.
type RunSummary struct {
	SyncID           string        `json:"sync_id"`
	Kind             string        `json:"kind"`
	StartedAt        time.Time     `json:"started_at"`
	Processed        int           `json:"processed"`
	Created          int           `json:"created"`
	Updated          int           `json:"updated"`
	Skipped          int           `json:"skipped"`
	Errors           int           `json:"errors"`
	Partial          int           `json:"partial"`
	Cancelled        int           `json:"cancelled"`
	InventoryUpdated int           `json:"inventory_updated"`
	InventoryFailed  int           `json:"inventory_failed"`
	Duration         time.Duration `json:"duration"`
	ErrorSamples     []string      `json:"error_samples"`
	// MaxLastUpdated is the greatest source timestamp observed; it becomes
	// the new watermark on a successful run.
	MaxLastUpdated time.Time `json:"max_last_updated"`
}

// Record folds one product outcome into the summary.
func (s *RunSummary) Record(outcome ProductOutcome, errSample string) {
	s.Processed++
	switch outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomePartial:
		s.Partial++
	case OutcomeError:
		s.Errors++
	case OutcomeCancelled:
		s.Cancelled++
	}
	if errSample != "" && len(s.ErrorSamples) < maxErrorSamples {
		s.ErrorSamples = append(s.ErrorSamples, errSample)
	}
}

// ObserveLastUpdated keeps the watermark candidate current.
func (s *RunSummary) ObserveLastUpdated(t time.Time) {
	if t.After(s.MaxLastUpdated) {
		s.MaxLastUpdated = t
	}
}

// SuccessRate is the ratio of non-failed products to processed products.
// Cancelled products do not count as failures. An empty run is fully
// successful.
func (s *RunSummary) SuccessRate() float64 {
	attempted := s.Processed - s.Cancelled
	if attempted <= 0 {
		return 1.0
	}
	return float64(attempted-s.Errors) / float64(attempted)
}
