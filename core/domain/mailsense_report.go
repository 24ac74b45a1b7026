package domain

import "time"

// RunTrigger identifies what started a scan run.
type RunTrigger string

const (
	TriggerAPI       RunTrigger = "api"
	TriggerScheduler RunTrigger = "scheduler"
)

// ProcessedDetail is the per-message outcome of one pipeline pass.
// Created once during orchestration, appended to the run's detail
// list, never mutated afterward.
type ProcessedDetail struct {
	MessageID     string        `json:"message_id"`
	Category      string        `json:"category,omitempty"`
	Subject       string        `json:"subject,omitempty"`
	From          string        `json:"from,omitempty"`
	AppliedLabels []string      `json:"applied_labels,omitempty"`
	AILabel       string        `json:"ai_label,omitempty"`
	Intent        string        `json:"intent,omitempty"`
	Confidence    float64       `json:"confidence"`
	Signals       *SignalResult `json:"signals,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// Failed reports whether the message ended with an error instead of a
// label outcome.
func (d ProcessedDetail) Failed() bool {
	return d.Error != ""
}

// RunReport summarizes one batch scan over all source categories.
type RunReport struct {
	ID             string            `json:"id"`
	Instance       string            `json:"instance,omitempty"`
	Trigger        RunTrigger        `json:"trigger"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
	ProcessedCount int               `json:"processed_count"`
	LabeledCount   int               `json:"labeled_count"`
	ErrorCount     int               `json:"error_count"`
	Details        []ProcessedDetail `json:"details"`
}

// Finalize stamps the end time and recomputes the aggregate counters
// from the detail list.
func (r *RunReport) Finalize(now time.Time) {
	r.FinishedAt = now
	r.ProcessedCount = len(r.Details)
	r.LabeledCount = 0
	r.ErrorCount = 0
	for _, d := range r.Details {
		if d.Failed() {
			r.ErrorCount++
			continue
		}
		r.LabeledCount++
	}
}
