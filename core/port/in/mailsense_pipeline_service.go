package in

import (
	"context"

	"mailsense_server/core/domain"
)

// PipelineService drives the signal-extraction and label-reconciliation
// pipeline.
type PipelineService interface {
	// ProcessAll enumerates every source category, deduplicates message
	// IDs across them, and runs the full pipeline per message. Never
	// fails wholesale: per-message errors land in the detail list.
	ProcessAll(ctx context.Context, trigger domain.RunTrigger) (*BatchResult, error)

	// ProcessLatest runs the pipeline on the most recent inbox message
	// and returns the full analysis breakdown.
	ProcessLatest(ctx context.Context) (*SingleResult, error)
}

// RunQueryService reads archived batch runs.
type RunQueryService interface {
	GetRun(ctx context.Context, id string) (*domain.RunReport, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*domain.RunReport, int64, error)
}

// BatchResult is the aggregate outcome of one multi-category scan.
type BatchResult struct {
	RunID          string                   `json:"run_id"`
	ProcessedCount int                      `json:"processed_count"`
	LabeledCount   int                      `json:"labeled_count"`
	ErrorCount     int                      `json:"error_count"`
	Details        []domain.ProcessedDetail `json:"details"`
}

// SecurityAnalysis is the security-focused view of a signal result.
type SecurityAnalysis struct {
	Suspicious        bool `json:"suspicious"`
	UrgentLanguage    bool `json:"urgent_language"`
	MoneyRelated      bool `json:"money_related"`
	PotentialPhishing bool `json:"potential_phishing"`
}

// SingleResult is the full breakdown for one message.
type SingleResult struct {
	MessageID          string              `json:"message_id"`
	ThreadID           string              `json:"thread_id,omitempty"`
	From               string              `json:"from,omitempty"`
	To                 string              `json:"to,omitempty"`
	Subject            string              `json:"subject,omitempty"`
	Date               string              `json:"date,omitempty"`
	AppliedLabels      []string            `json:"applied_labels"`
	AILabel            string              `json:"ai_label"`
	Intent             string              `json:"intent,omitempty"`
	Confidence         float64             `json:"confidence"`
	RuleClassification domain.SignalResult `json:"rule_classification"`
	SecurityAnalysis   SecurityAnalysis    `json:"security_analysis"`
	Sentiment          domain.Prediction   `json:"sentiment"`
	Priority           domain.Prediction   `json:"priority"`
	Keywords           []string            `json:"keywords,omitempty"`
	Summary            string              `json:"summary,omitempty"`
}
