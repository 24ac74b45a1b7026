// Package pipeline orchestrates the scan over source categories:
// enumerate, deduplicate, fetch, analyze, and label.
package pipeline

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/in"
	"mailsense_server/core/port/out"
	"mailsense_server/core/service/classification"
	"mailsense_server/core/service/content"
	"mailsense_server/core/service/label"
	"mailsense_server/pkg/apperr"
	"mailsense_server/pkg/logger"
	"mailsense_server/pkg/metrics"
)

// Config holds the orchestrator knobs.
type Config struct {
	MaxPerCategory int64
	Instance       string
}

// Service drives the full pipeline per message. Messages are processed
// strictly one at a time: label resolution is not safe against
// uncoordinated concurrent creation of the same label name.
type Service struct {
	provider out.MailProviderPort
	decoder  *content.Decoder
	rules    *classification.RuleClassifier
	intents  *classification.IntentClassifier
	insights *classification.InsightExtractor
	labels   *label.Service
	reports  out.ReportRepository // nil disables archiving
	cfg      Config
}

// NewService wires the orchestrator.
func NewService(
	provider out.MailProviderPort,
	decoder *content.Decoder,
	rules *classification.RuleClassifier,
	intents *classification.IntentClassifier,
	insights *classification.InsightExtractor,
	labels *label.Service,
	reports out.ReportRepository,
	cfg Config,
) *Service {
	if cfg.MaxPerCategory <= 0 {
		cfg.MaxPerCategory = 20
	}
	return &Service{
		provider: provider,
		decoder:  decoder,
		rules:    rules,
		intents:  intents,
		insights: insights,
		labels:   labels,
		reports:  reports,
		cfg:      cfg,
	}
}

var _ in.PipelineService = (*Service)(nil)

// =============================================================================
// Batch Scan
// =============================================================================

// ProcessAll scans every source category, deduplicates message IDs
// across them, and runs decode → classify → predict → label per
// message. Per-category listing failures skip the category;
// per-message failures land in that message's detail entry. The batch
// itself never fails once started.
func (s *Service) ProcessAll(ctx context.Context, trigger domain.RunTrigger) (*in.BatchResult, error) {
	report := &domain.RunReport{
		ID:        uuid.NewString(),
		Instance:  s.cfg.Instance,
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}

	logger.WithFields(map[string]any{
		"run_id":  report.ID,
		"trigger": string(trigger),
	}).Info("starting category scan")

	seen := make(map[string]struct{})

	for _, category := range domain.ScanCategories {
		refs, err := s.provider.ListMessageRefs(ctx, category, s.cfg.MaxPerCategory)
		if err != nil {
			logger.WithField("category", category).WithError(err).Warn("category listing failed, skipping")
			continue
		}

		for _, ref := range refs {
			if _, dup := seen[ref.ID]; dup {
				continue
			}
			seen[ref.ID] = struct{}{}

			msg, err := s.provider.GetMessage(ctx, ref.ID)
			if err != nil {
				// Fetch failures abandon the rest of the category;
				// already-processed messages are kept.
				logger.WithFields(map[string]any{
					"category":   category,
					"message_id": ref.ID,
				}).WithError(err).Warn("message fetch failed, skipping rest of category")
				break
			}

			report.Details = append(report.Details, s.processMessage(ctx, msg, category))
		}
	}

	report.Finalize(time.Now().UTC())
	metrics.RecordLatency("scan.run", report.FinishedAt.Sub(report.StartedAt))

	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			logger.WithField("run_id", report.ID).WithError(err).Warn("failed to archive run report")
		}
	}

	logger.WithFields(map[string]any{
		"run_id":    report.ID,
		"processed": report.ProcessedCount,
		"labeled":   report.LabeledCount,
		"errors":    report.ErrorCount,
		"duration":  report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("category scan finished")

	return &in.BatchResult{
		RunID:          report.ID,
		ProcessedCount: report.ProcessedCount,
		LabeledCount:   report.LabeledCount,
		ErrorCount:     report.ErrorCount,
		Details:        report.Details,
	}, nil
}

// processMessage runs one message through the full pipeline. Errors
// are captured into the detail entry, never propagated.
func (s *Service) processMessage(ctx context.Context, msg *domain.Message, category string) domain.ProcessedDetail {
	fragments := s.decoder.Decode(msg.Payload)
	signals := s.rules.Classify(fragments)
	text := joinFragments(fragments)

	prediction := s.intents.PredictIntent(ctx, text)
	names := domain.BuildLabelNames(signals, prediction.Label)

	detail := domain.ProcessedDetail{
		MessageID:  msg.ID,
		Category:   category,
		Subject:    msg.Subject,
		From:       msg.From,
		AILabel:    domain.AILabelName(prediction.Label, signals.HasText),
		Confidence: round2(prediction.Confidence),
		Signals:    &signals,
	}
	if signals.HasText {
		detail.Intent = prediction.Label
	}

	if _, err := s.labels.ApplyByName(ctx, msg.ID, names); err != nil {
		detail.Error = err.Error()
		return detail
	}

	detail.AppliedLabels = names
	return detail
}

// =============================================================================
// Single-Message Mode
// =============================================================================

// ProcessLatest runs the pipeline on the most recent inbox message and
// returns the full analysis breakdown, model insights included.
func (s *Service) ProcessLatest(ctx context.Context) (*in.SingleResult, error) {
	msg, err := s.provider.GetLatestMessage(ctx)
	if err != nil {
		return nil, apperr.ProviderError("get latest message", err)
	}

	fragments := s.decoder.Decode(msg.Payload)
	signals := s.rules.Classify(fragments)
	text := joinFragments(fragments)

	prediction := s.intents.PredictIntent(ctx, text)
	names := domain.BuildLabelNames(signals, prediction.Label)

	if _, err := s.labels.ApplyByName(ctx, msg.ID, names); err != nil {
		return nil, err
	}

	result := &in.SingleResult{
		MessageID:          msg.ID,
		ThreadID:           msg.ThreadID,
		From:               msg.From,
		To:                 msg.To,
		Subject:            msg.Subject,
		Date:               msg.Date,
		AppliedLabels:      names,
		AILabel:            domain.AILabelName(prediction.Label, signals.HasText),
		Confidence:         round2(prediction.Confidence),
		RuleClassification: signals,
		SecurityAnalysis: in.SecurityAnalysis{
			Suspicious:        signals.IsSuspicious,
			UrgentLanguage:    signals.HasUrgent,
			MoneyRelated:      signals.IsMoneyRelated,
			PotentialPhishing: signals.PotentialPhishing(),
		},
		Sentiment: s.intents.PredictSentiment(ctx, text),
		Priority:  s.intents.PredictPriority(ctx, text, msg.Subject),
		Keywords:  s.insights.Keywords(text, classification.DefaultMaxKeywords),
		Summary:   s.insights.Summarize(text, classification.DefaultSummaryLength),
	}
	if signals.HasText {
		result.Intent = prediction.Label
	}

	return result, nil
}

func joinFragments(fragments []string) string {
	return strings.TrimSpace(strings.Join(fragments, " "))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
