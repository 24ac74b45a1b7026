package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
)

const runCollection = "scan_runs"

// RunAdapter archives batch run reports in MongoDB. Documents carry an
// expires_at field so a TTL index handles retention without a cleanup
// job; DeleteOlderThan remains available for manual pruning.
type RunAdapter struct {
	collection *mongo.Collection
	retention  time.Duration
}

// NewRunAdapter creates a run archive over the given database.
// retention controls how far past FinishedAt a document outlives the
// run before the TTL index removes it.
func NewRunAdapter(db *mongo.Database, retention time.Duration) *RunAdapter {
	return &RunAdapter{
		collection: db.Collection(runCollection),
		retention:  retention,
	}
}

// EnsureIndexes creates the required indexes. Call once at startup.
func (a *RunAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "started_at", Value: -1}},
		},
		{
			// TTL index: expire documents at the time stored in expires_at.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// ===== Document Types =====

type runDocument struct {
	ID             string              `bson:"id"`
	Instance       string              `bson:"instance,omitempty"`
	Trigger        string              `bson:"trigger"`
	StartedAt      time.Time           `bson:"started_at"`
	FinishedAt     time.Time           `bson:"finished_at"`
	ProcessedCount int                 `bson:"processed_count"`
	LabeledCount   int                 `bson:"labeled_count"`
	ErrorCount     int                 `bson:"error_count"`
	Details        []runDetailDocument `bson:"details,omitempty"`
	ExpiresAt      time.Time           `bson:"expires_at"`
}

type runDetailDocument struct {
	MessageID     string          `bson:"message_id"`
	Category      string          `bson:"category,omitempty"`
	Subject       string          `bson:"subject,omitempty"`
	From          string          `bson:"from,omitempty"`
	AppliedLabels []string        `bson:"applied_labels,omitempty"`
	AILabel       string          `bson:"ai_label,omitempty"`
	Intent        string          `bson:"intent,omitempty"`
	Confidence    float64         `bson:"confidence,omitempty"`
	Signals       *signalDocument `bson:"signals,omitempty"`
	Error         string          `bson:"error,omitempty"`
}

type signalDocument struct {
	HasText        bool `bson:"has_text"`
	HasLink        bool `bson:"has_link"`
	IsSuspicious   bool `bson:"is_suspicious"`
	HasUrgent      bool `bson:"has_urgent_language"`
	IsMoneyRelated bool `bson:"is_money_related"`
}

// ===== Repository Operations =====

// Save upserts a run report keyed by its ID.
func (a *RunAdapter) Save(ctx context.Context, report *domain.RunReport) error {
	doc := a.toDocument(report)

	opts := options.Replace().SetUpsert(true)
	_, err := a.collection.ReplaceOne(ctx, bson.M{"id": report.ID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	return nil
}

// GetByID returns the run with the given ID, or nil when absent.
func (a *RunAdapter) GetByID(ctx context.Context, id string) (*domain.RunReport, error) {
	var doc runDocument
	err := a.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}
	return toEntity(&doc), nil
}

// List returns runs sorted newest first plus the total run count.
func (a *RunAdapter) List(ctx context.Context, limit, offset int) ([]*domain.RunReport, int64, error) {
	total, err := a.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count run reports: %w", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := a.collection.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list run reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []*domain.RunReport
	for cursor.Next(ctx) {
		var doc runDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("failed to decode run report: %w", err)
		}
		reports = append(reports, toEntity(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("cursor error: %w", err)
	}

	return reports, total, nil
}

// DeleteOlderThan removes runs started before the cutoff and returns
// how many were deleted.
func (a *RunAdapter) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := a.collection.DeleteMany(ctx, bson.M{
		"started_at": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete old run reports: %w", err)
	}
	return result.DeletedCount, nil
}

// ===== Conversion =====

func (a *RunAdapter) toDocument(report *domain.RunReport) *runDocument {
	doc := &runDocument{
		ID:             report.ID,
		Instance:       report.Instance,
		Trigger:        string(report.Trigger),
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		ProcessedCount: report.ProcessedCount,
		LabeledCount:   report.LabeledCount,
		ErrorCount:     report.ErrorCount,
		ExpiresAt:      report.FinishedAt.Add(a.retention),
	}

	for _, d := range report.Details {
		doc.Details = append(doc.Details, toDetailDocument(d))
	}
	return doc
}

func toDetailDocument(d domain.ProcessedDetail) runDetailDocument {
	detail := runDetailDocument{
		MessageID:     d.MessageID,
		Category:      d.Category,
		Subject:       d.Subject,
		From:          d.From,
		AppliedLabels: d.AppliedLabels,
		AILabel:       d.AILabel,
		Intent:        d.Intent,
		Confidence:    d.Confidence,
		Error:         d.Error,
	}
	if d.Signals != nil {
		detail.Signals = &signalDocument{
			HasText:        d.Signals.HasText,
			HasLink:        d.Signals.HasLink,
			IsSuspicious:   d.Signals.IsSuspicious,
			HasUrgent:      d.Signals.HasUrgent,
			IsMoneyRelated: d.Signals.IsMoneyRelated,
		}
	}
	return detail
}

func toEntity(doc *runDocument) *domain.RunReport {
	report := &domain.RunReport{
		ID:             doc.ID,
		Instance:       doc.Instance,
		Trigger:        domain.RunTrigger(doc.Trigger),
		StartedAt:      doc.StartedAt,
		FinishedAt:     doc.FinishedAt,
		ProcessedCount: doc.ProcessedCount,
		LabeledCount:   doc.LabeledCount,
		ErrorCount:     doc.ErrorCount,
	}

	for _, d := range doc.Details {
		report.Details = append(report.Details, toDetailEntity(d))
	}
	return report
}

func toDetailEntity(d runDetailDocument) domain.ProcessedDetail {
	detail := domain.ProcessedDetail{
		MessageID:     d.MessageID,
		Category:      d.Category,
		Subject:       d.Subject,
		From:          d.From,
		AppliedLabels: d.AppliedLabels,
		AILabel:       d.AILabel,
		Intent:        d.Intent,
		Confidence:    d.Confidence,
		Error:         d.Error,
	}
	if d.Signals != nil {
		detail.Signals = &domain.SignalResult{
			HasText:        d.Signals.HasText,
			HasLink:        d.Signals.HasLink,
			IsSuspicious:   d.Signals.IsSuspicious,
			HasUrgent:      d.Signals.HasUrgent,
			IsMoneyRelated: d.Signals.IsMoneyRelated,
		}
	}
	return detail
}

// ===== Interface Compliance =====

var _ out.ReportRepository = (*RunAdapter)(nil)
