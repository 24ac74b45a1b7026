package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
	"mailsense_server/core/service/classification"
	"mailsense_server/core/service/content"
	"mailsense_server/core/service/label"
	"mailsense_server/pkg/apperr"
)

// =============================================================================
// Fakes
// =============================================================================

type pipelineProvider struct {
	refs      map[string][]domain.MessageRef
	messages  map[string]*domain.Message
	listErrs  map[string]error
	getErrs   map[string]error
	latest    *domain.Message
	latestErr error

	labels     []domain.Label
	nextLabel  int
	applyFails map[string]int
	applied    map[string][]string

	getCalls []string
}

var _ out.MailProviderPort = (*pipelineProvider)(nil)

func newPipelineProvider() *pipelineProvider {
	return &pipelineProvider{
		refs:       make(map[string][]domain.MessageRef),
		messages:   make(map[string]*domain.Message),
		listErrs:   make(map[string]error),
		getErrs:    make(map[string]error),
		applyFails: make(map[string]int),
		applied:    make(map[string][]string),
	}
}

func (p *pipelineProvider) add(category string, msg *domain.Message) {
	p.refs[category] = append(p.refs[category], domain.MessageRef{ID: msg.ID, ThreadID: msg.ThreadID})
	p.messages[msg.ID] = msg
}

func (p *pipelineProvider) ListMessageRefs(_ context.Context, category string, limit int64) ([]domain.MessageRef, error) {
	if err := p.listErrs[category]; err != nil {
		return nil, err
	}
	refs := p.refs[category]
	if int64(len(refs)) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func (p *pipelineProvider) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	p.getCalls = append(p.getCalls, id)
	if err := p.getErrs[id]; err != nil {
		return nil, err
	}
	msg, ok := p.messages[id]
	if !ok {
		return nil, errors.New("no such message")
	}
	return msg, nil
}

func (p *pipelineProvider) GetLatestMessage(context.Context) (*domain.Message, error) {
	if p.latestErr != nil {
		return nil, p.latestErr
	}
	return p.latest, nil
}

func (p *pipelineProvider) ListLabels(context.Context) ([]domain.Label, error) {
	return append([]domain.Label(nil), p.labels...), nil
}

func (p *pipelineProvider) CreateLabel(_ context.Context, name string) (*domain.Label, error) {
	p.nextLabel++
	l := domain.Label{ID: fmt.Sprintf("Label_%d", p.nextLabel), Name: name}
	p.labels = append(p.labels, l)
	return &l, nil
}

func (p *pipelineProvider) ApplyLabels(_ context.Context, messageID string, labelIDs []string) error {
	if n := p.applyFails[messageID]; n > 0 {
		p.applyFails[messageID] = n - 1
		return errors.New("apply rejected")
	}
	p.applied[messageID] = append([]string(nil), labelIDs...)
	return nil
}

type recordingReports struct {
	saved   []*domain.RunReport
	saveErr error
}

var _ out.ReportRepository = (*recordingReports)(nil)

func (r *recordingReports) Save(_ context.Context, report *domain.RunReport) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, report)
	return nil
}

func (r *recordingReports) GetByID(context.Context, string) (*domain.RunReport, error) {
	return nil, nil
}

func (r *recordingReports) List(context.Context, int, int) ([]*domain.RunReport, int64, error) {
	return nil, 0, nil
}

func (r *recordingReports) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// templateZeroShot answers with a fixed prediction per hypothesis
// template, so intent, sentiment, and priority can be told apart.
type templateZeroShot struct {
	byTemplate map[string]domain.Prediction
}

func (s *templateZeroShot) Rank(_ context.Context, _ string, _ []string, template string) ([]domain.Prediction, error) {
	p, ok := s.byTemplate[template]
	if !ok {
		return nil, errors.New("unexpected hypothesis template")
	}
	return []domain.Prediction{p}, nil
}

func textMessage(id, subject, from, text string) *domain.Message {
	return &domain.Message{
		ID:      id,
		Subject: subject,
		From:    from,
		Payload: &domain.BodyPart{
			MimeType: "text/plain",
			Data:     base64.RawURLEncoding.EncodeToString([]byte(text)),
		},
	}
}

func newTestService(p *pipelineProvider, reports out.ReportRepository, zeroShot out.ZeroShotClassifier, maxPerCategory int64) *Service {
	return NewService(
		p,
		content.NewDecoder(),
		classification.NewRuleClassifier(),
		classification.NewIntentClassifier(zeroShot, nil, 0),
		classification.NewInsightExtractor(),
		label.NewService(p),
		reports,
		Config{MaxPerCategory: maxPerCategory, Instance: "test-instance"},
	)
}

// =============================================================================
// Batch Scan
// =============================================================================

func TestProcessAllDeduplicatesAcrossCategories(t *testing.T) {
	provider := newPipelineProvider()
	shared := textMessage("m1", "Hello", "a@example.com", "Just saying hi")
	provider.add("INBOX", shared)
	provider.add("CATEGORY_PERSONAL", shared)
	provider.add("CATEGORY_PERSONAL", textMessage("m2", "Recipes", "b@example.com", "Weekly gardening notes"))

	svc := newTestService(provider, nil, nil, 10)

	result, err := svc.ProcessAll(context.Background(), domain.TriggerAPI)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}

	if result.ProcessedCount != 2 {
		t.Fatalf("ProcessedCount = %d, want 2", result.ProcessedCount)
	}
	if result.Details[0].MessageID != "m1" || result.Details[0].Category != "INBOX" {
		t.Errorf("first detail = %s/%s, want m1/INBOX", result.Details[0].MessageID, result.Details[0].Category)
	}

	fetched := map[string]int{}
	for _, id := range provider.getCalls {
		fetched[id]++
	}
	if fetched["m1"] != 1 {
		t.Errorf("m1 fetched %d times, want exactly 1", fetched["m1"])
	}
}

func TestProcessAllSkipsFailedCategory(t *testing.T) {
	provider := newPipelineProvider()
	provider.listErrs["INBOX"] = errors.New("quota exceeded")
	provider.add("CATEGORY_PERSONAL", textMessage("m2", "Hi", "a@example.com", "See you soon"))

	svc := newTestService(provider, nil, nil, 10)

	result, err := svc.ProcessAll(context.Background(), domain.TriggerAPI)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if result.ProcessedCount != 1 {
		t.Fatalf("ProcessedCount = %d, want 1", result.ProcessedCount)
	}
	if result.Details[0].MessageID != "m2" {
		t.Errorf("detail message = %s, want m2", result.Details[0].MessageID)
	}
	if result.ErrorCount != 0 {
		t.Errorf("ErrorCount = %d, want 0", result.ErrorCount)
	}
}

func TestProcessAllAbandonsCategoryOnFetchFailure(t *testing.T) {
	provider := newPipelineProvider()
	provider.add("INBOX", textMessage("m1", "One", "a@example.com", "first"))
	provider.add("INBOX", textMessage("m2", "Two", "a@example.com", "second"))
	provider.add("INBOX", textMessage("m3", "Three", "a@example.com", "third"))
	provider.getErrs["m2"] = errors.New("transient fetch failure")
	provider.add("CATEGORY_PERSONAL", textMessage("m4", "Four", "b@example.com", "fourth"))

	svc := newTestService(provider, nil, nil, 10)

	result, err := svc.ProcessAll(context.Background(), domain.TriggerAPI)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}

	var gotIDs []string
	for _, d := range result.Details {
		gotIDs = append(gotIDs, d.MessageID)
	}
	wantIDs := []string{"m1", "m4"}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("processed IDs = %v, want %v", gotIDs, wantIDs)
	}

	wantCalls := []string{"m1", "m2", "m4"}
	if !reflect.DeepEqual(provider.getCalls, wantCalls) {
		t.Errorf("fetch calls = %v, want %v", provider.getCalls, wantCalls)
	}
}

func TestProcessAllCapturesPerMessageErrors(t *testing.T) {
	provider := newPipelineProvider()
	provider.add("INBOX", textMessage("m1", "One", "a@example.com", "first"))
	provider.add("INBOX", textMessage("m2", "Two", "a@example.com", "second"))
	provider.add("INBOX", textMessage("m3", "Three", "a@example.com", "third"))
	provider.applyFails["m2"] = 2 // both attempts fail

	svc := newTestService(provider, nil, nil, 10)

	result, err := svc.ProcessAll(context.Background(), domain.TriggerAPI)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}

	if result.ProcessedCount != 3 || result.LabeledCount != 2 || result.ErrorCount != 1 {
		t.Fatalf("counts = %d/%d/%d, want 3/2/1",
			result.ProcessedCount, result.LabeledCount, result.ErrorCount)
	}

	failed := result.Details[1]
	if failed.MessageID != "m2" {
		t.Fatalf("failed detail = %s, want m2", failed.MessageID)
	}
	if failed.Error == "" {
		t.Error("failed detail has empty error")
	}
	if len(failed.AppliedLabels) != 0 {
		t.Errorf("failed detail AppliedLabels = %v, want none", failed.AppliedLabels)
	}
	if len(provider.applied["m1"]) == 0 || len(provider.applied["m3"]) == 0 {
		t.Error("neighboring messages were not labeled")
	}
}

func TestProcessAllBuildsPhishingLabelSet(t *testing.T) {
	provider := newPipelineProvider()
	provider.add("INBOX", textMessage("m1", "Account notice", "alerts@example.com",
		"URGENT: Your bank account has been suspended. Verify your account immediately."))

	svc := newTestService(provider, nil, nil, 10)

	result, err := svc.ProcessAll(context.Background(), domain.TriggerAPI)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}

	detail := result.Details[0]
	wantLabels := []string{
		domain.LabelTextOnly,
		domain.LabelPotentialPhishing,
		domain.LabelUrgentLanguage,
		domain.LabelMoneyRelated,
		"AI:Unknown",
	}
	if !reflect.DeepEqual(detail.AppliedLabels, wantLabels) {
		t.Errorf("AppliedLabels = %v, want %v", detail.AppliedLabels, wantLabels)
	}
	if detail.AILabel != "AI:Unknown" {
		t.Errorf("AILabel = %q, want AI:Unknown", detail.AILabel)
	}
	if got := len(provider.applied["m1"]); got != len(wantLabels) {
		t.Errorf("applied %d label IDs, want %d", got, len(wantLabels))
	}
}

func TestProcessAllRespectsPerCategoryLimit(t *testing.T) {
	provider := newPipelineProvider()
	provider.add("INBOX", textMessage("m1", "One", "a@example.com", "first"))
	provider.add("INBOX", textMessage("m2", "Two", "a@example.com", "second"))

	svc := newTestService(provider, nil, nil, 1)

	result, err := svc.ProcessAll(context.Background(), domain.TriggerAPI)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if result.ProcessedCount != 1 {
		t.Fatalf("ProcessedCount = %d, want 1", result.ProcessedCount)
	}
	if result.Details[0].MessageID != "m1" {
		t.Errorf("processed message = %s, want m1", result.Details[0].MessageID)
	}
}

func TestProcessAllArchivesRun(t *testing.T) {
	provider := newPipelineProvider()
	provider.add("INBOX", textMessage("m1", "One", "a@example.com", "first"))
	provider.add("CATEGORY_SOCIAL", textMessage("m2", "Two", "b@example.com", "second"))
	reports := &recordingReports{}

	svc := newTestService(provider, reports, nil, 10)

	result, err := svc.ProcessAll(context.Background(), domain.TriggerScheduler)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}

	if len(reports.saved) != 1 {
		t.Fatalf("saved %d reports, want 1", len(reports.saved))
	}
	saved := reports.saved[0]
	if saved.ID != result.RunID {
		t.Errorf("saved run ID = %s, want %s", saved.ID, result.RunID)
	}
	if saved.Trigger != domain.TriggerScheduler {
		t.Errorf("saved trigger = %s, want scheduler", saved.Trigger)
	}
	if saved.Instance != "test-instance" {
		t.Errorf("saved instance = %s, want test-instance", saved.Instance)
	}
	if saved.ProcessedCount != 2 || saved.LabeledCount != 2 {
		t.Errorf("saved counts = %d/%d, want 2/2", saved.ProcessedCount, saved.LabeledCount)
	}
	if saved.FinishedAt.Before(saved.StartedAt) {
		t.Error("FinishedAt precedes StartedAt")
	}
}

func TestProcessAllToleratesArchiveFailure(t *testing.T) {
	provider := newPipelineProvider()
	provider.add("INBOX", textMessage("m1", "One", "a@example.com", "first"))
	reports := &recordingReports{saveErr: errors.New("mongo down")}

	svc := newTestService(provider, reports, nil, 10)

	result, err := svc.ProcessAll(context.Background(), domain.TriggerAPI)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v, want nil despite archive failure", err)
	}
	if result.ProcessedCount != 1 {
		t.Errorf("ProcessedCount = %d, want 1", result.ProcessedCount)
	}
}

// =============================================================================
// Single-Message Mode
// =============================================================================

func TestProcessLatest(t *testing.T) {
	provider := newPipelineProvider()
	provider.latest = textMessage("m9", "Invoice #42", "billing@example.com",
		"Please review the attached invoice. Payment is due by Friday. Thanks for your business.")
	provider.latest.ThreadID = "t9"
	provider.latest.To = "me@example.com"
	provider.latest.Date = "Fri, 21 Aug 2026 09:00:00 +0000"

	zeroShot := &templateZeroShot{byTemplate: map[string]domain.Prediction{
		domain.HypothesisIntent:    {Label: "work", Confidence: 0.874},
		domain.HypothesisSentiment: {Label: "neutral", Confidence: 0.61},
		domain.HypothesisPriority:  {Label: "high", Confidence: 0.9},
	}}

	svc := newTestService(provider, nil, zeroShot, 10)

	result, err := svc.ProcessLatest(context.Background())
	if err != nil {
		t.Fatalf("ProcessLatest() error = %v", err)
	}

	if result.MessageID != "m9" || result.ThreadID != "t9" {
		t.Errorf("message = %s/%s, want m9/t9", result.MessageID, result.ThreadID)
	}
	if result.Intent != "work" {
		t.Errorf("Intent = %q, want work", result.Intent)
	}
	if result.Confidence != 0.87 {
		t.Errorf("Confidence = %v, want 0.87", result.Confidence)
	}
	if result.AILabel != "AI:Work" {
		t.Errorf("AILabel = %q, want AI:Work", result.AILabel)
	}

	wantLabels := []string{domain.LabelTextOnly, domain.LabelMoneyRelated, "AI:Work"}
	if !reflect.DeepEqual(result.AppliedLabels, wantLabels) {
		t.Errorf("AppliedLabels = %v, want %v", result.AppliedLabels, wantLabels)
	}

	if result.SecurityAnalysis.Suspicious || result.SecurityAnalysis.UrgentLanguage ||
		result.SecurityAnalysis.PotentialPhishing || !result.SecurityAnalysis.MoneyRelated {
		t.Errorf("SecurityAnalysis = %+v, want money-related only", result.SecurityAnalysis)
	}

	if result.Sentiment.Label != "neutral" {
		t.Errorf("Sentiment = %q, want neutral", result.Sentiment.Label)
	}
	if result.Priority.Label != "high" {
		t.Errorf("Priority = %q, want high", result.Priority.Label)
	}

	wantKeywords := []string{"please", "review", "attached", "invoice", "payment"}
	if !reflect.DeepEqual(result.Keywords, wantKeywords) {
		t.Errorf("Keywords = %v, want %v", result.Keywords, wantKeywords)
	}
	wantSummary := "Please review the attached invoice. Payment is due by Friday. Thanks for your business."
	if result.Summary != wantSummary {
		t.Errorf("Summary = %q, want %q", result.Summary, wantSummary)
	}
}

func TestProcessLatestProviderFailure(t *testing.T) {
	provider := newPipelineProvider()
	provider.latestErr = errors.New("mailbox unreachable")

	svc := newTestService(provider, nil, nil, 10)

	_, err := svc.ProcessLatest(context.Background())
	if err == nil {
		t.Fatal("ProcessLatest() error = nil, want provider error")
	}
	if !apperr.IsCode(err, apperr.CodeProviderError) {
		t.Errorf("error code = %v, want %s", err, apperr.CodeProviderError)
	}
}

func TestProcessLatestSurfacesApplyFailure(t *testing.T) {
	provider := newPipelineProvider()
	provider.latest = textMessage("m9", "Hi", "a@example.com", "short note")
	provider.applyFails["m9"] = 2 // both attempts fail

	svc := newTestService(provider, nil, nil, 10)

	if _, err := svc.ProcessLatest(context.Background()); err == nil {
		t.Fatal("ProcessLatest() error = nil, want apply failure")
	}
}
