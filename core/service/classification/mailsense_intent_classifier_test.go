package classification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mailsense_server/core/domain"
)

type fakeZeroShot struct {
	ranked         []domain.Prediction
	err            error
	calls          int
	lastText       string
	lastCandidates []string
	lastTemplate   string
}

func (f *fakeZeroShot) Rank(_ context.Context, text string, candidates []string, template string) ([]domain.Prediction, error) {
	f.calls++
	f.lastText = text
	f.lastCandidates = candidates
	f.lastTemplate = template
	return f.ranked, f.err
}

type fakePredictionCache struct {
	entries map[string]domain.Prediction
	sets    int
	gets    int
}

func newFakePredictionCache() *fakePredictionCache {
	return &fakePredictionCache{entries: make(map[string]domain.Prediction)}
}

func (f *fakePredictionCache) Get(_ context.Context, key string) (domain.Prediction, bool, error) {
	f.gets++
	p, ok := f.entries[key]
	return p, ok, nil
}

func (f *fakePredictionCache) Set(_ context.Context, key string, p domain.Prediction, _ time.Duration) error {
	f.sets++
	f.entries[key] = p
	return nil
}

// TestPredictIntentFallbacks tests the fallback contract: empty input,
// missing collaborator, and collaborator failure all yield unknown.
func TestPredictIntentFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		zeroShot  *fakeZeroShot
		wantCalls int
	}{
		{
			name:      "empty text skips the collaborator",
			text:      "",
			zeroShot:  &fakeZeroShot{ranked: []domain.Prediction{{Label: "work", Confidence: 0.9}}},
			wantCalls: 0,
		},
		{
			name:      "whitespace-only text skips the collaborator",
			text:      "   \n\t  ",
			zeroShot:  &fakeZeroShot{ranked: []domain.Prediction{{Label: "work", Confidence: 0.9}}},
			wantCalls: 0,
		},
		{
			name:      "collaborator error falls back",
			text:      "hello there",
			zeroShot:  &fakeZeroShot{err: errors.New("inference endpoint down")},
			wantCalls: 1,
		},
		{
			name:      "empty ranking falls back",
			text:      "hello there",
			zeroShot:  &fakeZeroShot{ranked: nil},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewIntentClassifier(tt.zeroShot, nil, 0)

			got := svc.PredictIntent(context.Background(), tt.text)

			want := domain.UnknownPrediction()
			if got != want {
				t.Errorf("PredictIntent() = %+v, want %+v", got, want)
			}
			if tt.zeroShot.calls != tt.wantCalls {
				t.Errorf("collaborator calls = %d, want %d", tt.zeroShot.calls, tt.wantCalls)
			}
		})
	}
}

// TestPredictIntentNilCollaborator tests that a disabled backend never
// panics and always falls back.
func TestPredictIntentNilCollaborator(t *testing.T) {
	svc := NewIntentClassifier(nil, nil, 0)

	got := svc.PredictIntent(context.Background(), "some perfectly fine text")

	if !got.IsUnknown() {
		t.Errorf("PredictIntent() = %+v, want unknown fallback", got)
	}
}

// TestPredictIntentTopPair tests that only the top-ranked pair is
// returned.
func TestPredictIntentTopPair(t *testing.T) {
	zeroShot := &fakeZeroShot{ranked: []domain.Prediction{
		{Label: "newsletter", Confidence: 0.81},
		{Label: "marketing", Confidence: 0.11},
		{Label: "spam", Confidence: 0.05},
	}}
	svc := NewIntentClassifier(zeroShot, nil, 0)

	got := svc.PredictIntent(context.Background(), "weekly digest of articles")

	if got.Label != "newsletter" || got.Confidence != 0.81 {
		t.Errorf("PredictIntent() = %+v, want top pair (newsletter, 0.81)", got)
	}
	if len(zeroShot.lastCandidates) != len(domain.EmailIntents) {
		t.Errorf("candidates = %d labels, want %d", len(zeroShot.lastCandidates), len(domain.EmailIntents))
	}
	if zeroShot.lastTemplate != domain.HypothesisIntent {
		t.Errorf("template = %q, want %q", zeroShot.lastTemplate, domain.HypothesisIntent)
	}
}

// TestPredictIntentTruncation tests the 1000-character cap with the
// ellipsis marker.
func TestPredictIntentTruncation(t *testing.T) {
	zeroShot := &fakeZeroShot{ranked: []domain.Prediction{{Label: "work", Confidence: 0.7}}}
	svc := NewIntentClassifier(zeroShot, nil, 0)

	long := strings.Repeat("a", 1500)
	svc.PredictIntent(context.Background(), long)

	if len(zeroShot.lastText) != 1003 {
		t.Errorf("submitted text length = %d, want 1003 (1000 + ellipsis)", len(zeroShot.lastText))
	}
	if !strings.HasSuffix(zeroShot.lastText, "...") {
		t.Errorf("submitted text does not end with truncation marker")
	}

	short := strings.Repeat("b", 1000)
	svc.PredictIntent(context.Background(), short)

	if zeroShot.lastText != short {
		t.Errorf("text at the cap length was modified")
	}
}

// TestPredictSentimentAndPriority tests the sibling adapters'
// vocabularies and the priority subject prefix.
func TestPredictSentimentAndPriority(t *testing.T) {
	zeroShot := &fakeZeroShot{ranked: []domain.Prediction{{Label: "positive", Confidence: 0.6}}}
	svc := NewIntentClassifier(zeroShot, nil, 0)

	svc.PredictSentiment(context.Background(), "thanks, this is great news")

	if strings.Join(zeroShot.lastCandidates, ",") != "positive,negative,neutral" {
		t.Errorf("sentiment candidates = %v", zeroShot.lastCandidates)
	}
	if zeroShot.lastTemplate != domain.HypothesisSentiment {
		t.Errorf("sentiment template = %q, want %q", zeroShot.lastTemplate, domain.HypothesisSentiment)
	}

	zeroShot.ranked = []domain.Prediction{{Label: "high", Confidence: 0.8}}
	svc.PredictPriority(context.Background(), "server is down", "Outage")

	if !strings.HasPrefix(zeroShot.lastText, "Subject: Outage") {
		t.Errorf("priority input = %q, want subject prefix", zeroShot.lastText)
	}
	if strings.Join(zeroShot.lastCandidates, ",") != "high,normal,low" {
		t.Errorf("priority candidates = %v", zeroShot.lastCandidates)
	}

	// Empty subject and body still falls back without a call.
	calls := zeroShot.calls
	got := svc.PredictPriority(context.Background(), "", "")
	if !got.IsUnknown() {
		t.Errorf("PredictPriority(empty) = %+v, want unknown", got)
	}
	if zeroShot.calls != calls {
		t.Errorf("empty priority input reached the collaborator")
	}
}

// TestPredictIntentCache tests the prediction cache path.
func TestPredictIntentCache(t *testing.T) {
	zeroShot := &fakeZeroShot{ranked: []domain.Prediction{{Label: "personal", Confidence: 0.66}}}
	cache := newFakePredictionCache()
	svc := NewIntentClassifier(zeroShot, cache, time.Minute)

	first := svc.PredictIntent(context.Background(), "hey, are we still on for dinner?")
	if first.Label != "personal" {
		t.Fatalf("first prediction = %+v", first)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}

	second := svc.PredictIntent(context.Background(), "hey, are we still on for dinner?")
	if second != first {
		t.Errorf("cached prediction = %+v, want %+v", second, first)
	}
	if zeroShot.calls != 1 {
		t.Errorf("collaborator calls = %d, want 1 (second call served from cache)", zeroShot.calls)
	}

	// Failures are not cached.
	failing := &fakeZeroShot{err: errors.New("boom")}
	failCache := newFakePredictionCache()
	failSvc := NewIntentClassifier(failing, failCache, time.Minute)

	failSvc.PredictIntent(context.Background(), "some text")
	if failCache.sets != 0 {
		t.Errorf("fallback prediction was cached; sets = %d, want 0", failCache.sets)
	}
}
