package classification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
	"mailsense_server/pkg/logger"
)

// maxClassifierInput caps the text submitted to the zero-shot
// collaborator. Longer input is cut and marked with an ellipsis.
const maxClassifierInput = 1000

// IntentClassifier is the facade over the zero-shot collaborator. All
// failure modes collapse into the ("unknown", 0.0) fallback; no call
// through this facade is ever fatal to the pipeline.
type IntentClassifier struct {
	zeroShot out.ZeroShotClassifier // nil when the backend is disabled
	cache    out.PredictionCache    // nil when caching is disabled
	cacheTTL time.Duration
}

// NewIntentClassifier creates the facade. Both collaborators are
// optional; a nil zeroShot makes every prediction fall back.
func NewIntentClassifier(zeroShot out.ZeroShotClassifier, cache out.PredictionCache, cacheTTL time.Duration) *IntentClassifier {
	return &IntentClassifier{
		zeroShot: zeroShot,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// PredictIntent classifies the email intent from body text.
func (s *IntentClassifier) PredictIntent(ctx context.Context, text string) domain.Prediction {
	return s.predict(ctx, "intent", text, domain.EmailIntents, domain.HypothesisIntent)
}

// PredictSentiment classifies the email tone from body text.
func (s *IntentClassifier) PredictSentiment(ctx context.Context, text string) domain.Prediction {
	return s.predict(ctx, "sentiment", text, domain.SentimentLabels, domain.HypothesisSentiment)
}

// PredictPriority classifies the email priority. The subject line is
// prepended to give the model the strongest signal first.
func (s *IntentClassifier) PredictPriority(ctx context.Context, text, subject string) domain.Prediction {
	if strings.TrimSpace(text) == "" && strings.TrimSpace(subject) == "" {
		return domain.UnknownPrediction()
	}
	combined := strings.TrimSpace("Subject: " + subject + "\n\n" + text)
	return s.predict(ctx, "priority", combined, domain.PriorityLabels, domain.HypothesisPriority)
}

func (s *IntentClassifier) predict(ctx context.Context, kind, text string, candidates []string, template string) domain.Prediction {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || s.zeroShot == nil {
		return domain.UnknownPrediction()
	}

	input := truncate(trimmed, maxClassifierInput)

	cacheKey := predictionKey(kind, input)
	if s.cache != nil {
		if cached, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
			return cached
		}
	}

	ranked, err := s.zeroShot.Rank(ctx, input, candidates, template)
	if err != nil {
		logger.WithError(err).Warn("zero-shot %s classification failed, falling back", kind)
		return domain.UnknownPrediction()
	}
	if len(ranked) == 0 {
		logger.Warn("zero-shot %s classification returned no candidates, falling back", kind)
		return domain.UnknownPrediction()
	}

	top := ranked[0]

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, top, s.cacheTTL); err != nil {
			logger.WithError(err).Debug("prediction cache write failed")
		}
	}

	return top
}

// truncate cuts text to max characters, appending a marker. Counted in
// runes so multi-byte input is never split mid-character.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// predictionKey derives the cache key from the prediction kind and the
// exact (already truncated) input text.
func predictionKey(kind, input string) string {
	sum := sha256.Sum256([]byte(input))
	return "prediction:" + kind + ":" + hex.EncodeToString(sum[:])
}
