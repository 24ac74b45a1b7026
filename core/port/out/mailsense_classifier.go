package out

import (
	"context"

	"mailsense_server/core/domain"
)

// ZeroShotClassifier is the hosted zero-shot classification
// collaborator. Given text, a candidate vocabulary, and a hypothesis
// template it returns candidates ranked by score, best first.
type ZeroShotClassifier interface {
	Rank(ctx context.Context, text string, candidates []string, hypothesisTemplate string) ([]domain.Prediction, error)
}
