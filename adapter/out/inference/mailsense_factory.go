package inference

import (
	"fmt"

	"mailsense_server/config"
	"mailsense_server/core/port/out"
)

// Backend names accepted by the factory.
const (
	BackendHuggingFace = "huggingface"
	BackendOpenAI      = "openai"
	BackendNone        = "none"
)

// NewZeroShot selects the classifier backend from configuration. A nil
// classifier with a nil error means classification is disabled; the
// intent facade then falls back to unknown predictions.
func NewZeroShot(cfg *config.Config) (out.ZeroShotClassifier, error) {
	switch cfg.ClassifierBackend {
	case BackendHuggingFace:
		return NewHFClient(cfg.HFEndpoint, cfg.HFModel, cfg.HFAPIKey, cfg.ClassifierTimeout()), nil
	case BackendOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.ClassifierTimeout()), nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported classifier backend: %s", cfg.ClassifierBackend)
	}
}
