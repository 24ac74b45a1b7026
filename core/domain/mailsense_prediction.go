package domain

// Prediction is a single zero-shot classification outcome: the
// top-ranked candidate label and its confidence score.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// IsUnknown reports whether this is the fallback prediction.
func (p Prediction) IsUnknown() bool {
	return p.Label == UnknownLabel
}

// UnknownLabel marks an unavailable or failed classification. It is a
// sentinel, not a member of any candidate vocabulary.
const UnknownLabel = "unknown"

// UnknownPrediction returns the fallback prediction used whenever the
// classifier is missing, the input is empty, or the call fails.
func UnknownPrediction() Prediction {
	return Prediction{Label: UnknownLabel, Confidence: 0.0}
}

// EmailIntents is the closed candidate vocabulary for intent
// classification.
var EmailIntents = []string{
	"newsletter",
	"promotional",
	"personal",
	"work",
	"notification",
	"spam",
	"phishing",
	"important",
	"urgent",
	"social",
	"shopping",
	"marketing",
}

// SentimentLabels is the candidate vocabulary for tone classification.
var SentimentLabels = []string{"positive", "negative", "neutral"}

// PriorityLabels is the candidate vocabulary for priority classification.
var PriorityLabels = []string{"high", "normal", "low"}

// Hypothesis templates handed to the zero-shot collaborator. The "{}"
// placeholder is substituted with each candidate label by the backend.
const (
	HypothesisIntent    = "This email is about {}."
	HypothesisSentiment = "This email has a {} tone."
	HypothesisPriority  = "This email has {} priority."
)
