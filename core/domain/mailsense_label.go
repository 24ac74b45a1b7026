package domain

import "strings"

// Label is a provider-side tag: opaque ID, human-readable name.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Rule-derived label names.
const (
	LabelContainsLink      = "Contains Link"
	LabelTextOnly          = "Text Only"
	LabelPotentialPhishing = "Potential Phishing"
	LabelSuspiciousContent = "Suspicious Content"
	LabelUrgentLanguage    = "Urgent Language"
	LabelMoneyRelated      = "Money Related"

	// AILabelPrefix marks labels derived from the intent model.
	AILabelPrefix = "AI:"
)

// BuildRuleLabels derives the rule-based label names from a signal
// result. Order is fixed for readability; it does not affect
// application semantics.
func BuildRuleLabels(signals SignalResult) []string {
	labels := make([]string, 0, 4)

	if signals.HasLink {
		labels = append(labels, LabelContainsLink)
	} else {
		labels = append(labels, LabelTextOnly)
	}

	if signals.IsSuspicious {
		if signals.IsMoneyRelated {
			labels = append(labels, LabelPotentialPhishing)
		} else {
			labels = append(labels, LabelSuspiciousContent)
		}
	}

	if signals.HasUrgent {
		labels = append(labels, LabelUrgentLanguage)
	}

	if signals.IsMoneyRelated {
		labels = append(labels, LabelMoneyRelated)
	}

	return labels
}

// AILabelName builds the intent-derived label name. When the message
// had no text to classify, the label falls back to "AI:Unknown".
func AILabelName(intent string, hasText bool) string {
	if !hasText || intent == "" {
		return AILabelPrefix + "Unknown"
	}
	return AILabelPrefix + capitalize(intent)
}

// BuildLabelNames returns the complete label-name set for a message:
// the rule labels followed by the AI label.
func BuildLabelNames(signals SignalResult, intent string) []string {
	labels := BuildRuleLabels(signals)
	return append(labels, AILabelName(intent, signals.HasText))
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
