// Package classification implements the rule-based and model-based
// analysis of decoded message text.
package classification

import (
	"regexp"
	"strings"

	"mailsense_server/core/domain"
)

// =============================================================================
// Pattern Sets
// =============================================================================

// Fixed cue patterns. Matching is case-insensitive; ".*" permits
// arbitrary characters between tokens.

var linkPatterns = compilePatterns([]string{
	`https?://[^\s<>"]+|www\.[^\s<>"]+`,
	`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
	`ftp://[^\s<>"]+`,
})

var suspiciousPatterns = compilePatterns([]string{
	`urgent.*action.*required`,
	`account.*suspended`,
	`verify.*account`,
	`click.*here.*immediately`,
	`limited.*time.*offer`,
	`free.*money`,
	`lottery.*winner`,
	`bank.*transfer`,
	`password.*expired`,
	`security.*alert`,
	`unusual.*activity`,
	`login.*attempt`,
	`confirm.*details`,
	`update.*information`,
	`claim.*prize`,
	`congratulations.*winner`,
	`you.*won`,
	`claim.*reward`,
	`urgent.*response.*needed`,
	`account.*locked`,
})

var urgentPatterns = compilePatterns([]string{
	`urgent`,
	`immediate.*action`,
	`act.*now`,
	`limited.*time`,
	`expires.*soon`,
	`last.*chance`,
	`final.*notice`,
	`deadline`,
	`asap`,
	`emergency`,
	`critical`,
	`important.*notice`,
})

var moneyPatterns = compilePatterns([]string{
	`\$\d+`,
	`dollar`,
	`payment`,
	`invoice`,
	`bill`,
	`bank.*account`,
	`credit.*card`,
	`paypal`,
	`bank.*transfer`,
	`wire.*transfer`,
	`check`,
	`cash`,
	`prize.*money`,
	`refund`,
	`payment.*due`,
	`overdue.*payment`,
})

func compilePatterns(exprs []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		compiled[i] = regexp.MustCompile(`(?i)` + expr)
	}
	return compiled
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// =============================================================================
// Rule Classifier
// =============================================================================

// RuleClassifier evaluates the fixed signal pattern sets against
// decoded text fragments. Pure; no side effects.
type RuleClassifier struct{}

// NewRuleClassifier creates a rule classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify aggregates the four boolean signals plus has_text across
// all fragments via logical OR. Each signal stops scanning at its
// first match.
func (c *RuleClassifier) Classify(fragments []string) domain.SignalResult {
	var result domain.SignalResult

	for _, fragment := range fragments {
		if !result.HasText && strings.TrimSpace(fragment) != "" {
			result.HasText = true
		}
		if !result.HasLink && matchesAny(linkPatterns, fragment) {
			result.HasLink = true
		}
		if !result.IsSuspicious && matchesAny(suspiciousPatterns, fragment) {
			result.IsSuspicious = true
		}
		if !result.HasUrgent && matchesAny(urgentPatterns, fragment) {
			result.HasUrgent = true
		}
		if !result.IsMoneyRelated && matchesAny(moneyPatterns, fragment) {
			result.IsMoneyRelated = true
		}

		if result.HasText && result.HasLink && result.IsSuspicious &&
			result.HasUrgent && result.IsMoneyRelated {
			break
		}
	}

	return result
}

// ClassifyText is a convenience wrapper for a single text blob.
func (c *RuleClassifier) ClassifyText(text string) domain.SignalResult {
	return c.Classify([]string{text})
}
