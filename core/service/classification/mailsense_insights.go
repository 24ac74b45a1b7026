package classification

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Defaults for insight extraction.
const (
	DefaultMaxKeywords   = 5
	DefaultSummaryLength = 200
)

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"of": {}, "with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "can": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {}, "me": {}, "him": {}, "her": {}, "us": {}, "them": {},
}

// InsightExtractor derives lightweight text insights (keywords, a
// short summary) without calling any external model.
type InsightExtractor struct{}

// NewInsightExtractor creates an insight extractor.
func NewInsightExtractor() *InsightExtractor {
	return &InsightExtractor{}
}

// Keywords returns up to max frequent terms, stop words and short
// words removed. Ranking is by count, ties broken by first appearance.
func (e *InsightExtractor) Keywords(text string, max int) []string {
	if strings.TrimSpace(text) == "" || max <= 0 {
		return nil
	}

	clean := nonWordPattern.ReplaceAllString(strings.ToLower(text), "")

	type entry struct {
		word  string
		count int
		first int
	}

	counts := make(map[string]*entry)
	var entries []*entry

	for i, word := range strings.Fields(clean) {
		if _, stop := stopWords[word]; stop || utf8.RuneCountInString(word) <= 3 {
			continue
		}
		if e, ok := counts[word]; ok {
			e.count++
			continue
		}
		e := &entry{word: word, count: 1, first: i}
		counts[word] = e
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].first < entries[j].first
	})

	if len(entries) > max {
		entries = entries[:max]
	}

	keywords := make([]string, len(entries))
	for i, e := range entries {
		keywords[i] = e.word
	}
	return keywords
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Summarize builds a brief extractive summary: leading sentences that
// fit within maxLength characters, or a hard cut when none fit.
func (e *InsightExtractor) Summarize(text string, maxLength int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "No content available"
	}

	var summary strings.Builder
	for _, sentence := range sentenceSplit.Split(trimmed, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if utf8.RuneCountInString(summary.String())+utf8.RuneCountInString(sentence) > maxLength {
			break
		}
		summary.WriteString(sentence)
		summary.WriteString(". ")
	}

	if s := strings.TrimSpace(summary.String()); s != "" {
		return s
	}
	return hardCut(trimmed, maxLength) + "..."
}

func hardCut(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
