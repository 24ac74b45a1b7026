package classification

import (
	"reflect"
	"strings"
	"testing"
)

// TestInsightKeywords tests keyword extraction ranking and filtering.
func TestInsightKeywords(t *testing.T) {
	extractor := NewInsightExtractor()

	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{
			name: "empty text yields no keywords",
			text: "   ",
			max:  5,
			want: nil,
		},
		{
			name: "stop words and short words are removed",
			text: "the cat and the dog ran with the ball",
			max:  5,
			want: []string{"ball"},
		},
		{
			name: "frequency ranking with first-seen tie break",
			text: "invoice payment invoice overdue payment invoice",
			max:  2,
			want: []string{"invoice", "payment"},
		},
		{
			name: "max caps the result",
			text: "alpha alpha beta beta gamma delta epsilon",
			max:  3,
			want: []string{"alpha", "beta", "gamma"},
		},
		{
			name: "punctuation is stripped before counting",
			text: "Refund! Refund? refund, please process refund.",
			max:  3,
			want: []string{"refund", "please", "process"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Keywords(tt.text, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Keywords() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestInsightSummarize tests the sentence-budget summary.
func TestInsightSummarize(t *testing.T) {
	extractor := NewInsightExtractor()

	t.Run("empty text has a placeholder", func(t *testing.T) {
		got := extractor.Summarize("", 200)
		if got != "No content available" {
			t.Errorf("Summarize() = %q", got)
		}
	})

	t.Run("leading sentences within budget", func(t *testing.T) {
		got := extractor.Summarize("First point. Second point! Third point that is quite a bit longer than the rest?", 30)
		if got != "First point. Second point." {
			t.Errorf("Summarize() = %q, want %q", got, "First point. Second point.")
		}
	})

	t.Run("oversized single sentence is hard cut", func(t *testing.T) {
		long := strings.Repeat("word ", 100)
		got := extractor.Summarize(long, 50)
		if !strings.HasSuffix(got, "...") {
			t.Errorf("Summarize() = %q, want hard-cut ellipsis", got)
		}
		if len(got) > 53+1 {
			t.Errorf("Summarize() length = %d, want <= 53", len(got))
		}
	})
}
