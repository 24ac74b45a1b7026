package content

import (
	"encoding/base64"
	"reflect"
	"testing"

	"mailsense_server/core/domain"
)

func encode(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func plainPart(s string) domain.BodyPart {
	return domain.BodyPart{MimeType: "text/plain", Data: encode(s)}
}

func htmlPart(s string) domain.BodyPart {
	return domain.BodyPart{MimeType: "text/html", Data: encode(s)}
}

// TestDecoderDecode tests fragment extraction from body trees.
func TestDecoderDecode(t *testing.T) {
	decoder := NewDecoder()

	tests := []struct {
		name    string
		payload *domain.BodyPart
		want    []string
	}{
		{
			name:    "nil payload yields no fragments",
			payload: nil,
			want:    nil,
		},
		{
			name: "single plain text leaf",
			payload: &domain.BodyPart{
				MimeType: "text/plain",
				Data:     encode("hello world"),
			},
			want: []string{"hello world"},
		},
		{
			name: "html leaf is stripped and whitespace collapsed",
			payload: &domain.BodyPart{
				MimeType: "text/html",
				Data:     encode("<html><body><p>Hello   <b>there</b></p>\n<p>bye</p></body></html>"),
			},
			want: []string{"Hello there bye"},
		},
		{
			name: "multipart visits children in order",
			payload: &domain.BodyPart{
				MimeType: "multipart/alternative",
				Parts: []domain.BodyPart{
					plainPart("first"),
					htmlPart("<p>second</p>"),
				},
			},
			want: []string{"first", "second"},
		},
		{
			name: "nested multipart recursion",
			payload: &domain.BodyPart{
				MimeType: "multipart/mixed",
				Parts: []domain.BodyPart{
					plainPart("outer"),
					{
						MimeType: "multipart/alternative",
						Parts: []domain.BodyPart{
							plainPart("inner plain"),
							htmlPart("<div>inner html</div>"),
						},
					},
				},
			},
			want: []string{"outer", "inner plain", "inner html"},
		},
		{
			name: "unrecognized content kind is ignored",
			payload: &domain.BodyPart{
				MimeType: "multipart/mixed",
				Parts: []domain.BodyPart{
					plainPart("text"),
					{MimeType: "image/png", Data: encode("not text")},
					{MimeType: "application/pdf", Data: encode("binary")},
				},
			},
			want: []string{"text"},
		},
		{
			name: "corrupt base64 fragment is silently omitted",
			payload: &domain.BodyPart{
				MimeType: "multipart/mixed",
				Parts: []domain.BodyPart{
					{MimeType: "text/plain", Data: "!!!not-base64!!!"},
					plainPart("survivor"),
				},
			},
			want: []string{"survivor"},
		},
		{
			name: "leaf with empty data emits nothing",
			payload: &domain.BodyPart{
				MimeType: "text/plain",
				Data:     "",
			},
			want: nil,
		},
		{
			name: "padded base64 also decodes",
			payload: &domain.BodyPart{
				MimeType: "text/plain",
				Data:     base64.URLEncoding.EncodeToString([]byte("padded body")),
			},
			want: []string{"padded body"},
		},
		{
			name: "multipart node emits no fragment of its own",
			payload: &domain.BodyPart{
				MimeType: "multipart/mixed",
				Data:     encode("should not appear"),
				Parts:    []domain.BodyPart{plainPart("child")},
			},
			want: []string{"child"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decoder.Decode(tt.payload)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestDecoderFlatten tests joining fragments into one blob.
func TestDecoderFlatten(t *testing.T) {
	decoder := NewDecoder()

	tests := []struct {
		name    string
		payload *domain.BodyPart
		want    string
	}{
		{
			name:    "nil payload flattens to empty string",
			payload: nil,
			want:    "",
		},
		{
			name: "fragments joined with single spaces",
			payload: &domain.BodyPart{
				MimeType: "multipart/alternative",
				Parts: []domain.BodyPart{
					plainPart("part one"),
					htmlPart("<p>part two</p>"),
				},
			},
			want: "part one part two",
		},
		{
			name: "result is trimmed",
			payload: &domain.BodyPart{
				MimeType: "text/plain",
				Data:     encode("  padded text  "),
			},
			want: "padded text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decoder.Flatten(tt.payload)
			if got != tt.want {
				t.Errorf("Flatten() = %q, want %q", got, tt.want)
			}
		})
	}
}
