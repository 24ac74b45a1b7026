// Package content decodes hierarchical message body trees into flat
// text fragments for downstream classification.
package content

import (
	"encoding/base64"
	"regexp"
	"strings"

	"mailsense_server/core/domain"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Decoder extracts plain text from a message body tree.
type Decoder struct{}

// NewDecoder creates a body tree decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode walks the body tree in pre-order and returns one text
// fragment per plain-text or HTML leaf. HTML leaves are tag-stripped
// and whitespace-collapsed. Leaves that fail to decode are omitted;
// Decode never fails.
func (d *Decoder) Decode(payload *domain.BodyPart) []string {
	if payload == nil {
		return nil
	}
	return d.collect(payload, nil)
}

// Flatten joins all fragments with single spaces into one text blob.
func (d *Decoder) Flatten(payload *domain.BodyPart) string {
	return strings.TrimSpace(strings.Join(d.Decode(payload), " "))
}

func (d *Decoder) collect(part *domain.BodyPart, fragments []string) []string {
	switch {
	case part.IsPlainText():
		if text, ok := decodeBody(part.Data); ok {
			fragments = append(fragments, text)
		}

	case part.IsHTMLText():
		if html, ok := decodeBody(part.Data); ok {
			fragments = append(fragments, stripHTML(html))
		}

	case part.IsMultipart():
		for i := range part.Parts {
			fragments = d.collect(&part.Parts[i], fragments)
		}
	}

	return fragments
}

// decodeBody decodes a URL-safe base64 blob. Gmail omits padding, so
// the unpadded form is tried first.
func decodeBody(data string) (string, bool) {
	if data == "" {
		return "", false
	}

	raw, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return "", false
		}
	}

	return strings.ToValidUTF8(string(raw), ""), true
}

// stripHTML removes markup tags and collapses whitespace runs.
func stripHTML(html string) string {
	text := tagPattern.ReplaceAllString(html, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
