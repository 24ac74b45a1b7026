package domain

import "strings"

// BodyPart is one node of a message body tree. Multipart nodes carry
// children and no data of their own; leaf nodes carry an encoded blob.
type BodyPart struct {
	MimeType string     `json:"mime_type"`
	Data     string     `json:"data,omitempty"` // URL-safe base64 payload
	Parts    []BodyPart `json:"parts,omitempty"`
}

// IsMultipart reports whether the node is a container part.
func (p *BodyPart) IsMultipart() bool {
	return strings.Contains(p.MimeType, "multipart")
}

// IsPlainText reports whether the node is a plain-text leaf.
func (p *BodyPart) IsPlainText() bool {
	return strings.Contains(p.MimeType, "text/plain")
}

// IsHTMLText reports whether the node is an HTML leaf.
func (p *BodyPart) IsHTMLText() bool {
	return strings.Contains(p.MimeType, "text/html")
}

// Message is a provider-neutral mail message with its body tree and the
// headers the pipeline cares about.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id,omitempty"`
	LabelIDs []string  `json:"label_ids,omitempty"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Subject  string    `json:"subject,omitempty"`
	Date     string    `json:"date,omitempty"`
	Snippet  string    `json:"snippet,omitempty"`
	Payload  *BodyPart `json:"payload,omitempty"`
}

// MessageRef is a lightweight listing entry: just enough to dedup and
// fetch the full message later.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id,omitempty"`
}

// ScanCategories is the fixed set of mailbox categories enumerated by a
// batch scan, in scan order. A message found in more than one category
// is attributed to the first.
var ScanCategories = []string{
	"INBOX",
	"CATEGORY_PERSONAL",
	"CATEGORY_PROMOTIONS",
	"CATEGORY_SOCIAL",
	"CATEGORY_UPDATES",
	"CATEGORY_FORUMS",
}
