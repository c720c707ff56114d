package models

import (
	"fmt"
	"time"
)

// Charity carries the metadata attached to an ingested document. It comes
// from the upload request or the batch row, not from the PDF itself.
type Charity struct {
	Regno    string    `json:"regno"`
	FYE      time.Time `json:"-"`
	Name     string    `json:"name,omitempty"`
	Income   string    `json:"income,omitempty"`
	Spending string    `json:"spending,omitempty"`
	Assets   string    `json:"assets,omitempty"`
}

// Attachment holds the text extracted from an account PDF.
type Attachment struct {
	Content       string    `json:"content"`
	ContentLength int       `json:"content_length"`
	Pages         int       `json:"pages"`
	ContentType   string    `json:"content_type"`
	Language      string    `json:"language"`
	Date          time.Time `json:"date"`
}

// IndexDocument is the canonical indexed unit, one per (regno, fyend).
// Filedata is base64-encoded by the JSON marshaller.
type IndexDocument struct {
	Filename   string     `json:"filename"`
	Filedata   []byte     `json:"filedata"`
	Attachment Attachment `json:"attachment"`

	Name     string `json:"name,omitempty"`
	Income   string `json:"income,omitempty"`
	Spending string `json:"spending,omitempty"`
	Assets   string `json:"assets,omitempty"`
	FYE      string `json:"fye"`
	Regno    string `json:"regno"`
}

// DocumentID is the sole determinant of a document's identity in the index:
// ingesting the same (regno, fyend) twice overwrites, never duplicates.
func DocumentID(regno string, fyend time.Time) string {
	return fmt.Sprintf("%s-%s", regno, fyend.Format("20060102"))
}
