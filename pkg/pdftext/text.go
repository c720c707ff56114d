package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/models"
)

var log = logrus.StandardLogger().WithField("package", "pdftext")

// ErrNoContent means no page of the PDF yielded any text, typically a
// scanned document with no OCR layer.
var ErrNoContent = errors.New("No content found in PDF")

// Extract pulls the plain text out of an account PDF, page by page. Each
// page is prefixed with an anchor marker so highlighting can deep-link to
// a page, and pages are joined with blank lines. Anchors are numbered
// from zero.
func Extract(data []byte) (att *models.Attachment, err error) {
	// the pdf package panics on some malformed files; a bad document
	// must surface as an extraction error, not kill a bulk run
	defer func() {
		if r := recover(); r != nil {
			att = nil
			err = fmt.Errorf("unable to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("unable to read PDF: %v", err)
	}

	total := reader.NumPage()
	var parts []string
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Debugf("skipping page %d: %v", i, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("<span id='page-%d'></span>\n%s", i-1, text))
	}

	if len(parts) == 0 {
		return nil, ErrNoContent
	}

	content := strings.Join(parts, "\n\n")
	return &models.Attachment{
		Content:       content,
		ContentLength: len(content),
		Pages:         total,
		ContentType:   "application/pdf",
		Language:      "en",
		Date:          time.Now(),
	}, nil
}
