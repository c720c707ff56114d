package ingest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/index"
	"github.com/drkane/docdisplay-backend/pkg/models"
	"github.com/drkane/docdisplay-backend/pkg/pdftext"
)

var log = logrus.StandardLogger().WithField("package", "ingest")

// Ingestor turns a downloaded or uploaded account PDF into the canonical
// index entry for its (regno, fyend).
type Ingestor struct {
	idx *index.Client
}

func New(idx *index.Client) *Ingestor {
	return &Ingestor{idx: idx}
}

func (i *Ingestor) Ping(ctx context.Context) error {
	return i.idx.Ping(ctx)
}

// Result reports one ingest. Expected failure modes (no extractable
// text, document already present) come back as Result values, not
// errors, so bulk callers don't need special exception handling.
type Result struct {
	ID     string `json:"id"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Ingest extracts the text of an account PDF and upserts the index
// document keyed by "{regno}-{fyend:YYYYMMDD}". Re-ingesting the same
// (regno, fyend) fully replaces the earlier entry. With skipIfExists the
// index is probed first and the PDF is not parsed when the id is already
// present; parsing is the expensive step, and bulk re-imports lean on
// this to stay cheap.
func (i *Ingestor) Ingest(ctx context.Context, charity models.Charity, content []byte, skipIfExists bool) (Result, error) {
	id := models.DocumentID(charity.Regno, charity.FYE)
	filename := id + ".pdf"

	if skipIfExists {
		exists, err := i.idx.Exists(ctx, id)
		if err != nil {
			return Result{}, fmt.Errorf("unable to check document %s: %w", id, err)
		}
		if exists {
			log.Debugf("document %s already exists, skipping", id)
			return Result{ID: id, Result: "already exists"}, nil
		}
	}

	attachment, err := pdftext.Extract(content)
	if err != nil {
		return Result{
			ID:     id,
			Result: "error",
			Error:  fmt.Sprintf("ExtractionError: %v", err),
		}, nil
	}

	doc := models.IndexDocument{
		Filename:   filename,
		Filedata:   content,
		Attachment: *attachment,
		Name:       charity.Name,
		Income:     charity.Income,
		Spending:   charity.Spending,
		Assets:     charity.Assets,
		FYE:        charity.FYE.Format("2006-01-02"),
		Regno:      charity.Regno,
	}
	result, err := i.idx.Upsert(ctx, id, doc)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: id, Result: result}, nil
}
