package fetch

import (
	"bytes"
	"context"
	"time"

	"github.com/drkane/docdisplay-backend/pkg/models"
	"github.com/drkane/docdisplay-backend/pkg/storage/model"
)

// DownloadResult reports one account download. A failed HTTP fetch is a
// soft outcome: Err is set, the file fields are empty, and no error is
// returned, so a batch run continues past it.
type DownloadResult struct {
	FileLocation string
	FileName     string
	FileSize     int64
	TimeTaken    time.Duration
	Regno        string
	Fyend        time.Time
	Err          string
}

func (r DownloadResult) OK() bool {
	return r.Err == ""
}

// DownloadAccount fetches an account document and stores it as
// "{regno}_{fyend:YYYYMMDD}.pdf". The session is supplied by the caller so
// its connection pool and response cache are shared across a batch.
// A non-success HTTP status produces a soft result; only unexpected faults
// (transport or storage failures) return an error.
func DownloadAccount(ctx context.Context, session *Session, store model.Storer, url string, regno string, fyend time.Time) (DownloadResult, error) {
	filename := models.AccountFilename(regno, fyend)

	log.Debugf("fetching account PDF: %s", url)
	res, err := session.Get(ctx, url)
	if err != nil {
		return DownloadResult{}, err
	}
	if res.FromCache {
		log.Debugf("used cache")
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		log.Errorf("account not found: %s", url)
		return DownloadResult{Err: "Account not found", Regno: regno, Fyend: fyend}, nil
	}

	location, err := store.Store(ctx, filename, bytes.NewReader(res.Body), int64(len(res.Body)))
	if err != nil {
		return DownloadResult{}, err
	}

	return DownloadResult{
		FileLocation: location,
		FileName:     filename,
		FileSize:     int64(len(res.Body)),
		TimeTaken:    res.Elapsed,
		Regno:        regno,
		Fyend:        fyend,
	}, nil
}
