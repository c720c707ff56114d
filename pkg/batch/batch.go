package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/fetch"
	"github.com/drkane/docdisplay-backend/pkg/models"
	"github.com/drkane/docdisplay-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "batch")

// outcomeColumns are appended to the input columns in the progress log.
// Input columns with these names are dropped from the passthrough set.
var outcomeColumns = []string{
	"success",
	"error",
	"fetch_datetime",
	"file_location",
	"file_name",
	"file_size",
	"download_timetaken",
	"regno",
	"fyend",
}

// Processor drives a CSV of charity identifiers through registry
// resolution, account discovery and download. It owns the CSV reader
// and the progress log exclusively for the duration of a run. Rows are
// processed sequentially, one at a time, to stay polite to the
// regulator sites.
type Processor struct {
	registry *fetch.Registry
	session  *fetch.Session
	store    model.Storer
}

func New(registry *fetch.Registry, session *fetch.Session, store model.Storer) *Processor {
	return &Processor{registry: registry, session: session, store: store}
}

type Options struct {
	RegnoColumn string // column holding the charity number, default "regno"
	FyendColumn string // column holding the financial year end, default "fyend"
	LogPath     string // progress log destination; empty writes to stdout
	SkipRows    int    // number of leading data rows to mark as skipped
}

// Run processes every data row of the input CSV, appending one outcome
// row per input row to the progress log. A failing row records its error
// and the run continues; only infrastructure faults (unreadable input,
// unwritable log) abort the run. Rerunning with SkipRows set to the
// number of rows already logged resumes a partial run without
// re-downloading anything.
func (p *Processor) Run(ctx context.Context, input io.Reader, opts Options) error {
	if opts.RegnoColumn == "" {
		opts.RegnoColumn = "regno"
	}
	if opts.FyendColumn == "" {
		opts.FyendColumn = "fyend"
	}

	runLog := log.WithField("run", uuid.NewString())

	reader := csv.NewReader(input)
	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to read CSV header: %w", err)
	}

	reserved := map[string]bool{}
	for _, col := range outcomeColumns {
		reserved[col] = true
	}
	var passthrough []int
	var logHeader []string
	for i, col := range header {
		if !reserved[col] {
			passthrough = append(passthrough, i)
			logHeader = append(logHeader, col)
		}
	}
	logHeader = append(logHeader, outcomeColumns...)
	regnoIdx := columnIndex(header, opts.RegnoColumn)
	fyendIdx := columnIndex(header, opts.FyendColumn)

	// header written once in truncate mode; every row after is an
	// open-append-close cycle so a crash leaves a usable partial log
	if err := writeLogRow(opts.LogPath, logHeader, true); err != nil {
		return err
	}

	for k := 0; ; k++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("unable to read CSV row %d: %w", k, err)
		}

		regno := cell(row, regnoIdx)
		fyendRaw := cell(row, fyendIdx)

		var outcome rowOutcome
		switch {
		case k < opts.SkipRows:
			outcome = rowOutcome{errMsg: "Row skipped", regno: regno, fyend: fyendRaw}
		case regnoIdx < 0:
			outcome = rowOutcome{
				errMsg: fmt.Sprintf("Column %s not found", opts.RegnoColumn),
				fyend:  fyendRaw,
			}
		default:
			outcome = p.processRow(ctx, regno, fyendRaw)
		}
		if outcome.errMsg != "" {
			runLog.Warnf("row %d (%s): %s", k, regno, outcome.errMsg)
		} else {
			runLog.Infof("row %d (%s): saved %s", k, regno, outcome.fileName)
		}

		record := make([]string, 0, len(passthrough)+len(outcomeColumns))
		for _, i := range passthrough {
			record = append(record, cell(row, i))
		}
		record = append(record, outcome.fields()...)
		if err := writeLogRow(opts.LogPath, record, false); err != nil {
			return err
		}
	}
	return nil
}

// processRow is fully isolated: every failure mode, including a panic
// out of a scraper, becomes the row's error string.
func (p *Processor) processRow(ctx context.Context, regno string, fyendRaw string) (outcome rowOutcome) {
	outcome = rowOutcome{regno: regno, fyend: fyendRaw}
	defer func() {
		if r := recover(); r != nil {
			outcome.errMsg = fmt.Sprintf("%v", r)
		}
	}()

	source := p.registry.SourceFor(regno)
	accounts, err := source.ListAccounts(ctx, regno)
	if err != nil {
		outcome.errMsg = err.Error()
		return outcome
	}

	var result fetch.DownloadResult
	switch {
	case fyendRaw != "" && len(accounts) > 0:
		fyend, err := time.Parse("2006-01-02", fyendRaw)
		if err != nil {
			outcome.errMsg = fmt.Sprintf("unable to parse financial year end %q: %v", fyendRaw, err)
			return outcome
		}
		account, ok := accountFor(accounts, fyend)
		if !ok {
			outcome.errMsg = "Financial year end not found"
			return outcome
		}
		result, err = fetch.DownloadAccount(ctx, p.session, p.store, account.URL, regno, fyend)
		if err != nil {
			outcome.errMsg = err.Error()
			return outcome
		}
	case len(accounts) > 0:
		latest := accounts[0]
		result, err = fetch.DownloadAccount(ctx, p.session, p.store, latest.URL, regno, latest.Fyend)
		if err != nil {
			outcome.errMsg = err.Error()
			return outcome
		}
	default:
		outcome.errMsg = fmt.Sprintf("No accounts found for charity %s", regno)
		return outcome
	}

	return outcomeFromResult(result, fyendRaw)
}

// accountFor looks an account up by exact year-end match. When a source
// lists two filings with the same year end the later (older) entry wins,
// matching how the lookup has always behaved.
func accountFor(accounts []models.Account, fyend time.Time) (models.Account, bool) {
	var found models.Account
	var ok bool
	for _, a := range accounts {
		if a.Fyend.Equal(fyend) {
			found = a
			ok = true
		}
	}
	return found, ok
}

type rowOutcome struct {
	success      bool
	errMsg       string
	fileLocation string
	fileName     string
	fileSize     string
	timeTaken    string
	regno        string
	fyend        string
}

func outcomeFromResult(result fetch.DownloadResult, fyendRaw string) rowOutcome {
	outcome := rowOutcome{
		errMsg: result.Err,
		regno:  result.Regno,
		fyend:  fyendRaw,
	}
	if !result.Fyend.IsZero() {
		outcome.fyend = result.Fyend.Format("2006-01-02")
	}
	if result.OK() {
		outcome.success = true
		outcome.fileLocation = result.FileLocation
		outcome.fileName = result.FileName
		outcome.fileSize = strconv.FormatInt(result.FileSize, 10)
		outcome.timeTaken = strconv.FormatFloat(result.TimeTaken.Seconds(), 'f', 6, 64)
	}
	return outcome
}

func (o rowOutcome) fields() []string {
	return []string{
		strconv.FormatBool(o.success),
		o.errMsg,
		time.Now().Format("2006-01-02 15:04:05"),
		o.fileLocation,
		o.fileName,
		o.fileSize,
		o.timeTaken,
		o.regno,
		o.fyend,
	}
}

func writeLogRow(path string, record []string, truncate bool) error {
	var out io.Writer = os.Stdout
	if path != "" {
		flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
		if truncate {
			flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		}
		f, err := os.OpenFile(path, flags, 0644)
		if err != nil {
			return fmt.Errorf("unable to open logfile: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := csv.NewWriter(out)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("unable to write logfile row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("unable to write logfile row: %w", err)
	}
	return nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
