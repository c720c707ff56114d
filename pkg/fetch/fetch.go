package fetch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/models"
)

var log = logrus.StandardLogger().WithField("package", "fetch")

// Source lists the downloadable accounts a regulator publishes for a
// charity. Implementations return accounts sorted by financial year end,
// most recent first. An empty list is not an error; an unknown charity is
// reported as a *NotFoundError.
type Source interface {
	Name() string
	ListAccounts(ctx context.Context, regno string) ([]models.Account, error)
}

// NotFoundError means the charity identifier has no register entry at the
// source. It is fatal to that identifier but not to a batch run.
type NotFoundError struct {
	Regno string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Charity %s not found", e.Regno)
}

// Registry resolves a charity identifier to the regulator that holds its
// filings. Resolution never fails: identifiers without a recognised
// prefix fall through to the Charity Commission for England and Wales.
type Registry struct {
	ccew *CCEW
	ccni *CCNI
	oscr *OSCR
}

func NewRegistry(session *Session, ccewAPIKey string) (*Registry, error) {
	ccew, err := NewCCEW(session, ccewAPIKey)
	if err != nil {
		return nil, fmt.Errorf("unable to create ccew source: %w", err)
	}
	return &Registry{
		ccew: ccew,
		ccni: NewCCNI(session),
		oscr: NewOSCR(session),
	}, nil
}

func (r *Registry) SourceFor(regno string) Source {
	if strings.HasPrefix(regno, "SC") || strings.HasPrefix(regno, "GB-SC-") {
		return r.oscr
	}
	if strings.HasPrefix(regno, "NI") || strings.HasPrefix(regno, "GB-NIC-") {
		return r.ccni
	}
	return r.ccew
}

// dayMonthYear matches dates like "31 March 2020" embedded in cell text.
var dayMonthYear = regexp.MustCompile(`([0-9]{1,2} [A-Za-z]+ [0-9]{4})`)

func parseCellDate(text string) (time.Time, bool) {
	m := dayMonthYear.FindString(text)
	if m == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("2 January 2006", m)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseFileSize converts a file size as displayed by the register,
// generally "(12,345KB)", into a byte count. The register's KB means
// 1024-byte units and its KiB means 1000-byte units; the markup is the
// contract here, odd as it reads.
func ParseFileSize(filesize string) (int64, error) {
	s := strings.NewReplacer("(", "", ")", "", ",", "").Replace(filesize)
	s = strings.ToUpper(strings.TrimSpace(s))
	if strings.Contains(s, "KIB") {
		n, err := strconv.ParseInt(strings.TrimSpace(strings.ReplaceAll(s, "KIB", "")), 10, 64)
		if err != nil {
			return 0, err
		}
		return n * 1000, nil
	}
	if strings.Contains(s, "KB") {
		n, err := strconv.ParseInt(strings.TrimSpace(strings.ReplaceAll(s, "KB", "")), 10, 64)
		if err != nil {
			return 0, err
		}
		return n * 1024, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
