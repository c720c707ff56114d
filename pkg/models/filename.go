package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ccAccountFilename = regexp.MustCompile(`(?i)^([0-9]+)_AC_([0-9]{4})([0-9]{2})([0-9]{2})_E_C\.PDF$`)
	plainFilename     = regexp.MustCompile(`^([0-9A-Za-z]+)_([0-9]{8})\.pdf$`)
)

// AccountFilename is the canonical name an account PDF is stored under.
func AccountFilename(regno string, fyend time.Time) string {
	return fmt.Sprintf("%s_%s.pdf", regno, fyend.Format("20060102"))
}

// ParseAccountFilename recovers (regno, fyend) from an account filename.
// It accepts both the Charity Commission download format
// ("0123456_AC_20201231_E_C.PDF") and our own storage format
// ("123456_20201231.pdf"). Leading zeros in the charity number are stripped.
func ParseAccountFilename(filename string) (string, time.Time, error) {
	if m := ccAccountFilename.FindStringSubmatch(filename); m != nil {
		fyend, err := time.Parse("20060102", m[2]+m[3]+m[4])
		if err != nil {
			return "", time.Time{}, err
		}
		return strings.TrimLeft(m[1], "0"), fyend, nil
	}
	if m := plainFilename.FindStringSubmatch(filename); m != nil {
		fyend, err := time.Parse("20060102", m[2])
		if err != nil {
			return "", time.Time{}, err
		}
		return strings.TrimLeft(m[1], "0"), fyend, nil
	}
	return "", time.Time{}, fmt.Errorf("unrecognised account filename %q", filename)
}
