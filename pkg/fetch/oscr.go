package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/drkane/docdisplay-backend/pkg/models"
)

const oscrURLBase = "https://www.oscr.org.uk/about-charities/search-the-register/charity-details?number=%d"

// Links in the history table that point at other regulators rather than
// at a filing.
var oscrExcludedLinks = map[string]bool{
	"https://beta.companieshouse.gov.uk":                              true,
	"https://beta.companieshouse.gov.uk/":                             true,
	"https://www.gov.uk/government/organisations/charity-commission":  true,
	"https://www.gov.uk/government/organisations/charity-commission/": true,
}

// OSCR lists accounts held by the Scottish Charity Regulator. A history
// table row is an account filing only when its leading cell is a date,
// it has exactly six cells and the final cell links somewhere other than
// the excluded regulator sites.
type OSCR struct {
	session *Session
}

func NewOSCR(session *Session) *OSCR {
	return &OSCR{session: session}
}

func (o *OSCR) Name() string {
	return "oscr"
}

func (o *OSCR) charityURL(regno string) (string, error) {
	regno = strings.TrimPrefix(regno, "GB-SC-")
	regno = strings.TrimPrefix(regno, "SC")
	regno = strings.TrimLeft(regno, "0")
	n, err := strconv.Atoi(regno)
	if err != nil {
		return "", fmt.Errorf("unable to parse charity number: %v", err)
	}
	return fmt.Sprintf(oscrURLBase, n), nil
}

var oscrDateLayouts = []string{
	"2 January 2006",
	"02/01/2006",
	"2006-01-02",
}

func parseOscrDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range oscrDateLayouts {
		if d, err := time.Parse(layout, text); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func (o *OSCR) ListAccounts(ctx context.Context, regno string) ([]models.Account, error) {
	pageURL, err := o.charityURL(regno)
	if err != nil {
		return nil, err
	}
	log.Debugf("fetching account list: %s", pageURL)

	res, err := o.session.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("unable to parse page: %v", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var accounts []models.Account
	doc.Find(".history table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() != 6 {
			return
		}
		fyend, ok := parseOscrDate(cells.First().Text())
		if !ok {
			return
		}
		link := firstAbsoluteLink(base, cells.Eq(5))
		if link == "" || oscrExcludedLinks[link] {
			return
		}
		accounts = append(accounts, models.Account{
			Regno: regno,
			URL:   link,
			Fyend: fyend,
		})
	})
	models.SortAccounts(accounts)
	return accounts, nil
}

func firstAbsoluteLink(base *url.URL, cell *goquery.Selection) string {
	var link string
	cell.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		link = base.ResolveReference(ref).String()
		return false
	})
	return link
}

var _ Source = (*OSCR)(nil)
