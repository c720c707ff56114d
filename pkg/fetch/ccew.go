package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/drkane/docdisplay-backend/pkg/ccapi"
	"github.com/drkane/docdisplay-backend/pkg/models"
)

const ccewURLBase = "https://register-of-charities.charitycommission.gov.uk/charity-search/-/charity-details/%d/accounts-and-annual-returns"

// CCEW lists accounts held by the Charity Commission for England and
// Wales. Resolution is two-stage: the public charity number is first
// translated into the register's internal organisation number via the
// register API, then the accounts page for that organisation is scraped.
// If the lookup response carries no organisation number the charity is
// unknown. There is no fallback when either stage changes shape; the
// adapter is rewritten instead.
type CCEW struct {
	api     *ccapi.Client
	session *Session
}

func NewCCEW(session *Session, apiKey string) (*CCEW, error) {
	api, err := ccapi.New("", apiKey)
	if err != nil {
		return nil, err
	}
	return &CCEW{api: api, session: session}, nil
}

func (c *CCEW) Name() string {
	return "ccew"
}

func (c *CCEW) charityURL(ctx context.Context, regno string) (string, error) {
	regno = strings.TrimPrefix(regno, "GB-CHC-")
	details, err := c.api.GetCharityDetails(ctx, regno)
	if err != nil {
		return "", fmt.Errorf("charity details lookup: %w", err)
	}
	if details.OrganisationNumber == 0 {
		return "", &NotFoundError{Regno: regno}
	}
	return fmt.Sprintf(ccewURLBase, details.OrganisationNumber), nil
}

func (c *CCEW) ListAccounts(ctx context.Context, regno string) ([]models.Account, error) {
	url, err := c.charityURL(ctx, regno)
	if err != nil {
		return nil, err
	}
	log.Debugf("fetching account list: %s", url)

	res, err := c.session.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("unable to parse page: %v", err)
	}

	var accounts []models.Account
	doc.Find("tr.govuk-table__row").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		if !strings.Contains(strings.ToLower(strings.TrimSpace(cells.First().Text())), "accounts") {
			return
		}
		href, ok := cells.Last().Find("a").First().Attr("href")
		if !ok {
			return
		}
		fyend, ok := parseCellDate(strings.TrimSpace(cells.Eq(1).Text()))
		if !ok {
			return
		}
		accounts = append(accounts, models.Account{
			Regno: regno,
			URL:   href,
			Fyend: fyend,
		})
	})
	models.SortAccounts(accounts)
	return accounts, nil
}

var _ Source = (*CCEW)(nil)
