package fetch

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/drkane/docdisplay-backend/pkg/models"
)

const ccniURLBase = "https://www.charitycommissionni.org.uk/charity-details/?regId=%s&subId=0"

// ccniAccountURL matches the attachment URLs the Charity Commission for
// Northern Ireland publishes accounts under. The first group is the
// charity number, the second the financial year end as YYYYMMDD.
var ccniAccountURL = regexp.MustCompile(`https://apps\.charitycommission\.gov\.uk/ccni_ar_attachments/([0-9]+)_([0-9]+)_CA\.pdf`)

// CCNI lists accounts held by the Charity Commission for Northern
// Ireland. The details page embeds the charity number and year end in
// each attachment filename; the filename-embedded number is taken as
// authoritative over the input identifier.
type CCNI struct {
	session *Session
}

func NewCCNI(session *Session) *CCNI {
	return &CCNI{session: session}
}

func (c *CCNI) Name() string {
	return "ccni"
}

func (c *CCNI) charityURL(regno string) string {
	regno = strings.TrimPrefix(regno, "GB-NIC-")
	regno = strings.TrimPrefix(regno, "NI")
	return fmt.Sprintf(ccniURLBase, regno)
}

func (c *CCNI) ListAccounts(ctx context.Context, regno string) ([]models.Account, error) {
	url := c.charityURL(regno)
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
	doc.Find("article#documents a").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok || !strings.HasSuffix(href, "_CA.pdf") {
			return
		}
		m := ccniAccountURL.FindStringSubmatch(href)
		if m == nil {
			return
		}
		fyend, err := time.Parse("20060102", m[2])
		if err != nil {
			return
		}
		accounts = append(accounts, models.Account{
			Regno: strings.TrimLeft(m[1], "0"),
			URL:   href,
			Fyend: fyend,
		})
	})
	models.SortAccounts(accounts)
	return accounts, nil
}

var _ Source = (*CCNI)(nil)
