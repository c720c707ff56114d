package fetch_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ccniDetailsPage = `
<html><body>
<article id="documents">
  <a href="https://apps.charitycommission.gov.uk/ccni_ar_attachments/0100001_20201231_CA.pdf">Accounts 2020</a>
  <a href="https://apps.charitycommission.gov.uk/ccni_ar_attachments/0100001_20191231_CA.pdf">Accounts 2019</a>
  <a href="https://apps.charitycommission.gov.uk/ccni_ar_attachments/0100001_20201231_AR.pdf">Annual return</a>
  <a href="https://elsewhere.example.com/other_CA.pdf">Unrelated</a>
</article>
<a href="https://apps.charitycommission.gov.uk/ccni_ar_attachments/0100001_20181231_CA.pdf">Outside documents</a>
</body></html>`

func TestCCNIListAccounts(t *testing.T) {
	defer gock.Off()
	gock.New("https://www.charitycommissionni.org.uk").
		Get("/charity-details/").
		MatchParam("regId", "100001").
		MatchParam("subId", "0").
		Reply(http.StatusOK).
		BodyString(ccniDetailsPage)

	r := newRegistry(t)
	accounts, err := r.SourceFor("NI100001").ListAccounts(context.Background(), "NI100001")
	require.NoError(t, err)

	require.Len(t, accounts, 2)
	assert.Equal(t, date("2020-12-31"), accounts[0].Fyend)
	assert.Equal(t, date("2019-12-31"), accounts[1].Fyend)
	// the filename-embedded charity number wins over the input identifier
	assert.Equal(t, "100001", accounts[0].Regno)
	assert.Equal(t, "https://apps.charitycommission.gov.uk/ccni_ar_attachments/0100001_20201231_CA.pdf", accounts[0].URL)
}

func TestCCNIPrefixStripping(t *testing.T) {
	defer gock.Off()
	gock.New("https://www.charitycommissionni.org.uk").
		Get("/charity-details/").
		MatchParam("regId", "100001").
		Reply(http.StatusOK).
		BodyString("<html><body></body></html>")

	r := newRegistry(t)
	accounts, err := r.SourceFor("GB-NIC-100001").ListAccounts(context.Background(), "GB-NIC-100001")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
