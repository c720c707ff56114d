package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drkane/docdisplay-backend/pkg/fetch"
)

const ccewAccountsPage = `
<html><body>
<table class="govuk-table">
<tr class="govuk-table__row"><th>Document</th><th>Year end</th><th></th></tr>
<tr class="govuk-table__row">
  <td>Accounts and TAR</td>
  <td>For the period ending 31 March 2019</td>
  <td><a href="https://ccew.example.com/accounts_2019.pdf">View</a></td>
</tr>
<tr class="govuk-table__row">
  <td>Accounts and TAR</td>
  <td>For the period ending 31 March 2020</td>
  <td><a href="https://ccew.example.com/accounts_2020.pdf">View</a></td>
</tr>
<tr class="govuk-table__row">
  <td>Annual return</td>
  <td>For the period ending 31 March 2020</td>
  <td><a href="https://ccew.example.com/ar_2020.pdf">View</a></td>
</tr>
<tr class="govuk-table__row">
  <td>Accounts and TAR</td>
  <td>No date here</td>
  <td><a href="https://ccew.example.com/accounts_unknown.pdf">View</a></td>
</tr>
<tr class="govuk-table__row">
  <td>Accounts and TAR</td>
  <td>For the period ending 31 March 2018</td>
  <td>Not yet received</td>
</tr>
</table>
</body></html>`

func mockCharityLookup(regno string, orgNumber int) {
	body := map[string]any{}
	if orgNumber != 0 {
		body["organisation_number"] = orgNumber
	}
	gock.New("https://api.charitycommission.gov.uk").
		Get("/register/api/charitydetails/" + regno + "/0").
		Reply(http.StatusOK).
		JSON(body)
}

func TestCCEWListAccounts(t *testing.T) {
	defer gock.Off()
	mockCharityLookup("123456", 987654)
	gock.New("https://register-of-charities.charitycommission.gov.uk").
		Get("/charity-search/-/charity-details/987654/accounts-and-annual-returns").
		Reply(http.StatusOK).
		BodyString(ccewAccountsPage)

	r := newRegistry(t)
	accounts, err := r.SourceFor("123456").ListAccounts(context.Background(), "123456")
	require.NoError(t, err)

	// the annual return row, the dateless row and the linkless row are
	// all filtered out
	require.Len(t, accounts, 2)
	assert.Equal(t, date("2020-03-31"), accounts[0].Fyend)
	assert.Equal(t, "https://ccew.example.com/accounts_2020.pdf", accounts[0].URL)
	assert.Equal(t, date("2019-03-31"), accounts[1].Fyend)
	assert.Equal(t, "123456", accounts[0].Regno)
}

func TestCCEWCharityNotFound(t *testing.T) {
	defer gock.Off()
	mockCharityLookup("999999", 0)

	r := newRegistry(t)
	_, err := r.SourceFor("999999").ListAccounts(context.Background(), "999999")
	var notFound *fetch.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Charity 999999 not found", notFound.Error())
}

func TestCCEWNoAccounts(t *testing.T) {
	defer gock.Off()
	mockCharityLookup("123456", 987654)
	gock.New("https://register-of-charities.charitycommission.gov.uk").
		Get("/charity-search/-/charity-details/987654/accounts-and-annual-returns").
		Reply(http.StatusOK).
		BodyString("<html><body><p>No documents</p></body></html>")

	r := newRegistry(t)
	accounts, err := r.SourceFor("123456").ListAccounts(context.Background(), "123456")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
