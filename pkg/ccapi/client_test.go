package ccapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drkane/docdisplay-backend/pkg/ccapi"
)

func TestGetCharityDetails(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.charitycommission.gov.uk").
		Get("/register/api/charitydetails/123456/0").
		MatchHeader("Ocp-Apim-Subscription-Key", "test-key").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"organisation_number": 987654,
			"charity_name":        "Test Charity",
		})

	c, err := ccapi.New("", "test-key")
	require.NoError(t, err)

	details, err := c.GetCharityDetails(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, 987654, details.OrganisationNumber)
	assert.Equal(t, "Test Charity", details.CharityName)
}

func TestGetCharityDetailsUnknownCharity(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.charitycommission.gov.uk").
		Get("/register/api/charitydetails/999999/0").
		Reply(http.StatusOK).
		JSON(map[string]any{})

	c, err := ccapi.New("", "test-key")
	require.NoError(t, err)

	details, err := c.GetCharityDetails(context.Background(), "999999")
	require.NoError(t, err)
	assert.Zero(t, details.OrganisationNumber)
}

func TestGetCharityDetailsServerError(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.charitycommission.gov.uk").
		Get("/register/api/charitydetails/123456/0").
		Reply(http.StatusUnauthorized)

	c, err := ccapi.New("", "bad-key")
	require.NoError(t, err)

	_, err = c.GetCharityDetails(context.Background(), "123456")
	assert.Error(t, err)
}

func TestNewRejectsBadScheme(t *testing.T) {
	_, err := ccapi.New("ftp://example.com", "key")
	assert.Error(t, err)
}
