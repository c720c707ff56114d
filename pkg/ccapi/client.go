package ccapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public Charity Commission register API endpoint.
const DefaultBaseURL = "https://api.charitycommission.gov.uk/register/api"

var logger = logrus.StandardLogger().WithField("package", "ccapi")

// Client talks to the Charity Commission register API. Every request is
// authenticated with the subscription key passed at construction.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string
}

func New(baseURL string, apiKey string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %s is not supported", u.Scheme)
	}
	return &Client{
		baseURL: u,
		apiKey:  apiKey,
		http:    http.DefaultClient,
	}, nil
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.http = client
}

// CharityDetails is the subset of the charity details response we rely on.
// OrganisationNumber is the register's internal identifier; it is 0 when
// the charity number is unknown to the register.
type CharityDetails struct {
	OrganisationNumber int    `json:"organisation_number"`
	RegisteredNumber   string `json:"reg_charity_number,omitempty"`
	CharityName        string `json:"charity_name,omitempty"`
}

// GetCharityDetails looks up a charity by its registered number.
// The suffix 0 selects the main charity rather than a linked one.
func (c *Client) GetCharityDetails(ctx context.Context, regno string) (*CharityDetails, error) {
	detailsURL := c.baseURL.JoinPath("charitydetails", regno, "0")

	logger.Debugf("fetching charity details: %s", detailsURL.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, detailsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %v", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to perform HTTP request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	var details CharityDetails
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(&details); err != nil {
		return nil, fmt.Errorf("unable to decode response: %v", err)
	}
	return &details, nil
}
