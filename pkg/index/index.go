package index

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/models"
)

// DefaultIndex is the index charity account documents are written to.
const DefaultIndex = "charityaccounts"

var log = logrus.StandardLogger().WithField("package", "index")

type Config struct {
	Addr            string
	Username        string
	Password        string
	InsecureSkipTLS bool
	Index           string
}

// Client wraps the OpenSearch client with the operations the pipeline
// needs: upsert by deterministic id, existence probe, retrieval and
// search. The index is created at construction when missing.
type Client struct {
	os    *opensearch.Client
	index string
}

func New(cfg Config) (*Client, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}

	var transport http.RoundTripper
	if cfg.InsecureSkipTLS {
		transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}

	osClient, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.Addr},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create opensearch client: %w", err)
	}

	c := &Client{os: osClient, index: cfg.Index}
	if err := c.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to create index: %w", err)
	}
	return c, nil
}

func (c *Client) Index() string {
	return c.index
}

func (c *Client) Ping(ctx context.Context) error {
	req := opensearchapi.PingRequest{}
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("unable to ping opensearch: %s", res.Status())
	}
	return nil
}

func (c *Client) ensureIndex(ctx context.Context) error {
	req := opensearchapi.IndicesCreateRequest{Index: c.index}
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusBadRequest {
		// Index already exists
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("unexpected status %s: %s", res.Status(), decodeError(res.Body))
	}
	return nil
}

// Upsert writes a document under the given id, fully replacing any
// existing document with that id. It returns the index result,
// "created" or "updated".
func (c *Client) Upsert(ctx context.Context, id string, doc models.IndexDocument) (string, error) {
	body := bytes.NewBuffer(nil)
	if err := json.NewEncoder(body).Encode(doc); err != nil {
		return "", fmt.Errorf("unable to encode JSON: %v", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      c.index,
		DocumentID: id,
		Body:       body,
		OpType:     "index",
	}
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", fmt.Errorf("opensearch returned an invalid status %s: %s", res.Status(), decodeError(res.Body))
	}

	var indexed struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&indexed); err != nil {
		return "", fmt.Errorf("unable to decode response: %v", err)
	}
	log.Debugf("indexed %s: %s", id, indexed.Result)
	return indexed.Result, nil
}

// Exists probes for a document id without fetching its source.
func (c *Client) Exists(ctx context.Context, id string) (bool, error) {
	req := opensearchapi.ExistsRequest{Index: c.index, DocumentID: id}
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, fmt.Errorf("unexpected status %s", res.Status())
}

// Envelope is the OpenSearch document wrapper.
type Envelope[T any] struct {
	Index  string `json:"_index"`
	Id     string `json:"_id"`
	Found  bool   `json:"found"`
	Source T      `json:"_source"`
}

// Get retrieves a document's metadata, excluding the stored PDF bytes.
func (c *Client) Get(ctx context.Context, id string) (*models.IndexDocument, bool, error) {
	req := opensearchapi.GetRequest{
		Index:          c.index,
		DocumentID:     id,
		SourceExcludes: []string{"filedata"},
	}
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return nil, false, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if res.IsError() {
		return nil, false, fmt.Errorf("unable to get document %s: %s", id, res.Status())
	}

	var doc Envelope[models.IndexDocument]
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("unable to decode document: %v", err)
	}
	if !doc.Found {
		return nil, false, nil
	}
	return &doc.Source, true, nil
}

// GetPDF retrieves only the stored PDF bytes for a document.
func (c *Client) GetPDF(ctx context.Context, id string) ([]byte, bool, error) {
	req := opensearchapi.GetRequest{
		Index:          c.index,
		DocumentID:     id,
		SourceIncludes: []string{"filedata"},
	}
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return nil, false, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if res.IsError() {
		return nil, false, fmt.Errorf("unable to get document %s: %s", id, res.Status())
	}

	var doc Envelope[models.IndexDocument]
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("unable to decode document: %v", err)
	}
	if !doc.Found {
		return nil, false, nil
	}
	return doc.Source.Filedata, true, nil
}

// Search runs a simple query string search over extracted account text,
// returning the raw index response with the PDF bytes excluded.
func (c *Client) Search(ctx context.Context, query string, size int) (json.RawMessage, error) {
	searchBody := map[string]any{
		"size": size,
		"query": map[string]any{
			"simple_query_string": map[string]any{
				"query":            query,
				"fields":           []string{"attachment.content"},
				"default_operator": "or",
			},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"attachment.content": map[string]any{},
			},
		},
	}
	jsonBody, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal JSON: %v", err)
	}

	req := opensearchapi.SearchRequest{
		Index:          []string{c.index},
		Body:           bytes.NewReader(jsonBody),
		SourceExcludes: []string{"filedata"},
	}
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("unable to perform search: %s", res.Status())
	}
	return io.ReadAll(res.Body)
}

func decodeError(body io.Reader) string {
	var errorMessage struct {
		Error json.RawMessage `json:"error"`
	}
	dec := json.NewDecoder(body)
	dec.Decode(&errorMessage)
	return string(errorMessage.Error)
}
