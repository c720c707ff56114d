package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drkane/docdisplay-backend/pkg/index"
	"github.com/drkane/docdisplay-backend/pkg/index/indextest"
	"github.com/drkane/docdisplay-backend/pkg/ingest"
	"github.com/drkane/docdisplay-backend/pkg/models"
	"github.com/drkane/docdisplay-backend/pkg/pdftext/pdftest"
)

func newIngestor(t *testing.T) (*ingest.Ingestor, *indextest.Server) {
	t.Helper()
	srv := indextest.NewServer()
	t.Cleanup(srv.Close)

	idx, err := index.New(index.Config{Addr: srv.URL()})
	require.NoError(t, err)
	return ingest.New(idx), srv
}

func testCharity() models.Charity {
	fye, _ := time.Parse("2006-01-02", "2020-12-31")
	return models.Charity{
		Regno:  "123",
		FYE:    fye,
		Name:   "Test Charity",
		Income: "100000",
	}
}

func TestIngest(t *testing.T) {
	ing, srv := newIngestor(t)

	result, err := ing.Ingest(context.Background(), testCharity(), pdftest.Build("Annual accounts text"), false)
	require.NoError(t, err)
	assert.Equal(t, "123-20201231", result.ID)
	assert.Equal(t, "created", result.Result)
	assert.Empty(t, result.Error)

	doc, ok := srv.Doc("123-20201231")
	require.True(t, ok)
	assert.Equal(t, "123-20201231.pdf", doc["filename"])
	assert.Equal(t, "123", doc["regno"])
	assert.Equal(t, "2020-12-31", doc["fye"])
	assert.Equal(t, "Test Charity", doc["name"])

	attachment, ok := doc["attachment"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, attachment["content"], "Annual accounts text")
	assert.Contains(t, attachment["content"], "<span id='page-0'></span>")
}

func TestIngestTwiceOverwrites(t *testing.T) {
	ing, srv := newIngestor(t)
	ctx := context.Background()

	_, err := ing.Ingest(ctx, testCharity(), pdftest.Build("First version"), false)
	require.NoError(t, err)

	result, err := ing.Ingest(ctx, testCharity(), pdftest.Build("Second version"), false)
	require.NoError(t, err)
	assert.Equal(t, "updated", result.Result)

	require.Equal(t, 1, srv.DocCount())
	doc, _ := srv.Doc("123-20201231")
	attachment := doc["attachment"].(map[string]any)
	assert.Contains(t, attachment["content"], "Second version")
	assert.NotContains(t, attachment["content"], "First version")
}

func TestIngestSkipIfExists(t *testing.T) {
	ing, srv := newIngestor(t)
	ctx := context.Background()

	_, err := ing.Ingest(ctx, testCharity(), pdftest.Build("Original"), false)
	require.NoError(t, err)

	// garbage bytes prove extraction is never attempted on the skip path
	result, err := ing.Ingest(ctx, testCharity(), []byte("not parseable"), true)
	require.NoError(t, err)
	assert.Equal(t, "already exists", result.Result)
	assert.Equal(t, "123-20201231", result.ID)

	doc, _ := srv.Doc("123-20201231")
	attachment := doc["attachment"].(map[string]any)
	assert.Contains(t, attachment["content"], "Original")
}

func TestIngestExtractionFailureIsSoft(t *testing.T) {
	ing, srv := newIngestor(t)

	result, err := ing.Ingest(context.Background(), testCharity(), pdftest.Build(""), false)
	require.NoError(t, err)
	assert.Equal(t, "error", result.Result)
	assert.Equal(t, "ExtractionError: No content found in PDF", result.Error)
	assert.Equal(t, 0, srv.DocCount())
}
