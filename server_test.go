package backend_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backend "github.com/drkane/docdisplay-backend"
	"github.com/drkane/docdisplay-backend/pkg/fetch"
	"github.com/drkane/docdisplay-backend/pkg/index"
	"github.com/drkane/docdisplay-backend/pkg/index/indextest"
	"github.com/drkane/docdisplay-backend/pkg/pdftext/pdftest"
	"github.com/drkane/docdisplay-backend/pkg/storage/fs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) (*backend.Server, *indextest.Server) {
	t.Helper()
	osrv := indextest.NewServer()
	t.Cleanup(osrv.Close)

	idx, err := index.New(index.Config{Addr: osrv.URL()})
	require.NoError(t, err)

	session := fetch.NewSession()
	registry, err := fetch.NewRegistry(session, "test-key")
	require.NoError(t, err)

	return backend.New(idx, registry, session), osrv
}

func do(s *backend.Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestGetDocument(t *testing.T) {
	s, osrv := newServer(t)
	osrv.Seed("123-20201231", map[string]any{
		"regno":    "123",
		"fye":      "2020-12-31",
		"filename": "123-20201231.pdf",
		"filedata": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
	})

	w := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/documents/123-20201231", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "123", doc["regno"])
	assert.Equal(t, "2020-12-31", doc["fye"])
	// the stored PDF bytes stay out of the metadata response
	assert.Empty(t, doc["filedata"])
}

func TestGetDocumentNotFound(t *testing.T) {
	s, _ := newServer(t)
	w := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/documents/123-20201231", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDocumentBadId(t *testing.T) {
	s, _ := newServer(t)
	w := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/documents/not..a..doc..id", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDocumentPDF(t *testing.T) {
	s, osrv := newServer(t)
	pdf := []byte("%PDF-1.4 content")
	osrv.Seed("123-20201231", map[string]any{
		"regno":    "123",
		"filedata": base64.StdEncoding.EncodeToString(pdf),
	})

	w := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/documents/123-20201231/pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, pdf, w.Body.Bytes())
}

func TestSearch(t *testing.T) {
	s, osrv := newServer(t)
	osrv.Seed("123-20201231", map[string]any{
		"regno": "123",
		"attachment": map[string]any{
			"content": "grant making charity",
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"searchTerm":"grant"}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(s, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Hits struct {
			Hits []struct {
				Id string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Hits.Hits, 1)
	assert.Equal(t, "123-20201231", res.Hits.Hits[0].Id)
}

func TestSearchBadBody(t *testing.T) {
	s, _ := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := do(s, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadDocument(t *testing.T) {
	s, osrv := newServer(t)
	pdf := pdftest.Build("Annual report and accounts")

	w := do(s, uploadRequest(t, "123456_20201231.pdf", pdf, map[string]string{
		"name": "Test Charity",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data struct {
			ID     string `json:"id"`
			Result string `json:"result"`
		} `json:"data"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "123456-20201231", res.Data.ID)
	assert.Equal(t, "created", res.Data.Result)
	assert.Empty(t, res.Errors)

	doc, ok := osrv.Doc("123456-20201231")
	require.True(t, ok)
	assert.Equal(t, "123456", doc["regno"])
	assert.Equal(t, "2020-12-31", doc["fye"])
	assert.Equal(t, "Test Charity", doc["name"])
}

func TestUploadDocumentExplicitFields(t *testing.T) {
	s, osrv := newServer(t)
	pdf := pdftest.Build("Accounts")

	w := do(s, uploadRequest(t, "accounts.pdf", pdf, map[string]string{
		"regno": "999",
		"fye":   "2021-06-30",
	}))
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := osrv.Doc("999-20210630")
	assert.True(t, ok)
}

func TestUploadDocumentArchives(t *testing.T) {
	osrv := indextest.NewServer()
	t.Cleanup(osrv.Close)
	idx, err := index.New(index.Config{Addr: osrv.URL()})
	require.NoError(t, err)
	session := fetch.NewSession()
	registry, err := fetch.NewRegistry(session, "test-key")
	require.NoError(t, err)

	dir := t.TempDir()
	s := backend.New(idx, registry, session, backend.WithArchive(fs.New(dir)))

	pdf := pdftest.Build("Accounts")
	w := do(s, uploadRequest(t, "123456_20201231.pdf", pdf, nil))
	require.Equal(t, http.StatusOK, w.Code)

	archived, err := os.ReadFile(filepath.Join(dir, "123456_20201231.pdf"))
	require.NoError(t, err)
	assert.Equal(t, pdf, archived)
}

func TestUploadDocumentUnparseableFilename(t *testing.T) {
	s, _ := newServer(t)
	w := do(s, uploadRequest(t, "accounts.pdf", []byte("%PDF-1.4"), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var res struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Errors)
}

func TestUploadDocumentNoFile(t *testing.T) {
	s, _ := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents",
		strings.NewReader("regno=123"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(s, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAccounts(t *testing.T) {
	s, _ := newServer(t)

	defer gock.Off()
	gock.New("https://www.charitycommissionni.org.uk").
		Get("/charity-details/").
		MatchParam("regId", "100001").
		Reply(http.StatusOK).
		BodyString(fmt.Sprintf(`<html><body><article id="documents">
			<a href="https://apps.charitycommission.gov.uk/ccni_ar_attachments/%s_%s_CA.pdf">Accounts</a>
		</article></body></html>`, "100001", "20201231"))

	w := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/charities/NI100001/accounts", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Regno    string `json:"regno"`
		Source   string `json:"source"`
		Accounts []struct {
			Fyend string `json:"fyend"`
			URL   string `json:"url"`
		} `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "NI100001", res.Regno)
	assert.Equal(t, "ccni", res.Source)
	require.Len(t, res.Accounts, 1)
	assert.Equal(t, "https://apps.charitycommission.gov.uk/ccni_ar_attachments/100001_20201231_CA.pdf", res.Accounts[0].URL)
}
