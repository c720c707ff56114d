package backend

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/fetch"
	"github.com/drkane/docdisplay-backend/pkg/index"
	"github.com/drkane/docdisplay-backend/pkg/ingest"
	"github.com/drkane/docdisplay-backend/pkg/models"
	"github.com/drkane/docdisplay-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "backend")

// Server is the JSON API over the charity accounts index and the
// regulator registers.
type Server struct {
	e        *gin.Engine
	idx      *index.Client
	ingestor *ingest.Ingestor
	registry *fetch.Registry
	session  *fetch.Session
	archive  model.Storer
}

type Option func(*Server)

// WithArchive keeps a copy of every uploaded account PDF in the given
// store, alongside the indexed document.
func WithArchive(store model.Storer) Option {
	return func(s *Server) {
		s.archive = store
	}
}

func New(idx *index.Client, registry *fetch.Registry, session *fetch.Session, opts ...Option) *Server {
	s := Server{
		e:        gin.New(),
		idx:      idx,
		ingestor: ingest.New(idx),
		registry: registry,
		session:  session,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.initRoutes()
	return &s
}

func (s *Server) Run(addr string) error {
	return s.e.Run(addr)
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) initRoutes() {
	s.e.Use(gin.Logger())
	s.e.Use(cors.Default())

	g := s.e.Group("/api/v1")
	g.POST("/search", s.handleSearch)
	g.GET("/documents/:id", s.handleGetDocument)
	g.GET("/documents/:id/pdf", s.handleGetDocumentPDF)
	g.POST("/documents", s.handleUploadDocument)
	g.GET("/charities/:regno/accounts", s.handleListAccounts)
}

var badRequest = gin.H{
	"error": "bad request",
}

var internalServerError = gin.H{
	"error": "internal server error",
}

var notFound = gin.H{
	"error": "not found",
}

type SearchRequest struct {
	SearchTerm string `json:"searchTerm"`
}

const searchResultSize = 50

func (s *Server) handleSearch(c *gin.Context) {
	var searchRequest SearchRequest
	err := c.BindJSON(&searchRequest)
	if err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}

	res, err := s.idx.Search(c.Request.Context(), searchRequest.SearchTerm, searchResultSize)
	if err != nil {
		log.Errorf("unable to perform search: %v", err)
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}

	c.Data(http.StatusOK, "application/json", res)
}

var docIdRegexp = regexp.MustCompile("^[0-9A-Za-z]+-[0-9]{8}$")

func (s *Server) handleGetDocument(c *gin.Context) {
	docId := c.Param("id")
	if !docIdRegexp.MatchString(docId) {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}

	doc, found, err := s.idx.Get(c.Request.Context(), docId)
	if err != nil {
		log.Errorf("unable to get document %s: %v", docId, err)
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleGetDocumentPDF(c *gin.Context) {
	docId := c.Param("id")
	if !docIdRegexp.MatchString(docId) {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}

	pdf, found, err := s.idx.GetPDF(c.Request.Context(), docId)
	if err != nil {
		log.Errorf("unable to get document %s: %v", docId, err)
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", docId+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// handleUploadDocument ingests a single account PDF, supplied either as a
// multipart "file" or as a "url" form value for the server to fetch. The
// charity number and year end come from the form when given and are
// recovered from the filename otherwise.
func (s *Server) handleUploadDocument(c *gin.Context) {
	content, filename, err := s.uploadContent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{err.Error()}})
		return
	}

	charity := models.Charity{
		Regno:    c.PostForm("regno"),
		Name:     c.PostForm("name"),
		Income:   c.PostForm("income"),
		Spending: c.PostForm("spending"),
		Assets:   c.PostForm("assets"),
	}
	if fye := c.PostForm("fye"); fye != "" {
		charity.FYE, err = time.Parse("2006-01-02", fye)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []string{
				fmt.Sprintf("unable to parse financial year end %q", fye),
			}})
			return
		}
	}
	if charity.Regno == "" || charity.FYE.IsZero() {
		regno, fyend, err := models.ParseAccountFilename(filename)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []string{
				"charity number and financial year end are required when they cannot be read from the filename",
			}})
			return
		}
		if charity.Regno == "" {
			charity.Regno = regno
		}
		if charity.FYE.IsZero() {
			charity.FYE = fyend
		}
	}

	skipIfExists := c.PostForm("skip_if_exists") != ""
	result, err := s.ingestor.Ingest(c.Request.Context(), charity, content, skipIfExists)
	if err != nil {
		log.Errorf("unable to ingest document: %v", err)
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}

	if s.archive != nil && result.Error == "" {
		name := models.AccountFilename(charity.Regno, charity.FYE)
		if _, err := s.archive.Store(c.Request.Context(), name, bytes.NewReader(content), int64(len(content))); err != nil {
			log.Warnf("unable to archive %s: %v", name, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   result,
		"errors": []string{},
	})
}

func (s *Server) uploadContent(c *gin.Context) ([]byte, string, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, "", fmt.Errorf("unable to open uploaded file: %v", err)
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return nil, "", fmt.Errorf("unable to read uploaded file: %v", err)
		}
		return content, file.Filename, nil
	}

	fileURL := c.PostForm("url")
	if fileURL == "" {
		return nil, "", errors.New("either a file or a url is required")
	}
	u, err := url.Parse(fileURL)
	if err != nil {
		return nil, "", fmt.Errorf("unable to parse url %q: %v", fileURL, err)
	}
	res, err := s.session.Get(c.Request.Context(), fileURL)
	if err != nil {
		return nil, "", fmt.Errorf("unable to fetch %s: %v", fileURL, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, "", fmt.Errorf("unable to fetch %s: status %d", fileURL, res.StatusCode)
	}
	return res.Body, path.Base(u.Path), nil
}

func (s *Server) handleListAccounts(c *gin.Context) {
	regno := c.Param("regno")
	source := s.registry.SourceFor(regno)

	accounts, err := source.ListAccounts(c.Request.Context(), regno)
	if err != nil {
		var notFoundErr *fetch.NotFoundError
		if errors.As(err, &notFoundErr) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("unable to list accounts for %s: %v", regno, err)
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"regno":    regno,
		"source":   source.Name(),
		"accounts": accounts,
	})
}
