// Package indextest provides an in-memory fake of the OpenSearch
// document API subset the pipeline uses, for tests that need a real
// HTTP round trip without a running cluster.
package indextest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Server emulates index creation, put-by-id, exists, get and search.
type Server struct {
	mu           sync.Mutex
	indexCreated bool
	docs         map[string]map[string]any

	httpServer *httptest.Server
}

func NewServer() *Server {
	s := &Server{docs: map[string]map[string]any{}}
	s.httpServer = httptest.NewServer(s)
	return s
}

func (s *Server) URL() string {
	return s.httpServer.URL
}

func (s *Server) Close() {
	s.httpServer.Close()
}

// DocCount reports the number of stored documents.
func (s *Server) DocCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Doc returns a stored document's source by id.
func (s *Server) Doc(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// Seed stores a document directly, bypassing the HTTP surface.
func (s *Server) Seed(id string, source map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = source
}

// MarkIndexCreated makes subsequent index-creation requests return 400,
// as OpenSearch does for an existing index.
func (s *Server) MarkIndexCreated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexCreated = true
}

func (s *Server) IndexCreated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexCreated
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)

	case len(parts) == 1 && r.Method == http.MethodPut:
		if s.indexCreated {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"type": "resource_already_exists_exception"},
			})
			return
		}
		s.indexCreated = true
		json.NewEncoder(w).Encode(map[string]any{"acknowledged": true})

	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodPut:
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		result := "created"
		if _, ok := s.docs[parts[2]]; ok {
			result = "updated"
		}
		s.docs[parts[2]] = doc
		json.NewEncoder(w).Encode(map[string]any{"_id": parts[2], "result": result})

	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodHead:
		if _, ok := s.docs[parts[2]]; ok {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}

	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodGet:
		doc, ok := s.docs[parts[2]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"found": false})
			return
		}
		source := map[string]any{}
		for k, v := range doc {
			source[k] = v
		}
		if excludes := r.URL.Query().Get("_source_excludes"); excludes != "" {
			for _, excluded := range strings.Split(excludes, ",") {
				delete(source, excluded)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"_index":  parts[0],
			"_id":     parts[2],
			"found":   true,
			"_source": source,
		})

	case len(parts) == 2 && parts[1] == "_search":
		hits := make([]any, 0, len(s.docs))
		for id, doc := range s.docs {
			source := map[string]any{}
			for k, v := range doc {
				if k != "filedata" {
					source[k] = v
				}
			}
			hits = append(hits, map[string]any{
				"_index":  parts[0],
				"_id":     id,
				"_source": source,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{
				"total": map[string]any{"value": len(hits)},
				"hits":  hits,
			},
		})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
