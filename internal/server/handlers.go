package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"verbum/internal/docquery"
	"verbum/internal/hierarchy"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleHierarchy returns the full document tree for visualization.
func (s *Server) handleHierarchy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"hierarchy": s.walker.Hierarchy()})
}

// handleLevel0Distances returns pairwise semantic distances between the "Me"
// node and the top-level folders. An empty matrix means nothing was
// computable, not an error.
func (s *Server) handleLevel0Distances(c *gin.Context) {
	matrix := s.engine.ComputeLevel0(c.Request.Context())
	c.JSON(http.StatusOK, matrix)
}

// handleDocument serves a document's text content. PDF bytes are not
// streamed; PDFs get their metadata so the client can fetch them elsewhere.
func (s *Server) handleDocument(c *gin.Context) {
	rel, ok := cleanRelPath(c.Param("path"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document path"})
		return
	}
	if !hierarchy.IsDocument(rel) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not a document: " + rel})
		return
	}
	if strings.EqualFold(filepath.Ext(rel), ".pdf") {
		resp := gin.H{
			"filename": filepath.Base(rel),
			"path":     rel,
			"type":     "pdf",
		}
		if preview, err := s.queries.Preview(rel, 1000); err == nil {
			resp["preview"] = preview
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	data, err := os.ReadFile(s.walker.Abs(rel))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cannot read document: " + rel})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"content":  string(data),
		"filename": filepath.Base(rel),
	})
}

// handleDocumentQuery answers a natural-language question about a document.
func (s *Server) handleDocumentQuery(c *gin.Context) {
	var req struct {
		Path  string `json:"path" binding:"required"`
		Query string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rel, ok := cleanRelPath(req.Path)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document path"})
		return
	}
	answer, err := s.queries.Query(c.Request.Context(), rel, req.Query)
	if err != nil {
		if errors.Is(err, docquery.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "completion provider not configured"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

// handleProfile returns the current profile and its textual summary.
func (s *Server) handleProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"profile": s.profile.Snapshot(),
		"summary": s.profile.Summarize(),
	})
}

// handleClick records a navigation event, bumps interest in the clicked
// domain and suggests a likely next destination.
func (s *Server) handleClick(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.profile.RecordClick(req.Path)
	s.profile.UpdateDomainInterest(topLevelDomain(req.Path), 0)

	resp := gin.H{}
	if suggestion, ok := s.profile.PredictNextClick(req.Path); ok {
		resp["suggestion"] = suggestion
	}
	c.JSON(http.StatusOK, resp)
}

// handleInterest bumps the interest weight of a domain directly.
func (s *Server) handleInterest(c *gin.Context) {
	var req struct {
		Domain string  `json:"domain" binding:"required"`
		Amount float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.profile.UpdateDomainInterest(req.Domain, req.Amount)
	weight, _ := s.profile.DomainWeight(req.Domain)
	c.JSON(http.StatusOK, gin.H{"domain": req.Domain, "weight": weight})
}

// cleanRelPath normalizes a client-supplied document path and rejects
// attempts to escape the library root.
func cleanRelPath(p string) (string, bool) {
	rel := filepath.Clean(strings.TrimPrefix(p, "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", false
	}
	return rel, true
}

func topLevelDomain(path string) string {
	if i := strings.Index(path, "/"); i >= 0 {
		return path[:i]
	}
	return path
}
