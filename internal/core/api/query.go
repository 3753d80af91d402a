package api

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/solatis/querykeeper/internal/core/db"
	"github.com/solatis/querykeeper/internal/types"
	"go.uber.org/zap"
)

// HeaderDocumentID names the stored version a GET response carries.
const HeaderDocumentID = "X-Document-Id"

// saveResponse is the body of a successful POST.
type saveResponse struct {
	Status     string           `json:"status"`
	DocumentID types.DocumentID `json:"document_id"`
	RuleCount  int              `json:"rule_count"`
}

// listParams binds GET /api/v1/query/versions query parameters.
type listParams struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// getQuery serves the latest stored tree, or the canonical empty root when
// nothing was saved yet.
func (s *Service) getQuery(c *gin.Context) {
	var body []byte
	record, err := s.store.Latest(c.Request.Context())
	switch {
	case errors.Is(err, db.ErrNoDocument):
		body, _ = json.Marshal(types.NewRoot())
	case err != nil:
		s.logger.Error("failed to load query", zap.Error(err))
		respondWithError(c, http.StatusServiceUnavailable, CodeUnavailable, "Failed to load query", nil)
		return
	default:
		body = []byte(record.Document)
		c.Header(HeaderDocumentID, string(record.DocumentID))
	}

	s.writeDocument(c, body)
}

// getVersion serves one stored version by id.
func (s *Service) getVersion(c *gin.Context) {
	id, err := types.ParseDocumentID(c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, CodeValidation, "Invalid document id", gin.H{"id": c.Param("id")})
		return
	}

	record, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, db.ErrNoDocument) {
		respondWithError(c, http.StatusNotFound, CodeNotFound, "Document not found", gin.H{"id": id})
		return
	}
	if err != nil {
		s.logger.Error("failed to load version", zap.String("document_id", string(id)), zap.Error(err))
		respondWithError(c, http.StatusServiceUnavailable, CodeUnavailable, "Failed to load document", nil)
		return
	}

	c.Header(HeaderDocumentID, string(record.DocumentID))
	s.writeDocument(c, []byte(record.Document))
}

// writeDocument sends body with a content ETag, honoring If-None-Match.
func (s *Service) writeDocument(c *gin.Context, body []byte) {
	etag := computeETag(body)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")

	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// saveQuery stores the posted tree as a new version.
// The service stores what it is given; completeness gating is the editor's job.
func (s *Service) saveQuery(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		respondWithBodyError(c, err)
		return
	}

	tree, err := types.DecodeTree(body)
	if err != nil {
		respondWithTreeError(c, err)
		return
	}

	record, err := s.store.Save(c.Request.Context(), tree)
	if err != nil {
		s.logger.Error("failed to save query", zap.Error(err))
		respondWithError(c, http.StatusServiceUnavailable, CodeUnavailable, "Failed to save query", nil)
		return
	}

	s.appendAudit(record, c.GetString(keyIDContextKey))

	s.logger.Info("saved query",
		zap.String("document_id", string(record.DocumentID)),
		zap.Int("rules", record.RuleCount))

	c.JSON(http.StatusCreated, saveResponse{
		Status:     "saved",
		DocumentID: record.DocumentID,
		RuleCount:  record.RuleCount,
	})
}

// listVersions returns stored version summaries, newest first.
func (s *Service) listVersions(c *gin.Context) {
	params := listParams{Limit: 50}
	if err := c.ShouldBindQuery(&params); err != nil {
		respondWithError(c, http.StatusBadRequest, CodeValidation, "Invalid query parameters", gin.H{"reason": err.Error()})
		return
	}

	summaries, err := s.store.List(c.Request.Context(), params.Limit)
	if err != nil {
		s.logger.Error("failed to list versions", zap.Error(err))
		respondWithError(c, http.StatusServiceUnavailable, CodeUnavailable, "Failed to list versions", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": summaries})
}

// computeETag hashes the exact bytes served; equal bodies share an ETag.
func computeETag(body []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%x", sha256.Sum256(body)))
}

// etagMatches implements If-None-Match for a single strong ETag.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
