package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/solatis/querykeeper/internal/core/auth"
	"github.com/solatis/querykeeper/internal/types"
	"go.uber.org/zap"
)

// keyIDContextKey holds the authenticated secret id in the gin context.
const keyIDContextKey = "qk.key_id"

// errBodyTooLarge marks a request body above types.MaxDocumentSize.
var errBodyTooLarge = errors.New("request body exceeds maximum document size")

// requestLogger logs one line per request.
func (s *Service) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.logger.Error("request failed", fields...)
		default:
			s.logger.Debug("request", fields...)
		}
	}
}

// readBody reads at most types.MaxDocumentSize bytes of the request body.
// The body is restored so later handlers can read it again.
func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, types.MaxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > types.MaxDocumentSize {
		return nil, errBodyTooLarge
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// requireSignature verifies the HMAC headers when secrets are configured.
func (s *Service) requireSignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.auth.Enabled() {
			c.Next()
			return
		}

		sig, err := auth.ParseSignature(
			c.GetHeader(auth.HeaderKeyID),
			c.GetHeader(auth.HeaderTimestamp),
			c.GetHeader(auth.HeaderSignature),
		)
		if err != nil {
			respondWithAuthError(c, err)
			return
		}

		body, err := readBody(c)
		if err != nil {
			respondWithBodyError(c, err)
			return
		}

		if err := s.auth.Verify(sig, c.Request.Method, c.Request.URL.Path, body); err != nil {
			s.logger.Warn("rejected request signature",
				zap.String("key_id", sig.KeyID),
				zap.Error(err))
			respondWithAuthError(c, err)
			return
		}

		c.Set(keyIDContextKey, sig.KeyID)
		c.Next()
	}
}

func respondWithBodyError(c *gin.Context, err error) {
	if errors.Is(err, errBodyTooLarge) {
		respondWithError(c, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, err.Error(),
			gin.H{"max_bytes": types.MaxDocumentSize})
		return
	}
	respondWithError(c, http.StatusBadRequest, CodeInvalidTree, "Failed to read request body", gin.H{"reason": err.Error()})
}
