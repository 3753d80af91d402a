package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/solatis/querykeeper/internal/core/auth"
	"github.com/solatis/querykeeper/internal/types"
)

// Error codes returned in APIError.Code.
const (
	CodeInvalidTree     = "INVALID_TREE"
	CodeTreeTooDeep     = "TREE_TOO_DEEP"
	CodeBodyTooLarge    = "BODY_TOO_LARGE"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeNotFound        = "NOT_FOUND"
	CodeUnavailable     = "STORAGE_UNAVAILABLE"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// respondWithError writes an APIError and aborts the handler chain.
func respondWithError(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, APIError{Code: code, Message: message, Details: details})
}

// respondWithTreeError maps a decode failure to a status and code.
func respondWithTreeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrTreeTooDeep):
		respondWithError(c, http.StatusUnprocessableEntity, CodeTreeTooDeep, err.Error(),
			gin.H{"max_depth": types.MaxTreeDepth})
	default:
		respondWithError(c, http.StatusBadRequest, CodeInvalidTree, "Invalid rule tree", gin.H{"reason": err.Error()})
	}
}

// respondWithAuthError maps a signature failure. Every failure is 401 so
// the response does not reveal which key ids exist.
func respondWithAuthError(c *gin.Context, err error) {
	message := auth.ErrInvalidSignature.Error()
	if errors.Is(err, auth.ErrMissingSignature) {
		message = err.Error()
	}
	respondWithError(c, http.StatusUnauthorized, CodeUnauthenticated, message, nil)
}
