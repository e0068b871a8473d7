package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/offlineshelf/internal/catalog"
	"github.com/mrlokans/offlineshelf/internal/offline"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "invalid_request"})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "not_found"})
}

// respondInternalError logs the error and sends a 500 response without exposing it.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message, code string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondOfflineError maps offline pipeline and storage failures onto HTTP statuses.
func respondOfflineError(c *gin.Context, err error, context string) {
	var storageErr *offline.StorageError

	switch {
	case errors.Is(err, offline.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, err.Error(), "invalid_request")
	case errors.Is(err, offline.ErrURLNotAllowed):
		respondError(c, http.StatusBadRequest, err.Error(), "url_not_allowed")
	case errors.As(err, &storageErr):
		log.Printf("[OFFLINE] %s: %v", context, err)
		if storageErr.Kind == offline.StorageQuotaExceeded {
			respondError(c, http.StatusInsufficientStorage, "cannot save offline copy: storage is full", string(storageErr.Kind))
			return
		}
		respondError(c, http.StatusServiceUnavailable, "cannot save offline copy", "storage_"+string(storageErr.Kind))
	case errors.Is(err, offline.ErrDownload):
		log.Printf("[OFFLINE] %s: %v", context, err)
		respondError(c, http.StatusBadGateway, err.Error(), "download_failed")
	case errors.Is(err, catalog.ErrBookNotFound):
		respondError(c, http.StatusNotFound, err.Error(), "book_not_found")
	case errors.Is(err, catalog.ErrBookNotReadable):
		respondError(c, http.StatusUnprocessableEntity, err.Error(), "book_not_readable")
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// bookIDParam extracts the book id from the URL. Ids are opaque strings.
func bookIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondBadRequest(c, "book id is required")
		return "", false
	}
	return id, true
}

// queryBool reads a boolean-ish query flag: "1", "true", "yes" or "on".
func queryBool(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// wantsHTML reports whether the client prefers an HTML response.
func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
