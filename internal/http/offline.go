package http

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/offlineshelf/internal/entities"
	"github.com/mrlokans/offlineshelf/internal/offline"
	"github.com/mrlokans/offlineshelf/internal/tasks"
	"github.com/mrlokans/offlineshelf/internal/utils"
)

// OfflineController exposes the offline library to the reading UI.
type OfflineController struct {
	library         OfflineLibrary
	queue           TaskQueue
	quotaBytes      int64
	downloadTimeout time.Duration
}

// NewOfflineController creates a new OfflineController. queue may be nil.
func NewOfflineController(library OfflineLibrary, queue TaskQueue, quotaBytes int64, downloadTimeout time.Duration) *OfflineController {
	if downloadTimeout <= 0 {
		downloadTimeout = 10 * time.Minute
	}
	return &OfflineController{
		library:         library,
		queue:           queue,
		quotaBytes:      quotaBytes,
		downloadTimeout: downloadTimeout,
	}
}

// DownloadRequest is the body of POST /api/offline/books. Without PDFURL the
// book is resolved through the catalog by id.
type DownloadRequest struct {
	Book     offline.BookRef `json:"book"`
	BookID   string          `json:"book_id"`
	PDFURL   string          `json:"pdf_url"`
	CoverURL string          `json:"cover_url"`
}

// DownloadResponse reports a finished download.
type DownloadResponse struct {
	Book    entities.OfflineBookSummary `json:"book"`
	Warning string                      `json:"warning,omitempty"`
	Shared  bool                        `json:"shared,omitempty"`
}

// LibraryResponse lists the offline library.
type LibraryResponse struct {
	Books      []entities.OfflineBookSummary `json:"books"`
	Count      int                           `json:"count"`
	UsageBytes int64                         `json:"usage_bytes"`
}

// UsageResponse reports storage consumption.
type UsageResponse struct {
	UsageBytes int64 `json:"usage_bytes"`
	QuotaBytes int64 `json:"quota_bytes,omitempty"`
	Count      int   `json:"count"`
}

// StatusResponse reports the offline state of one book.
type StatusResponse struct {
	ID          string `json:"id"`
	Downloaded  bool   `json:"downloaded"`
	Downloading bool   `json:"downloading"`
}

// ListBooks handles GET /api/offline/books
func (oc *OfflineController) ListBooks(c *gin.Context) {
	ctx := c.Request.Context()
	books := oc.library.ListDownloaded(ctx)

	c.JSON(http.StatusOK, LibraryResponse{
		Books:      books,
		Count:      len(books),
		UsageBytes: oc.library.GetStorageUsage(ctx),
	})
}

// DownloadBook handles POST /api/offline/books
// With ?async=true the download is queued and 202 is returned with the task id.
func (oc *OfflineController) DownloadBook(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Book.ID == "" {
		req.Book.ID = req.BookID
	}
	req.Book.ID = strings.TrimSpace(req.Book.ID)
	if req.Book.ID == "" {
		respondBadRequest(c, "book id is required")
		return
	}

	if queryBool(c, "async") {
		oc.enqueueDownload(c, req)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), oc.downloadTimeout)
	defer cancel()

	var (
		result *offline.DownloadResult
		err    error
	)
	if req.PDFURL == "" {
		result, err = oc.library.DownloadByID(ctx, req.Book.ID)
	} else {
		result, err = oc.library.DownloadBook(ctx, req.Book, req.PDFURL, req.CoverURL)
	}
	if err != nil {
		respondOfflineError(c, err, "download "+req.Book.ID)
		return
	}

	resp := DownloadResponse{Book: result.Book.Summary(), Shared: result.Shared}
	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
	}
	respondCreated(c, resp)
}

func (oc *OfflineController) enqueueDownload(c *gin.Context, req DownloadRequest) {
	if oc.queue == nil {
		respondError(c, http.StatusServiceUnavailable, "background tasks are disabled", "tasks_disabled")
		return
	}

	taskID, err := oc.queue.Enqueue(c.Request.Context(), tasks.DownloadBookTask{
		Book:     req.Book,
		PDFURL:   req.PDFURL,
		CoverURL: req.CoverURL,
	})
	if err != nil {
		respondInternalError(c, err, "enqueue download")
		return
	}

	respondAccepted(c, "download queued", gin.H{"task_id": taskID, "book_id": req.Book.ID})
}

// GetBook handles GET /api/offline/books/:id
func (oc *OfflineController) GetBook(c *gin.Context) {
	id, ok := bookIDParam(c)
	if !ok {
		return
	}

	book, found := oc.library.GetOfflineBook(c.Request.Context(), id)
	if !found {
		respondNotFound(c, "offline copy")
		return
	}
	c.JSON(http.StatusOK, book.Summary())
}

// GetStatus handles GET /api/offline/books/:id/status
func (oc *OfflineController) GetStatus(c *gin.Context) {
	id, ok := bookIDParam(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		ID:          id,
		Downloaded:  oc.library.IsBookDownloaded(c.Request.Context(), id),
		Downloading: oc.library.IsDownloading(id),
	})
}

// RemoveBook handles DELETE /api/offline/books/:id
// Removing a book that is not cached succeeds.
func (oc *OfflineController) RemoveBook(c *gin.Context) {
	id, ok := bookIDParam(c)
	if !ok {
		return
	}

	if err := oc.library.RemoveBook(c.Request.Context(), id); err != nil {
		respondOfflineError(c, err, "remove "+id)
		return
	}
	respondSuccess(c, "offline copy removed")
}

// GetCover handles GET /api/offline/books/:id/cover
// Books saved without a cover get a generated placeholder.
func (oc *OfflineController) GetCover(c *gin.Context) {
	id, ok := bookIDParam(c)
	if !ok {
		return
	}

	book, found := oc.library.GetOfflineBook(c.Request.Context(), id)
	if !found {
		respondNotFound(c, "offline copy")
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	if !book.HasCover() {
		c.Data(http.StatusOK, "image/svg+xml", placeholderCover(book.ID, book.Title))
		return
	}

	contentType := book.CoverType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, book.CoverBlob)
}

// GetPDF handles GET /api/offline/books/:id/pdf
func (oc *OfflineController) GetPDF(c *gin.Context) {
	id, ok := bookIDParam(c)
	if !ok {
		return
	}

	book, found := oc.library.GetOfflineBook(c.Request.Context(), id)
	if !found {
		respondNotFound(c, "offline copy")
		return
	}

	servePDF(c, utils.PDFFilename(book.Title, book.Author, book.ID), book.PDFDigest, book.PDFBlob)
}

// GetUsage handles GET /api/offline/usage
func (oc *OfflineController) GetUsage(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, UsageResponse{
		UsageBytes: oc.library.GetStorageUsage(ctx),
		QuotaBytes: oc.quotaBytes,
		Count:      len(oc.library.ListDownloaded(ctx)),
	})
}

// ListDownloads handles GET /api/offline/downloads
func (oc *OfflineController) ListDownloads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"downloading": oc.library.Downloading()})
}

// servePDF writes a PDF with its digest as ETag, answering 304 on a match.
func servePDF(c *gin.Context, filename, digest string, data []byte) {
	if digest != "" {
		etag := `"` + digest + `"`
		c.Header("ETag", etag)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}
	c.Header("Cache-Control", "private, no-cache")
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// placeholderCover renders a plain SVG cover carrying the book title.
func placeholderCover(id, title string) []byte {
	if title == "" {
		title = "Untitled"
	}
	if runes := []rune(title); len(runes) > 40 {
		title = string(runes[:39]) + "…"
	}
	background, ink := utils.PlaceholderColors(id)
	return []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="200" height="300" viewBox="0 0 200 300">` +
		`<rect width="200" height="300" fill="` + background + `"/>` +
		`<rect x="12" y="12" width="176" height="276" fill="none" stroke="` + ink + `" stroke-opacity="0.5" stroke-width="2"/>` +
		`<text x="100" y="150" font-family="Georgia, serif" font-size="14" fill="` + ink + `" text-anchor="middle">` +
		html.EscapeString(title) + `</text></svg>`)
}
