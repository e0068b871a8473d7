package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/offlineshelf/internal/offline"
	"github.com/mrlokans/offlineshelf/internal/utils"
)

// ReaderController serves book content to the reading UI, falling back to the
// offline library when the network copy cannot be fetched.
type ReaderController struct {
	reader   ReaderSessions
	sessions ReaderKeySource
}

// NewReaderController creates a new ReaderController.
func NewReaderController(reader ReaderSessions, sessions ReaderKeySource) *ReaderController {
	return &ReaderController{reader: reader, sessions: sessions}
}

// Read handles GET /reader/:id
// Query: url (network PDF location), refresh=1 (re-fetch), offline=1 (cache only).
func (rc *ReaderController) Read(c *gin.Context) {
	rc.load(c, offline.LoadOptions{
		PDFURL:      c.Query("url"),
		Refresh:     queryBool(c, "refresh"),
		OfflineOnly: queryBool(c, "offline"),
	})
}

// ReadOffline handles GET /offline/:id, the offline library's reader entry point.
func (rc *ReaderController) ReadOffline(c *gin.Context) {
	rc.load(c, offline.LoadOptions{
		Refresh:     queryBool(c, "refresh"),
		OfflineOnly: true,
	})
}

// EndSession handles DELETE /reader/:id
func (rc *ReaderController) EndSession(c *gin.Context) {
	id, ok := bookIDParam(c)
	if !ok {
		return
	}
	rc.reader.End(rc.sessions.ReaderKey(c.Request), id)
	c.Status(http.StatusNoContent)
}

func (rc *ReaderController) load(c *gin.Context, opts offline.LoadOptions) {
	id, ok := bookIDParam(c)
	if !ok {
		return
	}

	key := rc.sessions.ReaderKey(c.Request)
	session := rc.reader.Session(key, id)
	if opts.OfflineOnly {
		session = rc.reader.OfflineSession(key, id)
	}
	content, err := session.Load(c.Request.Context(), opts)
	if err != nil {
		var unavailable *offline.UnavailableError
		if errors.As(err, &unavailable) {
			rc.respondUnavailable(c, id)
			return
		}
		respondInternalError(c, err, "reader load "+id)
		return
	}

	c.Header("X-Offline-Source", string(content.Source))
	c.Header("X-Reader-State", string(session.State()))
	if !content.SavedAt.IsZero() {
		c.Header("X-Offline-Saved-At", content.SavedAt.UTC().Format(http.TimeFormat))
	}
	servePDF(c, utils.PDFFilename(content.Title, "", content.BookID), content.Digest, content.PDF)
}

func (rc *ReaderController) respondUnavailable(c *gin.Context, id string) {
	if wantsHTML(c) {
		c.HTML(http.StatusNotFound, "unavailable.html", gin.H{"BookID": id})
		return
	}
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "book is not available offline",
		Code:    "offline_unavailable",
		Details: gin.H{"book_id": id, "library_url": "/"},
	})
}
