package http

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/offlineshelf/internal/websec"
)

//go:embed templates/*.html
var templateFS embed.FS

// loadTemplates parses the embedded HTML templates.
func loadTemplates() *template.Template {
	funcMap := template.FuncMap{
		"humanBytes": humanBytes,
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"))
}

// LibraryController renders the offline library page.
type LibraryController struct {
	library    OfflineLibrary
	quotaBytes int64
}

// NewLibraryController creates a new LibraryController.
func NewLibraryController(library OfflineLibrary, quotaBytes int64) *LibraryController {
	return &LibraryController{library: library, quotaBytes: quotaBytes}
}

// LibraryPage handles GET /
func (lc *LibraryController) LibraryPage(c *gin.Context) {
	ctx := c.Request.Context()
	books := lc.library.ListDownloaded(ctx)

	c.HTML(http.StatusOK, "library.html", gin.H{
		"Books":       books,
		"UsageBytes":  lc.library.GetStorageUsage(ctx),
		"QuotaBytes":  lc.quotaBytes,
		"Downloading": lc.library.Downloading(),
		"CSRFField":   websec.CSRFTokenField(c),
		"Error":       c.Query("error"),
		"Message":     c.Query("message"),
	})
}

// RemoveBook handles POST /library/books/:id/remove
func (lc *LibraryController) RemoveBook(c *gin.Context) {
	id, ok := bookIDParam(c)
	if !ok {
		return
	}

	if err := lc.library.RemoveBook(c.Request.Context(), id); err != nil {
		c.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape("Could not remove the offline copy. Try again."))
		return
	}
	c.Redirect(http.StatusSeeOther, "/?message="+url.QueryEscape("Offline copy removed."))
}

// humanBytes formats a byte count with binary units.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
