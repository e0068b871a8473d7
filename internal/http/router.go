package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/offlineshelf/internal/websec"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(websec.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(websec.StrictTransportSecurityMiddleware())
	}

	// Reader sessions are keyed by the browser session
	if cfg.SessionMiddleware != nil {
		router.Use(cfg.SessionMiddleware.SessionLoadSave())
	}

	router.SetHTMLTemplate(loadTemplates())

	health := NewHealthController(cfg.Database, cfg.Version)
	offlineController := NewOfflineController(cfg.Library, cfg.TaskQueue, cfg.QuotaBytes, cfg.DownloadTimeout)
	libraryController := NewLibraryController(cfg.Library, cfg.QuotaBytes)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Offline library page; form posts are CSRF protected
	pages := router.Group("/")
	if len(cfg.CSRFSecret) > 0 {
		pages.Use(websec.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	pages.GET("/", libraryController.LibraryPage)
	pages.POST("/library/books/:id/remove", libraryController.RemoveBook)

	// Offline library API
	api := router.Group("/api/offline")
	api.GET("/books", offlineController.ListBooks)
	api.POST("/books", offlineController.DownloadBook)
	api.GET("/books/:id", offlineController.GetBook)
	api.GET("/books/:id/status", offlineController.GetStatus)
	api.DELETE("/books/:id", offlineController.RemoveBook)
	api.GET("/books/:id/cover", offlineController.GetCover)
	api.GET("/books/:id/pdf", offlineController.GetPDF)
	api.GET("/usage", offlineController.GetUsage)
	api.GET("/downloads", offlineController.ListDownloads)

	// Reader
	if cfg.Reader != nil && cfg.Sessions != nil {
		readerController := NewReaderController(cfg.Reader, cfg.Sessions)
		router.GET("/reader/:id", readerController.Read)
		router.DELETE("/reader/:id", readerController.EndSession)
		router.GET("/offline/:id", readerController.ReadOffline)
	}

	// Background jobs
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue)
		router.GET("/api/tasks/types", tasksController.ListTaskTypes)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/api/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
