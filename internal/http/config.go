package http

import (
	"time"
)

// RouterConfig contains all dependencies and configuration needed to create
// the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Library  OfflineLibrary
	Reader   ReaderSessions
	Database Pinger

	// Optional background queue; async downloads are refused without it.
	TaskQueue TaskQueue

	// Sessions scope reader state to a browser. Required for reader routes.
	Sessions ReaderKeySource

	// SessionMiddleware loads and saves sessions; nil when Sessions is a stub.
	SessionMiddleware SessionMiddleware

	// CSRF protection for the library page form posts.
	CSRFSecret    []byte
	SecureCookies bool

	// QuotaBytes is reported by the usage endpoint; zero means unlimited.
	QuotaBytes int64

	// DownloadTimeout bounds synchronous downloads made by the API.
	DownloadTimeout time.Duration

	// Application info
	Version string
}
