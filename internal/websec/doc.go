// Package websec holds the browser-facing security plumbing of the offline
// library UI: cookie sessions backed by SQLite, CSRF protection for form
// posts, and security headers.
//
// Sessions carry a single value, the reader key, which scopes reader state
// (what a browser tab was shown for a book) to one browser.
//
// # Configuration
//
//	SESSION_SECRET=<hex-32-bytes>   # Auto-generated if empty
//	SESSION_LIFETIME=720h           # Session cookie lifetime
//	SESSION_SECURE_COOKIES=true     # HTTPS-only cookies
//
// # Usage
//
//	sessions, err := websec.NewSessionManager(sqlDB, cfg.Session)
//	router.Use(sessions.SessionLoadSave())
//	key := sessions.ReaderKey(c.Request)
package websec
