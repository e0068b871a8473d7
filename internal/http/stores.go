package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/offlineshelf/internal/entities"
	"github.com/mrlokans/offlineshelf/internal/offline"
)

// OfflineLibrary is the offline service surface the UI needs: registry
// queries, removal and downloads.
type OfflineLibrary interface {
	IsBookDownloaded(ctx context.Context, id string) bool
	GetOfflineBook(ctx context.Context, id string) (*entities.OfflineBook, bool)
	ListDownloaded(ctx context.Context) []entities.OfflineBookSummary
	GetStorageUsage(ctx context.Context) int64
	RemoveBook(ctx context.Context, id string) error

	DownloadBook(ctx context.Context, book offline.BookRef, pdfURL, coverURL string) (*offline.DownloadResult, error)
	DownloadByID(ctx context.Context, id string) (*offline.DownloadResult, error)
	IsDownloading(id string) bool
	Downloading() []string
}

// ReaderSessions hands out per-browser reader sessions.
type ReaderSessions interface {
	Session(key, bookID string) *offline.ReaderSession
	OfflineSession(key, bookID string) *offline.ReaderSession
	End(key, bookID string)
}

// ReaderKeySource identifies the browser a request comes from.
type ReaderKeySource interface {
	ReaderKey(r *http.Request) string
}

// SessionMiddleware loads the browser session around each request.
type SessionMiddleware interface {
	SessionLoadSave() gin.HandlerFunc
}

// TaskQueue enqueues background work and reports its status.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping() error
}
