package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/offlineshelf/internal/offline"
)

// QueueDownloadBook is the queue name of offline download tasks.
const QueueDownloadBook = "download_book"

// BookDownloader is the part of the offline service the download queue needs.
type BookDownloader interface {
	DownloadBook(ctx context.Context, book offline.BookRef, pdfURL, coverURL string) (*offline.DownloadResult, error)
	DownloadByID(ctx context.Context, id string) (*offline.DownloadResult, error)
}

// DownloadBookTask saves an offline copy of one book. When PDFURL is empty the
// book is resolved through the catalog first.
type DownloadBookTask struct {
	Book     offline.BookRef `json:"book"`
	PDFURL   string          `json:"pdf_url,omitempty"`
	CoverURL string          `json:"cover_url,omitempty"`
}

// Config returns the queue configuration for offline download tasks.
func (t DownloadBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueDownloadBook,
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DownloadBookProcessor creates a processor function for DownloadBookTask.
func DownloadBookProcessor(downloader BookDownloader) backlite.QueueProcessor[DownloadBookTask] {
	return func(ctx context.Context, task DownloadBookTask) error {
		if downloader == nil {
			return fmt.Errorf("offline service not configured")
		}

		var (
			result *offline.DownloadResult
			err    error
		)
		if task.PDFURL == "" {
			result, err = downloader.DownloadByID(ctx, task.Book.ID)
		} else {
			result, err = downloader.DownloadBook(ctx, task.Book, task.PDFURL, task.CoverURL)
		}

		// Retrying cannot fix a malformed request.
		if errors.Is(err, offline.ErrInvalidRequest) {
			log.Printf("[TASK] dropping download of %q: %v", task.Book.ID, err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("download book %q: %w", task.Book.ID, err)
		}

		if result.Warning != nil {
			log.Printf("[TASK] saved %q (%d bytes) with warning: %v", result.Book.ID, result.Book.Size, result.Warning)
		} else {
			log.Printf("[TASK] saved %q (%d bytes)", result.Book.ID, result.Book.Size)
		}
		return nil
	}
}

// NewDownloadBookQueue creates a backlite queue for offline download tasks.
func NewDownloadBookQueue(downloader BookDownloader) backlite.Queue {
	return backlite.NewQueue(DownloadBookProcessor(downloader))
}
