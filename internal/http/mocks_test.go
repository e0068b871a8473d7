package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/offlineshelf/internal/entities"
	"github.com/mrlokans/offlineshelf/internal/offline"
)

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// mockLibrary is an in-memory OfflineLibrary.
type mockLibrary struct {
	mu          sync.Mutex
	books       map[string]*entities.OfflineBook
	downloading []string

	downloadErr    error
	downloadWarn   error
	removeErr      error
	lastDownload   offline.BookRef
	lastPDFURL     string
	lastCoverURL   string
	downloadedByID []string
}

func newMockLibrary() *mockLibrary {
	return &mockLibrary{books: make(map[string]*entities.OfflineBook)}
}

func (m *mockLibrary) add(book *entities.OfflineBook) {
	m.mu.Lock()
	m.books[book.ID] = book
	m.mu.Unlock()
}

func (m *mockLibrary) IsBookDownloaded(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.books[id]
	return ok
}

func (m *mockLibrary) GetOfflineBook(_ context.Context, id string) (*entities.OfflineBook, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	return b, ok
}

func (m *mockLibrary) ListDownloaded(_ context.Context) []entities.OfflineBookSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entities.OfflineBookSummary, 0, len(m.books))
	for _, b := range m.books {
		out = append(out, b.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockLibrary) GetStorageUsage(_ context.Context) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, b := range m.books {
		total += b.Size
	}
	return total
}

func (m *mockLibrary) RemoveBook(_ context.Context, id string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.mu.Lock()
	delete(m.books, id)
	m.mu.Unlock()
	return nil
}

func (m *mockLibrary) DownloadBook(_ context.Context, book offline.BookRef, pdfURL, coverURL string) (*offline.DownloadResult, error) {
	m.lastDownload, m.lastPDFURL, m.lastCoverURL = book, pdfURL, coverURL
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	record, err := entities.NewOfflineBook(book.ID, []byte("%PDF-1.4 test"), nil, fixedTime)
	if err != nil {
		return nil, errors.Join(offline.ErrInvalidRequest, err)
	}
	record.Title = book.Title
	m.add(record)
	return &offline.DownloadResult{Book: record, Warning: m.downloadWarn}, nil
}

func (m *mockLibrary) DownloadByID(ctx context.Context, id string) (*offline.DownloadResult, error) {
	m.downloadedByID = append(m.downloadedByID, id)
	return m.DownloadBook(ctx, offline.BookRef{ID: id, Title: "Resolved " + id}, "https://books.example.com/"+id+".pdf", "")
}

func (m *mockLibrary) IsDownloading(id string) bool {
	for _, d := range m.downloading {
		if d == id {
			return true
		}
	}
	return false
}

func (m *mockLibrary) Downloading() []string {
	return append([]string{}, m.downloading...)
}

// mockQueue records enqueued tasks.
type mockQueue struct {
	tasks      []backlite.Task
	statuses   map[string]backlite.TaskStatus
	enqueueErr error
}

func (q *mockQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	if q.enqueueErr != nil {
		return "", q.enqueueErr
	}
	q.tasks = append(q.tasks, task)
	return fmt.Sprintf("task-%d", len(q.tasks)), nil
}

func (q *mockQueue) Status(_ context.Context, taskID string) (backlite.TaskStatus, error) {
	if s, ok := q.statuses[taskID]; ok {
		return s, nil
	}
	return backlite.TaskStatusNotFound, nil
}

// stubKeys identifies browsers by the X-Test-Reader header.
type stubKeys struct{}

func (stubKeys) ReaderKey(r *http.Request) string {
	if key := r.Header.Get("X-Test-Reader"); key != "" {
		return key
	}
	return "default"
}
