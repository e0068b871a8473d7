package offline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mrlokans/offlineshelf/internal/entities"
)

// memoryStore is an in-process Store used by the package tests.
type memoryStore struct {
	mu    sync.Mutex
	books map[string]entities.OfflineBook
	puts  atomic.Int32
}

func newMemoryStore() *memoryStore {
	return &memoryStore{books: make(map[string]entities.OfflineBook)}
}

func (m *memoryStore) Put(ctx context.Context, book *entities.OfflineBook) (*entities.OfflineBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StorageError{Op: "put", ID: book.ID, Kind: StorageIO, Err: err}
	}
	book.Seal()
	m.mu.Lock()
	m.books[book.ID] = *book
	m.mu.Unlock()
	m.puts.Add(1)
	return book, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*entities.OfflineBook, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok || !book.IsComplete() {
		return nil, false, nil
	}
	return &book, true, nil
}

func (m *memoryStore) GetAll(_ context.Context) ([]entities.OfflineBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	books := make([]entities.OfflineBook, 0, len(m.books))
	for _, b := range m.books {
		books = append(books, b)
	}
	return books, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.books, id)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Summaries(_ context.Context) ([]entities.OfflineBookSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.OfflineBookSummary
	for _, b := range m.books {
		if b.IsComplete() {
			out = append(out, b.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) Usage(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, b := range m.books {
		if b.IsComplete() {
			total += b.Size
		}
	}
	return total, nil
}

// set stores a row as-is, bypassing Seal, to simulate damaged data.
func (m *memoryStore) set(book entities.OfflineBook) {
	m.mu.Lock()
	m.books[book.ID] = book
	m.mu.Unlock()
}

// brokenStore fails every operation, as a corrupted or unavailable database would.
type brokenStore struct{}

var errBroken = &StorageError{Op: "test", Kind: StorageCorrupted, Err: errors.New("database disk image is malformed")}

func (brokenStore) Put(context.Context, *entities.OfflineBook) (*entities.OfflineBook, error) {
	return nil, errBroken
}
func (brokenStore) Get(context.Context, string) (*entities.OfflineBook, bool, error) {
	return nil, false, errBroken
}
func (brokenStore) GetAll(context.Context) ([]entities.OfflineBook, error) { return nil, errBroken }
func (brokenStore) Delete(context.Context, string) error                  { return errBroken }
func (brokenStore) Summaries(context.Context) ([]entities.OfflineBookSummary, error) {
	return nil, errBroken
}
func (brokenStore) Usage(context.Context) (int64, error) { return 0, errBroken }

func pdfPayload(size int) []byte {
	data := make([]byte, size)
	copy(data, "%PDF-1.4\n")
	for i := 9; i < size; i++ {
		data[i] = 'x'
	}
	return data
}

// binaryServer serves fixed payloads by path and counts requests per path.
type binaryServer struct {
	*httptest.Server
	mu    sync.Mutex
	hits  map[string]int
	files map[string][]byte
	codes map[string]int
	gate  chan struct{}
}

func newBinaryServer(t *testing.T) *binaryServer {
	t.Helper()
	bs := &binaryServer{
		hits:  make(map[string]int),
		files: make(map[string][]byte),
		codes: make(map[string]int),
	}
	bs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bs.mu.Lock()
		bs.hits[r.URL.Path]++
		data, ok := bs.files[r.URL.Path]
		code := bs.codes[r.URL.Path]
		gate := bs.gate
		bs.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if code != 0 {
			w.WriteHeader(code)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(bs.Close)
	return bs
}

func (bs *binaryServer) serve(path string, data []byte) string {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.files[path] = data
	return bs.URL + path
}

func (bs *binaryServer) fail(path string, code int) string {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.codes[path] = code
	return bs.URL + path
}

func (bs *binaryServer) hold() {
	bs.mu.Lock()
	bs.gate = make(chan struct{})
	bs.mu.Unlock()
}

func (bs *binaryServer) release() {
	bs.mu.Lock()
	if bs.gate != nil {
		close(bs.gate)
		bs.gate = nil
	}
	bs.mu.Unlock()
}

func (bs *binaryServer) hitCount(path string) int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.hits[path]
}

func testFetcher() *Fetcher {
	return NewFetcher(FetcherConfig{
		Timeout:  2 * time.Second,
		MaxBytes: 1 << 20,
		Policy:   URLPolicy{AllowInsecure: true},
	})
}
