package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/mrlokans/offlineshelf/internal/entities"
)

// BookRef is the snapshot of a remote book handed to the pipeline.
type BookRef struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Author   string         `json:"author,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RemoteBook is a book resolved from the library backend together with its binary URLs.
type RemoteBook struct {
	Book     BookRef
	PDFURL   string
	CoverURL string
}

// BookResolver looks up a book on the library backend.
type BookResolver interface {
	Resolve(ctx context.Context, id string) (*RemoteBook, error)
}

// DownloadResult describes a finished download.
type DownloadResult struct {
	Book *entities.OfflineBook
	// Warning is a *PartialDownloadError when the cover could not be stored.
	Warning error
	// Shared is true when the result was produced by an attempt that more than
	// one caller waited on.
	Shared bool
}

// Service owns the offline store handle and the set of in-flight downloads.
// It is the object UI components receive; nothing reads offline state from
// package-level variables.
//
// A DownloadBook call for an id that is already downloading joins the running
// attempt and receives its result. Only one Put per attempt is ever issued.
// The attempt outlives any single caller and is abandoned only once every
// caller waiting on it has given up.
type Service struct {
	*Registry

	store    Store
	fetcher  BinaryFetcher
	resolver BookResolver
	now      func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	inflight map[string]time.Time
	attempts map[string]*attempt

	// Writes to one id go through the same stripe.
	writeLocks [32]sync.Mutex
}

// attempt is one running download shared by every caller that joined it.
type attempt struct {
	ctx       context.Context
	cancel    context.CancelFunc
	waiters   int
	abandoned bool
}

// NewService creates a Service. resolver may be nil when downloads are always
// requested with explicit URLs.
func NewService(store Store, fetcher BinaryFetcher, resolver BookResolver) *Service {
	return &Service{
		Registry: NewRegistry(store),
		store:    store,
		fetcher:  fetcher,
		resolver: resolver,
		now:      time.Now,
		inflight: make(map[string]time.Time),
		attempts: make(map[string]*attempt),
	}
}

// SetClock replaces the time source used for SavedAt.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// IsDownloading reports whether a download for id is in flight.
func (s *Service) IsDownloading(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.inflight[id]
	return ok
}

// Downloading returns the ids currently in flight, sorted.
func (s *Service) Downloading() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.inflight))
	for id := range s.inflight {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (s *Service) begin(id string) {
	s.mu.Lock()
	s.inflight[id] = s.now()
	s.mu.Unlock()
}

func (s *Service) end(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// lockID serialises store writes for id and returns the unlock function.
func (s *Service) lockID(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &s.writeLocks[h.Sum32()%uint32(len(s.writeLocks))]
	m.Lock()
	return m.Unlock
}

// join registers the caller on the running attempt for book.ID, starting one
// if none runs. The attempt context is detached from ctx.
func (s *Service) join(ctx context.Context, book BookRef, pdfURL, coverURL string) (*attempt, <-chan singleflight.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[book.ID]
	if !ok {
		actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a = &attempt{ctx: actx, cancel: cancel}
		s.attempts[book.ID] = a
	}
	a.waiters++

	ch := s.group.DoChan(book.ID, func() (any, error) {
		s.begin(book.ID)
		defer s.end(book.ID)
		defer s.finish(book.ID, a)
		return s.download(a.ctx, book, pdfURL, coverURL)
	})
	return a, ch
}

// leave drops a waiter. The last waiter to leave abandons the attempt.
func (s *Service) leave(a *attempt, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.waiters--
	if a.waiters == 0 && !done {
		a.abandoned = true
		a.cancel()
	}
}

// finish retires a. The singleflight key is forgotten under the same lock so
// the attempt map and the running call never disagree.
func (s *Service) finish(id string, a *attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempts[id] == a {
		delete(s.attempts, id)
		s.group.Forget(id)
	}
	a.cancel()
}

func (s *Service) wasAbandoned(a *attempt) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return a.abandoned
}

// DownloadBook fetches the PDF (required) and cover (optional) of book and
// commits them as one offline copy. A cover failure is reported through
// DownloadResult.Warning; a PDF failure returns a *DownloadError and leaves
// any previous copy untouched. Storage failures are *StorageError.
func (s *Service) DownloadBook(ctx context.Context, book BookRef, pdfURL, coverURL string) (*DownloadResult, error) {
	book.ID = strings.TrimSpace(book.ID)
	pdfURL = strings.TrimSpace(pdfURL)
	coverURL = strings.TrimSpace(coverURL)

	if book.ID == "" {
		return nil, fmt.Errorf("%w: book id is required", ErrInvalidRequest)
	}
	if pdfURL == "" {
		return nil, fmt.Errorf("%w: pdf url is required for book %q", ErrInvalidRequest, book.ID)
	}

	for {
		a, ch := s.join(ctx, book, pdfURL, coverURL)

		select {
		case res := <-ch:
			s.leave(a, true)
			if res.Err != nil {
				// Joined an attempt the earlier callers had already given up on.
				if s.wasAbandoned(a) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			result := *res.Val.(*DownloadResult)
			result.Shared = res.Shared
			return &result, nil
		case <-ctx.Done():
			s.leave(a, false)
			return nil, &DownloadError{ID: book.ID, URL: pdfURL, Cause: ctx.Err()}
		}
	}
}

// DownloadByID resolves id on the library backend and downloads it.
func (s *Service) DownloadByID(ctx context.Context, id string) (*DownloadResult, error) {
	if s.resolver == nil {
		return nil, fmt.Errorf("%w: no catalog configured to resolve book %q", ErrInvalidRequest, id)
	}
	remote, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve book %q: %w", id, err)
	}
	return s.DownloadBook(ctx, remote.Book, remote.PDFURL, remote.CoverURL)
}

func (s *Service) download(ctx context.Context, book BookRef, pdfURL, coverURL string) (*DownloadResult, error) {
	started := time.Now()
	log.Printf("[OFFLINE] downloading %q (%s)", book.ID, book.Title)

	var pdfData, coverData []byte
	var coverErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := s.fetcher.Fetch(gctx, pdfURL)
		if err != nil {
			return err
		}
		pdfData = data
		return nil
	})
	if coverURL != "" {
		g.Go(func() error {
			data, err := s.fetcher.Fetch(gctx, coverURL)
			if err != nil {
				coverErr = err
				return nil
			}
			coverData = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("[OFFLINE] download of %q failed: %v", book.ID, err)
		return nil, &DownloadError{ID: book.ID, URL: pdfURL, Cause: err}
	}

	// Every caller gave up while the fetches ran: never write for this attempt.
	if err := ctx.Err(); err != nil {
		return nil, &DownloadError{ID: book.ID, URL: pdfURL, Cause: err}
	}

	record, err := entities.NewOfflineBook(book.ID, pdfData, coverData, s.now())
	if err != nil {
		return nil, &DownloadError{ID: book.ID, URL: pdfURL, Cause: err}
	}
	record.Title = book.Title
	record.Author = book.Author
	record.Metadata = snapshot(book)
	record.CoverType = detectCoverType(coverData)
	record.PageCount = countPages(pdfData)
	record.SourcePDFURL = pdfURL
	if record.HasCover() {
		record.SourceCoverURL = coverURL
	}
	if !looksLikePDF(pdfData) {
		log.Printf("[OFFLINE] payload for %q does not carry a PDF signature", book.ID)
	}

	unlock := s.lockID(book.ID)
	if err := ctx.Err(); err != nil {
		unlock()
		return nil, &DownloadError{ID: book.ID, URL: pdfURL, Cause: err}
	}
	saved, err := s.store.Put(ctx, record)
	unlock()
	if err != nil {
		log.Printf("[OFFLINE] saving %q failed: %v", book.ID, err)
		return nil, err
	}

	result := &DownloadResult{Book: saved}
	if coverURL != "" && coverErr != nil {
		result.Warning = &PartialDownloadError{ID: book.ID, URL: coverURL, Cause: coverErr}
		log.Printf("[OFFLINE] %v", result.Warning)
	}

	log.Printf("[OFFLINE] saved %q: %d bytes in %v", book.ID, saved.Size, time.Since(started).Round(time.Millisecond))
	return result, nil
}

// snapshot copies the descriptive fields of book so later changes to the
// caller's map do not leak into the stored record.
func snapshot(book BookRef) datatypes.JSONMap {
	meta := make(datatypes.JSONMap, len(book.Metadata)+2)
	for k, v := range book.Metadata {
		meta[k] = v
	}
	if _, ok := meta["title"]; !ok && book.Title != "" {
		meta["title"] = book.Title
	}
	if _, ok := meta["author"]; !ok && book.Author != "" {
		meta["author"] = book.Author
	}
	return meta
}

// VerifyReport summarises a store verification pass.
type VerifyReport struct {
	Checked    int      `json:"checked"`
	Repaired   []string `json:"repaired,omitempty"`
	Removed    []string `json:"removed,omitempty"`
	Corrupted  []string `json:"corrupted,omitempty"`
	UsageBytes int64    `json:"usage_bytes"`
}

// RemoveBook deletes the offline copy for id, serialised with downloads of id.
func (s *Service) RemoveBook(ctx context.Context, id string) error {
	unlock := s.lockID(id)
	defer unlock()
	return s.Registry.RemoveBook(ctx, id)
}

// Verify walks every stored row. Rows without a PDF are removed, since they
// can never be read. Rows whose size drifted from their payloads are re-saved.
// Rows whose PDF no longer matches its digest are reported, and removed only
// when repair is set. Each row is re-read under its write lock and left alone
// if a download replaced it after the walk started.
func (s *Service) Verify(ctx context.Context, repair bool) (*VerifyReport, error) {
	books, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{}
	var errs []error
	for i := range books {
		book := &books[i]
		report.Checked++

		if s.IsDownloading(book.ID) {
			continue
		}
		if err := s.verifyOne(ctx, book, repair, report); err != nil {
			errs = append(errs, err)
		}
	}

	report.UsageBytes = s.GetStorageUsage(ctx)

	log.Printf("[OFFLINE] verify: checked=%d repaired=%d removed=%d corrupted=%d",
		report.Checked, len(report.Repaired), len(report.Removed), len(report.Corrupted))

	return report, errors.Join(errs...)
}

func (s *Service) verifyOne(ctx context.Context, book *entities.OfflineBook, repair bool, report *VerifyReport) error {
	unlock := s.lockID(book.ID)
	defer unlock()

	current, ok, err := s.store.Get(ctx, book.ID)
	if err != nil {
		return err
	}

	switch {
	case !book.IsComplete():
		// A complete row under this id means a download landed since the walk.
		if ok {
			return nil
		}
		if err := s.store.Delete(ctx, book.ID); err != nil {
			return err
		}
		report.Removed = append(report.Removed, book.ID)

	case !ok || !sameRow(book, current):
		return nil

	case book.PDFDigest != "" && book.PDFDigest != entities.PDFDigest(book.PDFBlob):
		report.Corrupted = append(report.Corrupted, book.ID)
		if !repair {
			return nil
		}
		if err := s.store.Delete(ctx, book.ID); err != nil {
			return err
		}
		report.Removed = append(report.Removed, book.ID)

	case book.Size != book.ComputeSize() || book.PDFDigest == "":
		if _, err := s.store.Put(ctx, book); err != nil {
			return err
		}
		report.Repaired = append(report.Repaired, book.ID)
	}
	return nil
}

// sameRow reports whether current is still the row seen by the verify walk.
func sameRow(seen, current *entities.OfflineBook) bool {
	return seen.Size == current.Size &&
		seen.PDFDigest == current.PDFDigest &&
		seen.SavedAt.Equal(current.SavedAt) &&
		bytes.Equal(seen.PDFBlob, current.PDFBlob) &&
		bytes.Equal(seen.CoverBlob, current.CoverBlob)
}
