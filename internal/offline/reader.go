package offline

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrlokans/offlineshelf/internal/entities"
)

// ReaderState is the position of a reader session in its state machine.
//
//	init ──url──▶ serving_network
//	  │             (fetch failed) ──▶ network_failed ─┐
//	  └──no url──▶ no_url ─────────────────────────────┤
//	                                                   ▼
//	                      serving_offline ◀─ cached ─ lookup ─ missing ─▶ unavailable
type ReaderState string

const (
	StateInit           ReaderState = "init"
	StateServingNetwork ReaderState = "serving_network"
	StateNetworkFailed  ReaderState = "network_failed"
	StateNoURL          ReaderState = "no_url"
	StateServingOffline ReaderState = "serving_offline"
	StateUnavailable    ReaderState = "unavailable"
)

// ContentSource says where the bytes handed to the reader came from.
type ContentSource string

const (
	SourceNetwork ContentSource = "network"
	SourceOffline ContentSource = "offline"
)

// ReaderContent is the document a reader session renders.
type ReaderContent struct {
	BookID  string
	Title   string
	Source  ContentSource
	PDF     []byte
	Digest  string
	SavedAt time.Time
}

// LoadOptions controls a single Load call.
type LoadOptions struct {
	// PDFURL is the network location of the document; empty means no URL.
	PDFURL string
	// Refresh asks for network content even if the session already serves a document.
	Refresh bool
	// OfflineOnly skips the network, as the offline reader entry point does.
	OfflineOnly bool
}

// Reader decides, per session and book, whether to render network or cached content.
type Reader struct {
	fetcher  BinaryFetcher
	registry *Registry

	mu       sync.Mutex
	sessions map[sessionKey]*ReaderSession
}

type sessionKey struct {
	session     string
	bookID      string
	offlineOnly bool
}

// NewReader creates a Reader. fetcher may be nil, in which case every session
// reads from the offline library only.
func NewReader(fetcher BinaryFetcher, registry *Registry) *Reader {
	return &Reader{
		fetcher:  fetcher,
		registry: registry,
		sessions: make(map[sessionKey]*ReaderSession),
	}
}

// Session returns the reader session for (key, bookID), creating it on first use.
func (r *Reader) Session(key, bookID string) *ReaderSession {
	return r.session(sessionKey{session: key, bookID: bookID})
}

// OfflineSession returns the offline-only reader session for (key, bookID).
// It never touches the network and never shares content with Session.
func (r *Reader) OfflineSession(key, bookID string) *ReaderSession {
	return r.session(sessionKey{session: key, bookID: bookID, offlineOnly: true})
}

func (r *Reader) session(k sessionKey) *ReaderSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[k]; ok {
		return s
	}
	s := &ReaderSession{reader: r, bookID: k.bookID, offlineOnly: k.offlineOnly, state: StateInit}
	s.touch()
	r.sessions[k] = s
	return s
}

// End discards both reader sessions for (key, bookID).
func (r *Reader) End(key, bookID string) {
	r.mu.Lock()
	delete(r.sessions, sessionKey{session: key, bookID: bookID})
	delete(r.sessions, sessionKey{session: key, bookID: bookID, offlineOnly: true})
	r.mu.Unlock()
}

// Prune discards sessions idle for longer than maxIdle and returns how many were dropped.
func (r *Reader) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for k, s := range r.sessions {
		if s.lastUsed.Load() < cutoff {
			delete(r.sessions, k)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of live sessions.
func (r *Reader) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ReaderSession tracks what one reader has been shown for one book. Content,
// once served, stays for the life of the session unless a refresh is requested.
type ReaderSession struct {
	reader      *Reader
	bookID      string
	offlineOnly bool

	mu       sync.Mutex
	state    ReaderState
	content  *ReaderContent
	lastUsed atomic.Int64
}

func (s *ReaderSession) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// BookID returns the book this session reads.
func (s *ReaderSession) BookID() string {
	return s.bookID
}

// State returns the current state.
func (s *ReaderSession) State() ReaderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load returns the content to render. It tries the network when a URL is
// given, falls back to the offline copy when the fetch fails or no URL is
// given, and returns *UnavailableError when neither has the book.
func (s *ReaderSession) Load(ctx context.Context, opts LoadOptions) (*ReaderContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.offlineOnly {
		opts.OfflineOnly = true
	}
	if s.content != nil && !opts.Refresh {
		return s.content, nil
	}

	previousState, previous := s.state, s.content
	s.state = StateInit

	var networkErr error
	if opts.PDFURL != "" && !opts.OfflineOnly && s.reader.fetcher != nil {
		data, err := s.reader.fetcher.Fetch(ctx, opts.PDFURL)
		if err == nil {
			s.state = StateServingNetwork
			s.content = &ReaderContent{
				BookID: s.bookID,
				Source: SourceNetwork,
				PDF:    data,
				Digest: entities.PDFDigest(data),
			}
			return s.content, nil
		}
		networkErr = err
		s.state = StateNetworkFailed
		log.Printf("[READER] network load of %q failed, trying offline copy: %v", s.bookID, err)
	} else {
		s.state = StateNoURL
	}

	if book, ok := s.reader.registry.GetOfflineBook(ctx, s.bookID); ok {
		s.state = StateServingOffline
		s.content = &ReaderContent{
			BookID:  book.ID,
			Title:   book.Title,
			Source:  SourceOffline,
			PDF:     book.PDFBlob,
			Digest:  book.PDFDigest,
			SavedAt: book.SavedAt,
		}
		return s.content, nil
	}

	// A failed refresh keeps showing what the reader already has.
	if previous != nil {
		s.state = previousState
		return previous, nil
	}

	s.state = StateUnavailable
	return nil, &UnavailableError{BookID: s.bookID, NetworkErr: networkErr}
}
