package offline

import (
	"context"
	"log"

	"github.com/mrlokans/offlineshelf/internal/entities"
)

// Registry answers per-book and aggregate questions about the offline library.
// Read paths never fail: store errors are logged and turned into empty results
// so offline browsing keeps working on a damaged cache. Write paths return
// their errors.
type Registry struct {
	store Store
}

// NewRegistry creates a Registry over store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// IsBookDownloaded reports whether a complete offline copy exists for id.
func (r *Registry) IsBookDownloaded(ctx context.Context, id string) bool {
	_, ok, err := r.store.Get(ctx, id)
	if err != nil {
		log.Printf("[OFFLINE] is-downloaded check for %q failed: %v", id, err)
		return false
	}
	return ok
}

// GetOfflineBook returns the complete offline copy for id.
func (r *Registry) GetOfflineBook(ctx context.Context, id string) (*entities.OfflineBook, bool) {
	book, ok, err := r.store.Get(ctx, id)
	if err != nil {
		log.Printf("[OFFLINE] load of %q failed: %v", id, err)
		return nil, false
	}
	if !ok || !book.IsComplete() {
		return nil, false
	}
	return book, true
}

// ListDownloaded returns summaries of every complete offline copy, newest first.
func (r *Registry) ListDownloaded(ctx context.Context) []entities.OfflineBookSummary {
	summaries, err := r.store.Summaries(ctx)
	if err != nil {
		log.Printf("[OFFLINE] listing offline books failed: %v", err)
		return []entities.OfflineBookSummary{}
	}
	if summaries == nil {
		return []entities.OfflineBookSummary{}
	}
	return summaries
}

// GetAllOfflineBooks is the UI-facing name of ListDownloaded.
func (r *Registry) GetAllOfflineBooks(ctx context.Context) []entities.OfflineBookSummary {
	return r.ListDownloaded(ctx)
}

// GetStorageUsage returns the bytes held by complete offline copies.
func (r *Registry) GetStorageUsage(ctx context.Context) int64 {
	used, err := r.store.Usage(ctx)
	if err != nil {
		log.Printf("[OFFLINE] storage usage query failed: %v", err)
		return 0
	}
	return used
}

// RemoveBook deletes the offline copy for id. Removing a book that is not
// cached succeeds.
func (r *Registry) RemoveBook(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[OFFLINE] removed offline copy of %q", id)
	return nil
}
