// Package offlinebooks provides the SQLite-backed store for offline book copies.
//
// This package implements the offline.Store interface used by the offline service.
//
// # Interface Implementation
//
//	var _ offline.Store = (*Repository)(nil)
//
// # Usage
//
//	repo := offlinebooks.NewRepository(db.DB)
//	repo.SetQuota(512 << 20)
//	saved, err := repo.Put(ctx, book)
package offlinebooks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/offlineshelf/internal/entities"
	"github.com/mrlokans/offlineshelf/internal/offline"
)

var _ offline.Store = (*Repository)(nil)

// errQuota is raised inside the Put transaction when the byte quota would be exceeded.
var errQuota = errors.New("offline storage quota exceeded")

const completeCondition = "pdf_blob IS NOT NULL AND length(pdf_blob) > 0"

// Repository handles all offline book database operations.
type Repository struct {
	db       *gorm.DB
	maxBytes int64
}

// NewRepository creates a new offline book repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SetQuota limits the total bytes held by complete records. Zero disables the limit.
func (r *Repository) SetQuota(maxBytes int64) {
	if maxBytes < 0 {
		maxBytes = 0
	}
	r.maxBytes = maxBytes
}

// Quota returns the configured byte limit, zero when unlimited.
func (r *Repository) Quota() int64 {
	return r.maxBytes
}

// Put writes the record in a single transaction, replacing any record with the
// same id. Derived fields are recomputed before the write.
func (r *Repository) Put(ctx context.Context, book *entities.OfflineBook) (*entities.OfflineBook, error) {
	if book == nil || !book.IsComplete() {
		return nil, fmt.Errorf("%w: %v", offline.ErrInvalidRequest, entities.ErrMissingPDF)
	}
	if strings.TrimSpace(book.ID) == "" {
		return nil, fmt.Errorf("%w: %v", offline.ErrInvalidRequest, entities.ErrMissingID)
	}

	book.Seal()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.maxBytes > 0 {
			var used int64
			err := tx.Model(&entities.OfflineBook{}).
				Where("id <> ?", book.ID).
				Where(completeCondition).
				Select("COALESCE(SUM(size), 0)").
				Scan(&used).Error
			if err != nil {
				return err
			}
			if used+book.Size > r.maxBytes {
				return errQuota
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(book).Error
	})
	if err != nil {
		return nil, storageError("put", book.ID, err)
	}

	return book, nil
}

// Get returns the complete record for id. A missing or incomplete record is
// reported as (nil, false, nil).
func (r *Repository) Get(ctx context.Context, id string) (*entities.OfflineBook, bool, error) {
	var book entities.OfflineBook
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageError("get", id, err)
	}
	if !book.IsComplete() {
		return nil, false, nil
	}
	return &book, true, nil
}

// GetAll returns every stored row, including incomplete ones, in no particular order.
func (r *Repository) GetAll(ctx context.Context) ([]entities.OfflineBook, error) {
	var books []entities.OfflineBook
	if err := r.db.WithContext(ctx).Find(&books).Error; err != nil {
		return nil, storageError("get_all", "", err)
	}
	return books, nil
}

// Delete removes the record for id. Deleting an unknown id is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.OfflineBook{}).Error
	if err != nil {
		return storageError("delete", id, err)
	}
	return nil
}

// Summaries lists complete records, newest first, without loading payloads.
func (r *Repository) Summaries(ctx context.Context) ([]entities.OfflineBookSummary, error) {
	var summaries []entities.OfflineBookSummary
	err := r.db.WithContext(ctx).Model(&entities.OfflineBook{}).
		Select("id, title, author, saved_at, size, page_count, " +
			"(cover_blob IS NOT NULL AND length(cover_blob) > 0) AS has_cover").
		Where(completeCondition).
		Order("saved_at DESC, id ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, storageError("summaries", "", err)
	}
	return summaries, nil
}

// Usage sums the size of every complete record.
func (r *Repository) Usage(ctx context.Context) (int64, error) {
	var used int64
	err := r.db.WithContext(ctx).Model(&entities.OfflineBook{}).
		Where(completeCondition).
		Select("COALESCE(SUM(size), 0)").
		Scan(&used).Error
	if err != nil {
		return 0, storageError("usage", "", err)
	}
	return used, nil
}

// storageError wraps a database failure into an offline.StorageError.
func storageError(op, id string, err error) error {
	return &offline.StorageError{Op: op, ID: id, Kind: classify(err), Err: err}
}

func classify(err error) offline.StorageKind {
	if errors.Is(err, errQuota) {
		return offline.StorageQuotaExceeded
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrFull:
			return offline.StorageQuotaExceeded
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return offline.StorageCorrupted
		case sqlite3.ErrCantOpen, sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrReadonly:
			return offline.StorageUnavailable
		}
	}

	if strings.Contains(err.Error(), "database is closed") {
		return offline.StorageUnavailable
	}
	return offline.StorageIO
}
