package offlinebooks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/offlineshelf/internal/entities"
	"github.com/mrlokans/offlineshelf/internal/offline"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "offline.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.OfflineBook{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return db, NewRepository(db)
}

func newBook(t *testing.T, id string, pdfSize int, cover []byte, savedAt time.Time) *entities.OfflineBook {
	t.Helper()
	pdf := make([]byte, pdfSize)
	copy(pdf, "%PDF-1.4")
	book, err := entities.NewOfflineBook(id, pdf, cover, savedAt)
	require.NoError(t, err)
	book.Title = "Book " + id
	return book
}

func TestRepository_PutAndGet(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()
	savedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	book := newBook(t, "42", 10000, nil, savedAt)
	book.Metadata = map[string]any{"publisher": "Ace"}
	_, err := repo.Put(ctx, book)
	require.NoError(t, err)

	got, ok, err := repo.Get(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Book 42", got.Title)
	assert.Equal(t, int64(10000), got.Size)
	assert.Len(t, got.PDFBlob, 10000)
	assert.Nil(t, got.CoverBlob)
	assert.Equal(t, entities.PDFDigest(got.PDFBlob), got.PDFDigest)
	assert.Equal(t, "Ace", got.Metadata["publisher"])
	assert.True(t, savedAt.Equal(got.SavedAt))
}

func TestRepository_GetMissing(t *testing.T) {
	_, repo := setupTestDB(t)

	got, ok, err := repo.Get(context.Background(), "nope")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRepository_PutRejectsIncomplete(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.Put(context.Background(), &entities.OfflineBook{ID: "1", Title: "metadata only"})

	assert.ErrorIs(t, err, offline.ErrInvalidRequest)
	used, err := repo.Usage(context.Background())
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestRepository_PutOverwrites(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.Put(ctx, newBook(t, "7", 100, []byte("cover"), time.Now()))
	require.NoError(t, err)

	replacement := newBook(t, "7", 300, nil, time.Now())
	replacement.Title = "Second edition"
	_, err = repo.Put(ctx, replacement)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&entities.OfflineBook{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, ok, err := repo.Get(ctx, "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Second edition", got.Title)
	assert.False(t, got.HasCover())
	assert.Equal(t, int64(300), got.Size)
}

func TestRepository_PutRecomputesSize(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	book := newBook(t, "9", 50, []byte("12345"), time.Now())
	book.Size = 1
	_, err := repo.Put(ctx, book)
	require.NoError(t, err)

	got, _, err := repo.Get(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, int64(55), got.Size)
}

func TestRepository_DeleteIsIdempotent(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()
	_, err := repo.Put(ctx, newBook(t, "42", 10, nil, time.Now()))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "42"))
	require.NoError(t, repo.Delete(ctx, "42"))
	require.NoError(t, repo.Delete(ctx, "never-saved"))

	_, ok, err := repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_SummariesAndUsage(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.Put(ctx, newBook(t, "old", 100, nil, base))
	require.NoError(t, err)
	_, err = repo.Put(ctx, newBook(t, "new", 200, []byte("cover"), base.Add(time.Hour)))
	require.NoError(t, err)

	// A row that bypassed Put and lacks a PDF is never listed or counted.
	require.NoError(t, db.Exec(
		"INSERT INTO offline_books (id, title, pdf_blob, size, saved_at) VALUES (?, ?, ?, ?, ?)",
		"broken", "Broken", []byte{}, 999, base).Error)

	summaries, err := repo.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "new", summaries[0].ID)
	assert.True(t, summaries[0].HasCover)
	assert.Equal(t, "old", summaries[1].ID)
	assert.False(t, summaries[1].HasCover)

	used, err := repo.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, summaries[0].Size+summaries[1].Size, used)
	assert.Equal(t, int64(305), used)

	_, ok, err := repo.Get(ctx, "broken")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRepository_Quota(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()
	repo.SetQuota(1000)
	assert.Equal(t, int64(1000), repo.Quota())

	_, err := repo.Put(ctx, newBook(t, "a", 600, nil, time.Now()))
	require.NoError(t, err)

	_, err = repo.Put(ctx, newBook(t, "b", 500, nil, time.Now()))
	require.Error(t, err)
	assert.True(t, offline.IsQuotaExceeded(err))
	assert.ErrorIs(t, err, offline.ErrStorage)

	_, ok, err := repo.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	// Replacing a record only counts the new payload against the quota.
	_, err = repo.Put(ctx, newBook(t, "a", 900, nil, time.Now()))
	require.NoError(t, err)

	used, err := repo.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(900), used)
}

func TestRepository_ClosedDatabase(t *testing.T) {
	db, repo := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.Put(context.Background(), newBook(t, "x", 10, nil, time.Now()))

	var storageErr *offline.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, offline.StorageUnavailable, storageErr.Kind)

	_, _, err = repo.Get(context.Background(), "x")
	assert.ErrorIs(t, err, offline.ErrStorage)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want offline.StorageKind
	}{
		{"quota", errQuota, offline.StorageQuotaExceeded},
		{"disk full", sqlite3.Error{Code: sqlite3.ErrFull}, offline.StorageQuotaExceeded},
		{"corrupt", sqlite3.Error{Code: sqlite3.ErrCorrupt}, offline.StorageCorrupted},
		{"not a database", sqlite3.Error{Code: sqlite3.ErrNotADB}, offline.StorageCorrupted},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, offline.StorageUnavailable},
		{"readonly", sqlite3.Error{Code: sqlite3.ErrReadonly}, offline.StorageUnavailable},
		{"other", errors.New("disk I/O error"), offline.StorageIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
