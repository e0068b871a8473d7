package entities

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"gorm.io/datatypes"
)

// ErrMissingPDF is returned when a record is built without a PDF payload.
// A record without a PDF is never a downloaded book.
var ErrMissingPDF = errors.New("offline book has no PDF payload")

// ErrMissingID is returned when a record is built without a book identifier.
var ErrMissingID = errors.New("offline book has no identifier")

// OfflineBook is a complete offline copy of a book: metadata snapshot, PDF
// bytes and an optional cover. There is no metadata-only variant.
type OfflineBook struct {
	ID             string            `gorm:"primaryKey;size:191" json:"id"`
	Title          string            `gorm:"size:512" json:"title"`
	Author         string            `gorm:"size:256" json:"author,omitempty"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	CoverBlob      []byte            `json:"-"`
	CoverType      string            `gorm:"size:100" json:"cover_type,omitempty"`
	PDFBlob        []byte            `gorm:"column:pdf_blob;not null" json:"-"`
	PDFDigest      string            `gorm:"column:pdf_digest;size:64" json:"pdf_digest"`
	PageCount      int               `json:"page_count,omitempty"`
	SourcePDFURL   string            `gorm:"column:source_pdf_url;size:2048" json:"source_pdf_url,omitempty"`
	SourceCoverURL string            `gorm:"size:2048" json:"source_cover_url,omitempty"`
	SavedAt        time.Time         `gorm:"index" json:"saved_at"`
	Size           int64             `json:"size"`
}

func (OfflineBook) TableName() string {
	return "offline_books"
}

// OfflineBookSummary is the blob-free view of an offline copy used by library listings.
type OfflineBookSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
	Size      int64     `json:"size"`
	HasCover  bool      `json:"has_cover"`
	PageCount int       `json:"page_count,omitempty"`
}

// NewOfflineBook builds a storable record. The PDF payload is mandatory; the
// cover may be nil. Size and digest are derived from the payloads.
func NewOfflineBook(id string, pdf, cover []byte, savedAt time.Time) (*OfflineBook, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingID
	}
	if len(pdf) == 0 {
		return nil, ErrMissingPDF
	}
	if len(cover) == 0 {
		cover = nil
	}

	book := &OfflineBook{
		ID:        id,
		PDFBlob:   pdf,
		CoverBlob: cover,
		SavedAt:   savedAt,
	}
	book.Seal()
	return book, nil
}

// Seal recomputes the derived fields (size and digest) from the current payloads.
// Every write path calls it so the stored size cannot drift from the blobs.
func (b *OfflineBook) Seal() {
	b.Size = b.ComputeSize()
	b.PDFDigest = PDFDigest(b.PDFBlob)
	if len(b.CoverBlob) == 0 {
		b.CoverBlob = nil
		b.CoverType = ""
	}
}

// ComputeSize returns the byte length of the cover and PDF payloads.
func (b *OfflineBook) ComputeSize() int64 {
	return int64(len(b.CoverBlob) + len(b.PDFBlob))
}

// IsComplete reports whether the record is a usable offline copy.
func (b *OfflineBook) IsComplete() bool {
	return b != nil && len(b.PDFBlob) > 0
}

// HasCover reports whether a cover image was stored.
func (b *OfflineBook) HasCover() bool {
	return len(b.CoverBlob) > 0
}

// Summary returns the listing view of the record.
func (b *OfflineBook) Summary() OfflineBookSummary {
	return OfflineBookSummary{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		SavedAt:   b.SavedAt,
		Size:      b.Size,
		HasCover:  b.HasCover(),
		PageCount: b.PageCount,
	}
}

// PDFDigest returns the hex BLAKE2b-256 digest of a PDF payload.
func PDFDigest(pdf []byte) string {
	if len(pdf) == 0 {
		return ""
	}
	sum := blake2b.Sum256(pdf)
	return hex.EncodeToString(sum[:])
}
