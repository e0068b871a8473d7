package offline

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest indicates a usage error, such as a download without a PDF URL.
var ErrInvalidRequest = errors.New("invalid offline request")

// ErrStorage matches every *StorageError via errors.Is.
var ErrStorage = errors.New("offline storage failure")

// ErrDownload matches every *DownloadError via errors.Is.
var ErrDownload = errors.New("offline download failure")

// ErrURLNotAllowed is returned when a binary URL violates the fetch policy.
var ErrURLNotAllowed = errors.New("url not allowed")

// StorageKind classifies a storage failure for the UI.
type StorageKind string

const (
	StorageQuotaExceeded StorageKind = "quota_exceeded"
	StorageUnavailable   StorageKind = "unavailable"
	StorageCorrupted     StorageKind = "corrupted"
	StorageIO            StorageKind = "io"
)

// StorageError reports that persistent storage could not complete an operation.
// The store is left in its prior state.
type StorageError struct {
	Op   string
	ID   string
	Kind StorageKind
	Err  error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("offline storage %s %q (%s): %v", e.Op, e.ID, e.Kind, e.Err)
	}
	return fmt.Sprintf("offline storage %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsQuotaExceeded reports whether err is a storage failure caused by running out of space.
func IsQuotaExceeded(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == StorageQuotaExceeded
}

// DownloadError reports that the required PDF could not be fetched.
// No record is written or updated when it is returned.
type DownloadError struct {
	ID    string
	URL   string
	Cause error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download book %q: %v", e.ID, e.Cause)
}

func (e *DownloadError) Unwrap() error { return e.Cause }

func (e *DownloadError) Is(target error) bool { return target == ErrDownload }

// PartialDownloadError is a non-fatal warning: the PDF was stored but the
// cover could not be fetched. It is carried in DownloadResult.Warning.
type PartialDownloadError struct {
	ID    string
	URL   string
	Cause error
}

func (e *PartialDownloadError) Error() string {
	return fmt.Sprintf("book %q saved without cover: %v", e.ID, e.Cause)
}

func (e *PartialDownloadError) Unwrap() error { return e.Cause }

// HTTPStatusError is returned for non-2xx responses from a binary endpoint.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// UnavailableError is returned by the reader when neither the network nor the
// offline library can provide the book. It is distinct from network errors so
// the UI can point the user at the offline library instead of retrying.
type UnavailableError struct {
	BookID     string
	NetworkErr error
}

func (e *UnavailableError) Error() string {
	if e.NetworkErr != nil {
		return fmt.Sprintf("book %q is not available offline (network: %v)", e.BookID, e.NetworkErr)
	}
	return fmt.Sprintf("book %q is not available offline", e.BookID)
}

func (e *UnavailableError) Unwrap() error { return e.NetworkErr }

// IsUnavailable reports whether err is a reader UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
