// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help code agents understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Offline Cache Interfaces
//
//   - Store: persistence of offline copies (internal/offline/store.go)
//   - BinaryFetcher: retrieval of covers and PDFs (internal/offline/fetcher.go)
//   - BookResolver: lookup of a book's binary URLs by id (internal/offline/service.go)
//
// ## HTTP Layer Interfaces
//
//   - OfflineLibrary: downloads and registry queries (internal/http/stores.go)
//   - ReaderSessions: per-browser reader state machines (internal/http/stores.go)
//   - ReaderKeySource: browser identity for reader sessions (internal/http/stores.go)
//   - TaskQueue: background downloads and job status (internal/http/stores.go)
//
// ## Background Work Interfaces
//
//   - BookDownloader, StoreVerifier: queue processors (internal/tasks)
//   - TaskEnqueuer, SessionPruner: scheduled maintenance (internal/scheduler)
//
// # Implementing a New Store
//
// A Store must treat rows without a PDF as absent, recompute Size on every
// Put and wrap every failure in *offline.StorageError. Add a compile-time check
// to checks.go:
//
//	var _ offline.Store = (*mystore.Repository)(nil)
//
// # Compile-Time Checks
//
// See checks.go for the full list of interface implementation checks.
package interfaces
