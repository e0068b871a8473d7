package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/offlineshelf/internal/catalog"
	"github.com/mrlokans/offlineshelf/internal/database"
	"github.com/mrlokans/offlineshelf/internal/database/offlinebooks"
	"github.com/mrlokans/offlineshelf/internal/http"
	"github.com/mrlokans/offlineshelf/internal/offline"
	"github.com/mrlokans/offlineshelf/internal/scheduler"
	"github.com/mrlokans/offlineshelf/internal/tasks"
	"github.com/mrlokans/offlineshelf/internal/websec"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Store implementations
var _ offline.Store = (*offlinebooks.Repository)(nil)

// Pinger implementations
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Offline Service
// =============================================================================

var _ http.OfflineLibrary = (*offline.Service)(nil)
var _ tasks.BookDownloader = (*offline.Service)(nil)
var _ tasks.StoreVerifier = (*offline.Service)(nil)
var _ scheduler.StoreVerifier = (*offline.Service)(nil)

var _ http.ReaderSessions = (*offline.Reader)(nil)
var _ scheduler.SessionPruner = (*offline.Reader)(nil)

// BinaryFetcher implementations
var _ offline.BinaryFetcher = (*offline.Fetcher)(nil)

// =============================================================================
// External Services
// =============================================================================

// BookResolver implementations
var _ offline.BookResolver = (*catalog.Client)(nil)

// =============================================================================
// Background Work and Sessions
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
var _ scheduler.TaskEnqueuer = (*tasks.Client)(nil)

var _ http.ReaderKeySource = (*websec.SessionManager)(nil)
var _ http.SessionMiddleware = (*websec.SessionManager)(nil)
