package entrypoint

import (
	"fmt"
	"log"
	"strings"

	"github.com/mrlokans/offlineshelf/internal/catalog"
	"github.com/mrlokans/offlineshelf/internal/config"
	"github.com/mrlokans/offlineshelf/internal/database"
	"github.com/mrlokans/offlineshelf/internal/database/offlinebooks"
	"github.com/mrlokans/offlineshelf/internal/offline"
)

// Library bundles the offline cache components shared by the server and the CLI.
type Library struct {
	DB      *database.Database
	Store   *offlinebooks.Repository
	Service *offline.Service
	Reader  *offline.Reader
}

// OpenLibrary opens the database and builds the offline service from cfg.
func OpenLibrary(cfg *config.Config) (*Library, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := offlinebooks.NewRepository(db.DB)
	store.SetQuota(cfg.Offline.MaxStorageBytes)

	fetcher := offline.NewFetcher(offline.FetcherConfig{
		Timeout:   cfg.Offline.FetchTimeout,
		MaxBytes:  cfg.Offline.MaxDownloadBytes,
		UserAgent: cfg.Offline.UserAgent,
		Policy: offline.URLPolicy{
			AllowedHosts:  cfg.Offline.AllowedHosts,
			AllowInsecure: cfg.Offline.AllowInsecureHTTP,
		},
	})
	if len(cfg.Offline.AllowedHosts) == 0 {
		log.Printf("WARNING: OFFLINE_ALLOWED_HOSTS is empty, reader and download URLs may point at any host")
	} else {
		log.Printf("Binary downloads restricted to %s", strings.Join(cfg.Offline.AllowedHosts, ", "))
	}
	if cfg.Offline.AllowInsecureHTTP {
		log.Printf("WARNING: OFFLINE_ALLOW_INSECURE_HTTP is set, plain http binaries will be fetched")
	}

	// Without a catalog, downloads must carry explicit URLs.
	var resolver offline.BookResolver
	if cfg.Catalog.BaseURL != "" {
		client, err := catalog.NewClient(catalog.Config{
			BaseURL:     cfg.Catalog.BaseURL,
			Token:       cfg.Catalog.Token,
			Timeout:     cfg.Catalog.Timeout,
			UserAgent:   cfg.Offline.UserAgent,
			MinInterval: cfg.Catalog.MinInterval,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
		resolver = client
		log.Printf("Catalog lookups enabled at %s", cfg.Catalog.BaseURL)
	}

	service := offline.NewService(store, fetcher, resolver)

	return &Library{
		DB:      db,
		Store:   store,
		Service: service,
		Reader:  offline.NewReader(fetcher, service.Registry),
	}, nil
}

// Close releases the database.
func (l *Library) Close() error {
	return l.DB.Close()
}
