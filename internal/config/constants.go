package config

const (
	// DefaultDatabasePath is the default path for the offline library database
	DefaultDatabasePath = "./offlineshelf.db"

	// DefaultMaxDownloadBytes caps a single cover or PDF download at 200 MiB
	DefaultMaxDownloadBytes = 200 << 20
)
