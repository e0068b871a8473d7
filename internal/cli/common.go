package cli

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/mrlokans/offlineshelf/internal/config"
	"github.com/mrlokans/offlineshelf/internal/entrypoint"
)

// libraryFlags are the flags shared by every command that opens the offline library.
type libraryFlags struct {
	DatabasePath string
}

func (lf *libraryFlags) register(fs *flag.FlagSet, defaultPath string) {
	fs.StringVar(&lf.DatabasePath, "db", defaultPath, "Path to the offline library database")
}

// open loads the environment configuration, applies the -db override and
// opens the offline library.
func (lf *libraryFlags) open() (*entrypoint.Library, *config.Config, error) {
	cfg := config.NewConfig()

	absDBPath, err := filepath.Abs(lf.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get absolute path for database: %w", err)
	}
	cfg.Database.Path = absDBPath

	library, err := entrypoint.OpenLibrary(cfg)
	if err != nil {
		return nil, nil, err
	}
	return library, cfg, nil
}

// defaultDatabasePath honours DATABASE_PATH so flags and the server agree.
func defaultDatabasePath() string {
	return config.NewConfig().Database.Path
}
