package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlokans/offlineshelf/internal/offline"
)

// DownloadCommand saves a book to the offline library.
type DownloadCommand struct {
	libraryFlags
	BookID   string
	Title    string
	Author   string
	PDFURL   string
	CoverURL string
	Timeout  time.Duration
}

func NewDownloadCommand() *DownloadCommand {
	return &DownloadCommand{}
}

func (cmd *DownloadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	cmd.register(fs, defaultDatabasePath())
	fs.StringVar(&cmd.BookID, "id", "", "Book identifier (required)")
	fs.StringVar(&cmd.Title, "title", "", "Book title")
	fs.StringVar(&cmd.Author, "author", "", "Book author")
	fs.StringVar(&cmd.PDFURL, "pdf", "", "PDF URL; when empty the book is resolved through CATALOG_BASE_URL")
	fs.StringVar(&cmd.CoverURL, "cover", "", "Cover image URL (optional)")
	fs.DurationVar(&cmd.Timeout, "timeout", 10*time.Minute, "Overall download timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s download -id <book> [-pdf <url>] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Save a book's PDF and cover for offline reading.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s download -id 42 -title \"Dune\" -pdf https://books.example.com/42.pdf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s download -id 42   # resolve via the catalog\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.BookID == "" {
		return fmt.Errorf("required flag -id not provided")
	}
	return nil
}

func (cmd *DownloadCommand) Run() error {
	library, _, err := cmd.open()
	if err != nil {
		return err
	}
	defer library.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	var result *offline.DownloadResult
	if cmd.PDFURL == "" {
		fmt.Printf("Resolving %s through the catalog...\n", cmd.BookID)
		result, err = library.Service.DownloadByID(ctx, cmd.BookID)
	} else {
		book := offline.BookRef{ID: cmd.BookID, Title: cmd.Title, Author: cmd.Author}
		result, err = library.Service.DownloadBook(ctx, book, cmd.PDFURL, cmd.CoverURL)
	}
	if err != nil {
		if offline.IsQuotaExceeded(err) {
			return errors.New("cannot save offline copy: storage is full, remove some books first")
		}
		return err
	}

	fmt.Printf("Saved %q (%s)\n", result.Book.ID, formatBytes(result.Book.Size))
	if result.Book.PageCount > 0 {
		fmt.Printf("Pages: %d\n", result.Book.PageCount)
	}
	if result.Warning != nil {
		fmt.Printf("Warning: %v\n", result.Warning)
	}
	return nil
}
