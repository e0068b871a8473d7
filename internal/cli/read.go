package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlokans/offlineshelf/internal/offline"
	"github.com/mrlokans/offlineshelf/internal/utils"
)

// ReadCommand loads a book the way the reader does and writes the PDF to a file.
type ReadCommand struct {
	libraryFlags
	BookID     string
	PDFURL     string
	OutputPath string
	Timeout    time.Duration
}

func NewReadCommand() *ReadCommand {
	return &ReadCommand{}
}

func (cmd *ReadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)

	cmd.register(fs, defaultDatabasePath())
	fs.StringVar(&cmd.BookID, "id", "", "Book identifier (required)")
	fs.StringVar(&cmd.PDFURL, "url", "", "Network PDF URL; the offline copy is used when it fails or is empty")
	fs.StringVar(&cmd.OutputPath, "out", "", "Output file (default <id>.pdf)")
	fs.DurationVar(&cmd.Timeout, "timeout", 2*time.Minute, "Overall timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s read -id <book> [-url <pdf>] [-out <file>]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Load a book from the network or, failing that, from the offline library.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BookID == "" {
		return fmt.Errorf("required flag -id not provided")
	}
	if cmd.OutputPath == "" {
		cmd.OutputPath = utils.SanitizeFilename(cmd.BookID) + ".pdf"
	}
	return nil
}

func (cmd *ReadCommand) Run() error {
	library, _, err := cmd.open()
	if err != nil {
		return err
	}
	defer library.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	session := library.Reader.Session("cli", cmd.BookID)
	content, err := session.Load(ctx, offline.LoadOptions{PDFURL: cmd.PDFURL})
	if err != nil {
		var unavailable *offline.UnavailableError
		if errors.As(err, &unavailable) {
			return fmt.Errorf("%q is not available offline; run '%s list' to see saved books", cmd.BookID, os.Args[0])
		}
		return err
	}

	if err := os.WriteFile(cmd.OutputPath, content.PDF, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", cmd.OutputPath, err)
	}

	fmt.Printf("Source: %s (%s)\n", content.Source, session.State())
	if content.Source == offline.SourceOffline {
		fmt.Printf("Offline copy saved %s\n", content.SavedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("Wrote %s to %s\n", formatBytes(int64(len(content.PDF))), cmd.OutputPath)
	return nil
}
