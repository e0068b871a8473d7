package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
)

// ListCommand prints the offline library.
type ListCommand struct {
	libraryFlags
}

func NewListCommand() *ListCommand {
	return &ListCommand{}
}

func (cmd *ListCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cmd.register(fs, defaultDatabasePath())
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s list [options]\n\nList books saved for offline reading.\n\nOptions:\n", os.Args[0])
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *ListCommand) Run() error {
	library, _, err := cmd.open()
	if err != nil {
		return err
	}
	defer library.Close()

	ctx := context.Background()
	books := library.Service.ListDownloaded(ctx)
	if len(books) == 0 {
		fmt.Println("No books saved for offline reading")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tSIZE\tPAGES\tCOVER\tSAVED")
	for _, b := range books {
		cover := "no"
		if b.HasCover {
			cover = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			b.ID, b.Title, b.Author, formatBytes(b.Size), b.PageCount, cover, b.SavedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d books, %s\n", len(books), formatBytes(library.Service.GetStorageUsage(ctx)))
	return nil
}

// RemoveCommand deletes an offline copy.
type RemoveCommand struct {
	libraryFlags
	BookID string
}

func NewRemoveCommand() *RemoveCommand {
	return &RemoveCommand{}
}

func (cmd *RemoveCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	cmd.register(fs, defaultDatabasePath())
	fs.StringVar(&cmd.BookID, "id", "", "Book identifier (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s remove -id <book> [options]\n\nRemove a book's offline copy.\n\nOptions:\n", os.Args[0])
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BookID == "" {
		return fmt.Errorf("required flag -id not provided")
	}
	return nil
}

func (cmd *RemoveCommand) Run() error {
	library, _, err := cmd.open()
	if err != nil {
		return err
	}
	defer library.Close()

	ctx := context.Background()
	if !library.Service.IsBookDownloaded(ctx, cmd.BookID) {
		fmt.Printf("%q is not saved offline\n", cmd.BookID)
		return nil
	}
	if err := library.Service.RemoveBook(ctx, cmd.BookID); err != nil {
		return err
	}
	fmt.Printf("Removed %q\n", cmd.BookID)
	return nil
}

// UsageCommand reports storage consumption.
type UsageCommand struct {
	libraryFlags
}

func NewUsageCommand() *UsageCommand {
	return &UsageCommand{}
}

func (cmd *UsageCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	cmd.register(fs, defaultDatabasePath())
	return fs.Parse(args)
}

func (cmd *UsageCommand) Run() error {
	library, cfg, err := cmd.open()
	if err != nil {
		return err
	}
	defer library.Close()

	ctx := context.Background()
	used := library.Service.GetStorageUsage(ctx)
	count := len(library.Service.ListDownloaded(ctx))

	fmt.Printf("Books: %d\n", count)
	fmt.Printf("Used:  %s (%d bytes)\n", formatBytes(used), used)
	if quota := cfg.Offline.MaxStorageBytes; quota > 0 {
		fmt.Printf("Quota: %s (%.1f%% used)\n", formatBytes(quota), float64(used)*100/float64(quota))
	}
	return nil
}

// formatBytes renders a byte count with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
