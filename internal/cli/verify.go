package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
)

// VerifyCommand checks every stored offline copy.
type VerifyCommand struct {
	libraryFlags
	Repair  bool
	Verbose bool
}

func NewVerifyCommand() *VerifyCommand {
	return &VerifyCommand{}
}

func (cmd *VerifyCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)

	cmd.register(fs, defaultDatabasePath())
	fs.BoolVar(&cmd.Repair, "repair", false, "Remove copies whose PDF no longer matches its digest")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "List affected book ids")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s verify [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Check stored offline copies. Records without a PDF are removed and\n")
		fmt.Fprintf(os.Stderr, "stale sizes are recomputed. Corrupted PDFs are reported, and removed\n")
		fmt.Fprintf(os.Stderr, "only with -repair.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *VerifyCommand) Run() error {
	library, _, err := cmd.open()
	if err != nil {
		return err
	}
	defer library.Close()

	report, err := library.Service.Verify(context.Background(), cmd.Repair)
	if report == nil {
		return err
	}

	fmt.Println("=== Verification Summary ===")
	fmt.Printf("Checked:   %d\n", report.Checked)
	fmt.Printf("Repaired:  %d\n", len(report.Repaired))
	fmt.Printf("Removed:   %d\n", len(report.Removed))
	fmt.Printf("Corrupted: %d\n", len(report.Corrupted))
	fmt.Printf("Usage:     %s\n", formatBytes(report.UsageBytes))

	if cmd.Verbose {
		for _, id := range report.Repaired {
			fmt.Printf("  [REPAIRED] %s\n", id)
		}
		for _, id := range report.Removed {
			fmt.Printf("  [REMOVED] %s\n", id)
		}
		for _, id := range report.Corrupted {
			fmt.Printf("  [CORRUPTED] %s\n", id)
		}
	}

	if len(report.Corrupted) > 0 && !cmd.Repair {
		fmt.Println("\nRun with -repair to remove corrupted copies.")
	}
	return err
}
