package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/offlineshelf/internal/cli"
	"github.com/mrlokans/offlineshelf/internal/config"
	"github.com/mrlokans/offlineshelf/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every CLI subcommand.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "download":
		cmd = cli.NewDownloadCommand()
	case "list":
		cmd = cli.NewListCommand()
	case "remove":
		cmd = cli.NewRemoveCommand()
	case "usage":
		cmd = cli.NewUsageCommand()
	case "read":
		cmd = cli.NewReadCommand()
	case "verify":
		cmd = cli.NewVerifyCommand()
	case "version":
		fmt.Printf("offlineshelf %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  download  Save a book for offline reading\n")
	fmt.Fprintf(os.Stderr, "  list      List books saved offline\n")
	fmt.Fprintf(os.Stderr, "  remove    Remove a book's offline copy\n")
	fmt.Fprintf(os.Stderr, "  usage     Show offline storage usage\n")
	fmt.Fprintf(os.Stderr, "  read      Load a book from the network or the offline library\n")
	fmt.Fprintf(os.Stderr, "  verify    Check stored offline copies\n")
	fmt.Fprintf(os.Stderr, "  version   Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
