// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	└── offlinebooks/    # Offline copies of books (metadata, cover, PDF)
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./offlineshelf.db")
//
//	// Create domain-specific repositories
//	booksRepo := offlinebooks.NewRepository(db.DB)
//
//	// Use repositories
//	book, ok, err := booksRepo.Get(ctx, "42")
//
// # Storage Layout
//
// Offline copies live in the offline_books table, one row per book id. Cover
// and PDF payloads are stored as BLOB columns next to their metadata so a
// single transaction replaces a record as a whole. Web sessions share the
// same file (sessions table); background jobs use a dedicated "-tasks" file.
package database
