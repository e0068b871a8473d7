package utils

import (
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes name safe to use as a file name and in a
// Content-Disposition header.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, " ")
	name = multipleSpaces.ReplaceAllString(name, " ")
	name = strings.Trim(name, " .")

	// Leave room for the extension
	if runes := []rune(name); len(runes) > 200 {
		name = strings.TrimSpace(string(runes[:200]))
	}

	if name == "" {
		name = "Untitled"
	}
	return name
}

// PDFFilename builds the download name of a book: "Title - Author.pdf",
// falling back to the book id when there is no title.
func PDFFilename(title, author, id string) string {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)

	base := title
	switch {
	case base == "":
		base = id
	case author != "":
		base = title + " - " + author
	}
	return SanitizeFilename(base) + ".pdf"
}
