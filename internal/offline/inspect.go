package offline

import (
	"bytes"
	"log"

	"github.com/gabriel-vasile/mimetype"
	pdfreader "github.com/ledongthuc/pdf"
)

const pdfMIME = "application/pdf"

// detectCoverType returns the MIME type of a cover image, or "" without a cover.
func detectCoverType(cover []byte) string {
	if len(cover) == 0 {
		return ""
	}
	return mimetype.Detect(cover).String()
}

// looksLikePDF reports whether the payload carries a PDF signature.
func looksLikePDF(data []byte) bool {
	return mimetype.Detect(data).Is(pdfMIME)
}

// countPages returns the page count of a PDF document, or 0 when the
// document cannot be parsed. The parser panics on some malformed inputs.
func countPages(data []byte) (pages int) {
	if !looksLikePDF(data) {
		return 0
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[OFFLINE] PDF page count failed: %v", r)
			pages = 0
		}
	}()

	reader, err := pdfreader.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return reader.NumPage()
}
