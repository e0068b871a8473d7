package utils

import (
	"hash/fnv"
)

// coverPalette pairs a background with a readable ink color.
var coverPalette = [][2]string{
	{"#E8E4DC", "#4A4238"},
	{"#DDE7E3", "#2F4A40"},
	{"#E6E0EC", "#43385A"},
	{"#F1E3D3", "#5C3D1E"},
	{"#DCE3EE", "#2C3E5C"},
	{"#EFDCDC", "#5A2E2E"},
}

// PlaceholderColors picks a stable background and ink color for a book
// without a cover, so the same book always gets the same placeholder.
func PlaceholderColors(seed string) (background, ink string) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	pair := coverPalette[h.Sum32()%uint32(len(coverPalette))]
	return pair[0], pair[1]
}
