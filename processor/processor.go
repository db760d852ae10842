// Package processor finds translatable content in HTML trees and writes
// translations back into them.
package processor

import (
	"strings"

	"github.com/ZaguanLabs/mirrorlai"
	"golang.org/x/net/html"
)

// ContentProcessor is an alias to the main package interface.
type ContentProcessor = mirrorlai.ContentProcessor

// TranslatableItem is an alias to the main package type.
type TranslatableItem = mirrorlai.TranslatableItem

// Attached reports whether n is root or one of its descendants.
func Attached(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// PreserveWhitespace wraps translated in the leading and trailing whitespace
// of original.
func PreserveWhitespace(original, translated string) string {
	const ws = " \t\n\r"

	leadingLen := len(original) - len(strings.TrimLeft(original, ws))
	leading := original[:leadingLen]

	trailingLen := len(original) - len(strings.TrimRight(original, ws))
	trailing := ""
	if trailingLen > 0 && trailingLen < len(original) {
		trailing = original[len(original)-trailingLen:]
	}

	return leading + strings.Trim(translated, ws) + trailing
}
