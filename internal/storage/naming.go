// Package storage holds the naming rules shared by the page writers.
package storage

import (
	"fmt"
	"strings"
	"unicode"
)

// Extension is appended to every persisted page.
const Extension = ".html"

const untitled = "untitled"

// SanitizeTitle removes characters that are unsafe in file names on common
// filesystems and collapses whitespace. An empty result becomes "untitled".
func SanitizeTitle(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`\/*?:"<>|`, r):
			return -1
		case unicode.IsControl(r):
			return ' '
		default:
			return r
		}
	}, title)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return untitled
	}
	return cleaned
}

// FileName returns "{sanitized_title}_{sequence}.html".
func FileName(title string, sequence int) string {
	return fmt.Sprintf("%s_%d%s", SanitizeTitle(title), sequence, Extension)
}
