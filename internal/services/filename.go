package services

import (
	"fmt"
	"strings"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
)

var knownExtensions = []string{".docx", ".pdf", ".txt"}

// SanitizeName replaces spaces with underscores and strips trailing source
// extensions until none is left, so applying it twice changes nothing.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	for {
		trimmed := name
		for _, ext := range knownExtensions {
			if len(trimmed) > len(ext) && strings.EqualFold(trimmed[len(trimmed)-len(ext):], ext) {
				trimmed = trimmed[:len(trimmed)-len(ext)]
			}
		}
		if trimmed == name {
			return name
		}
		name = trimmed
	}
}

// OutputFilename derives the download name of a merged document.
func OutputFilename(letterhead, body string, format models.Format) string {
	return fmt.Sprintf("letterhead(%s)_blsurrender(%s)%s", SanitizeName(letterhead), SanitizeName(body), format.Extension())
}
