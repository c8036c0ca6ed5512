package content

import (
	"strings"
	"unicode/utf8"

	"github.com/jaytaylor/html2text"
)

// TextExtractor converts markup to plain text.
type TextExtractor interface {
	HTMLToText(html string) (string, error)
}

// HTML2Text extracts text with jaytaylor/html2text, dropping link targets and
// table decoration.
type HTML2Text struct{}

func (HTML2Text) HTMLToText(html string) (string, error) {
	return html2text.FromString(html, html2text.Options{OmitLinks: true, TextOnly: true})
}

const ellipsis = "..."

// Summary derives the plain-text excerpt of body, at most maxChars runes plus an
// ellipsis. When extraction is unavailable or fails it falls back to a prefix of
// the raw markup so a save never fails on this step.
func Summary(extractor TextExtractor, body string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 200
	}

	if extractor != nil {
		if text, err := extractor.HTMLToText(body); err == nil {
			return truncateWords(strings.Join(strings.Fields(text), " "), maxChars)
		}
	}
	return truncateRunes(strings.TrimSpace(body), maxChars)
}

// truncateWords cuts s to maxChars runes, backing off to the last space so a
// word is not split in half.
func truncateWords(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	cut := string([]rune(s)[:maxChars])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + ellipsis
}

func truncateRunes(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	return string([]rune(s)[:maxChars]) + ellipsis
}
