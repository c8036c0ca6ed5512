// Package content derives data from stored post bodies: embedded asset URLs,
// plain-text summaries and the sanitized markup itself.
package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractAssetURLs returns the src of every <img> in body in document order,
// duplicates included. Values are not filtered: a URL outside the managed
// bucket is returned as-is so the caller can record why it was skipped.
// Broken markup yields whatever images the parser still recognises.
func ExtractAssetURLs(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			urls = append(urls, src)
		}
	})
	return urls
}

// CoverImageURL is the first embedded image of body, or "" when there is none.
func CoverImageURL(body string) string {
	if urls := ExtractAssetURLs(body); len(urls) > 0 {
		return urls[0]
	}
	return ""
}
