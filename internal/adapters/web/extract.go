package web

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractCanonical returns the first link rel=canonical href, or ""
func extractCanonical(doc *goquery.Document) string {
	href, _ := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	return strings.TrimSpace(href)
}

// extractOpenGraph returns the first meta og:url content, or ""
func extractOpenGraph(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[property="og:url"]`).First().Attr("content")
	return strings.TrimSpace(content)
}
