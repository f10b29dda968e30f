package crawl

import "github.com/fwojciec/autotrack"

// CountListings returns the number of valid listings extracted from content.
// Unparseable content counts as zero listings.
func CountListings(content string, extractor autotrack.Extractor) int {
	seq, err := extractor.Extract(content)
	if err != nil {
		return 0
	}
	var n int
	for _, err := range seq {
		if err == nil {
			n++
		}
	}
	return n
}

// RenderingRequired compares the listings extracted from statically fetched
// HTML and from browser-rendered HTML of the same page. It reports true when
// the rendered page yields more listings, meaning the site builds its cards
// with JavaScript and needs the browser fetcher.
func RenderingRequired(staticHTML, renderedHTML string, extractor autotrack.Extractor) bool {
	return CountListings(renderedHTML, extractor) > CountListings(staticHTML, extractor)
}
