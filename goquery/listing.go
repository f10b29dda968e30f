// Package goquery extracts vehicle listings from listing page HTML using goquery.
package goquery

import (
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/autotrack"
)

// Compile-time interface verification.
var _ autotrack.Extractor = (*ListingExtractor)(nil)

// Card selectors of the listing page markup.
const (
	CardSelector      = `div[data-testid='vehicle-card']`
	priceSelector     = `strong[data-testid='price-value']`
	specificsSelector = `div[data-testid='vehicle-specifics'] span`
	locationSelector  = `p[data-testid='vehicle-location']`
)

// ListingExtractor turns listing cards into listings.
type ListingExtractor struct {
	// BaseURL resolves relative listing links.
	BaseURL string
}

// NewListingExtractor creates a ListingExtractor resolving links against baseURL.
func NewListingExtractor(baseURL string) *ListingExtractor {
	return &ListingExtractor{BaseURL: baseURL}
}

// Extract parses content and returns a sequence over its listing cards.
// Cards are parsed as the sequence is consumed.
func (e *ListingExtractor) Extract(content string) (iter.Seq2[*autotrack.Listing, error], error) {
	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return nil, autotrack.Errorf(autotrack.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, autotrack.Errorf(autotrack.EINVALID, "failed to parse HTML: %v", err)
	}

	cards := doc.Find(CardSelector)

	return func(yield func(*autotrack.Listing, error) bool) {
		for i := range cards.Length() {
			listing, err := extractCard(base, cards.Eq(i), i)
			if !yield(listing, err) {
				return
			}
		}
	}, nil
}

// extractCard builds a listing from a single card. A panic while reading the
// card is reported as an error for that card only.
func extractCard(base *url.URL, card *goquery.Selection, index int) (listing *autotrack.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing = nil
			err = autotrack.Errorf(autotrack.EINVALID, "card %d: %v", index, r)
		}
	}()

	href, ok := card.Find("a[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" || isNonHTTPLink(href) {
		return nil, autotrack.Errorf(autotrack.EINVALID, "card %d: no listing link", index)
	}

	link, err := resolveURL(base, strings.TrimSpace(href))
	if err != nil {
		return nil, autotrack.Errorf(autotrack.EINVALID, "card %d: %v", index, err)
	}

	id := ExternalID(link)
	if id == "" {
		return nil, autotrack.Errorf(autotrack.EINVALID, "card %d: no numeric identifier in %s", index, link)
	}

	l := &autotrack.Listing{
		ExternalID: id,
		Title:      orNotAvailable(firstText(card, "h2", "h3")),
		URL:        link.String(),
	}
	price := orNotAvailable(firstText(card, priceSelector))
	l.Price = &price
	l.Brand, l.Model = brandModel(l.Title)

	specifics := card.Find(specificsSelector)
	specifics.Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch i {
		case 0:
			l.Year = parseYear(text)
		case 1:
			l.Mileage = &text
		default:
			labelSpecific(l, text)
		}
	})

	if location := firstText(card, locationSelector); location != "" {
		l.Location = &location
	}

	return l, nil
}

// ExternalID returns the last purely numeric path segment of u, or an empty
// string if there is none.
func ExternalID(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if isDigits(segments[i]) {
			return segments[i]
		}
	}
	return ""
}

// resolveURL resolves a listing href against the base URL.
// Fragments are stripped.
func resolveURL(base *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("invalid listing link %q: %w", href, err)
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved, nil
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}

// firstText returns the trimmed text of the first element matching any of
// the selectors, tried in order.
func firstText(card *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		if sel := card.Find(selector).First(); sel.Length() > 0 {
			return strings.TrimSpace(sel.Text())
		}
	}
	return ""
}

func orNotAvailable(s string) string {
	if s == "" {
		return autotrack.NotAvailable
	}
	return s
}

// brandModel derives brand and model from the first two words of a title.
func brandModel(title string) (*string, *string) {
	if title == autotrack.NotAvailable {
		return nil, nil
	}
	words := strings.Fields(title)
	var brand, model *string
	if len(words) > 0 {
		brand = &words[0]
	}
	if len(words) > 1 {
		model = &words[1]
	}
	return brand, model
}

// parseYear returns the first four-digit number in s, such as 2020 in
// "2020/2021".
func parseYear(s string) *int {
	var digits []rune
	for _, r := range s + " " {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
			continue
		}
		if len(digits) == 4 {
			year, err := strconv.Atoi(string(digits))
			if err == nil {
				return &year
			}
		}
		digits = digits[:0]
	}
	return nil
}

var (
	fuelKeywords = []string{
		"flex", "gasolina", "etanol", "álcool", "alcool", "diesel", "elétrico", "eletrico", "híbrido", "hibrido", "gnv",
	}
	transmissionKeywords = []string{
		"automático", "automatico", "automatizado", "manual", "cvt",
	}
)

// labelSpecific assigns a specifics span to fuel type or transmission when
// its text contains a known keyword. Unrecognized spans are ignored.
func labelSpecific(l *autotrack.Listing, text string) {
	lower := strings.ToLower(text)
	switch {
	case l.FuelType == nil && containsAny(lower, fuelKeywords):
		l.FuelType = &text
	case l.Transmission == nil && containsAny(lower, transmissionKeywords):
		l.Transmission = &text
	}
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
