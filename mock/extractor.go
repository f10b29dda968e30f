package mock

import (
	"iter"

	"github.com/fwojciec/autotrack"
)

var _ autotrack.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of autotrack.Extractor.
type Extractor struct {
	ExtractFn func(content string) (iter.Seq2[*autotrack.Listing, error], error)
}

func (e *Extractor) Extract(content string) (iter.Seq2[*autotrack.Listing, error], error) {
	return e.ExtractFn(content)
}
