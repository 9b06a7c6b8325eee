package responder

import (
	"math/rand/v2"

	"github.com/xaenox/mind-bot/internal/corpus"
)

// FallbackResponse is returned for a tag the corpus does not know.
const FallbackResponse = "I'm not sure how to respond to that. Can you rephrase?"

// Selector picks a canned response for a predicted tag.
type Selector struct {
	table *corpus.Table
	intn  func(n int) int
}

// NewSelector returns a Selector drawing from math/rand/v2, which is safe for
// concurrent use.
func NewSelector(table *corpus.Table) *Selector {
	return &Selector{table: table, intn: rand.IntN}
}

// NewSelectorWithSource is NewSelector with a caller-provided random source.
func NewSelectorWithSource(table *corpus.Table, intn func(n int) int) *Selector {
	return &Selector{table: table, intn: intn}
}

// Select picks uniformly among the tag's responses.
func (s *Selector) Select(tag string) string {
	responses, ok := s.table.Responses(tag)
	if !ok || len(responses) == 0 {
		return FallbackResponse
	}
	return responses[s.intn(len(responses))]
}
