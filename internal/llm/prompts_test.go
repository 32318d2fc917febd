package llm

import (
	"github.com/zoonderkins/augment-lite/internal/store"
)

func testHits(n int, text string) []*store.Hit {
	hits := make([]*store.Hit, n)
	for i := range hits {
		hits[i] = &store.Hit{Text: text, Source: "file.go:1", Score: 0.5}
	}
	return hits
}
