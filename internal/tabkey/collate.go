package tabkey

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collators keep internal buffers and must not be shared between goroutines.
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Und)
	},
}

func compareSegments(a, b string) int {
	if a == b {
		return 0
	}
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	if r := c.CompareString(a, b); r != 0 {
		return r
	}
	// Canonically equivalent but distinct strings still need a stable order.
	if a < b {
		return -1
	}
	return 1
}
