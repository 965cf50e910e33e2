package watch

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnore lists URL patterns whose targets never trigger a run.
var DefaultIgnore = []string{"devtools://*", "chrome-extension://*"}

// URLFilter matches target URLs against glob patterns.
type URLFilter struct {
	patterns []string
	globs    []glob.Glob
}

func NewURLFilter(patterns []string) (*URLFilter, error) {
	f := &URLFilter{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("watch: bad ignore pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, p)
		f.globs = append(f.globs, g)
	}
	return f, nil
}

// Ignored reports whether url matches any pattern. A nil filter ignores nothing.
func (f *URLFilter) Ignored(url string) bool {
	if f == nil {
		return false
	}
	for _, g := range f.globs {
		if g.Match(url) {
			return true
		}
	}
	return false
}

func (f *URLFilter) Patterns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.patterns...)
}
