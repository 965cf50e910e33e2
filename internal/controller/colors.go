package controller

import (
	"strings"
	"unicode/utf16"

	"github.com/dgnsrekt/tab_grouper/internal/tabkey"
)

// Palette lists the chrome.tabGroups colors in hashing order.
var Palette = []string{"blue", "cyan", "green", "grey", "orange", "pink", "purple", "red", "yellow"}

// GroupColor hashes the first and last host labels of the key's first segment onto
// Palette, so a site keeps its color across runs. Labels are measured in UTF-16 code
// units, the way the browser counts them.
func GroupColor(key tabkey.Key) string {
	labels := strings.Split(key.First(), ".")
	first, last := labels[0], labels[len(labels)-1]
	v := leadingUnit(last) + unitLen(last) + leadingUnit(first) + unitLen(first)
	return Palette[v%len(Palette)]
}

// leadingUnit is the first UTF-16 code unit of s, or 0 when s is empty.
func leadingUnit(s string) int {
	for _, r := range s {
		units := utf16.Encode([]rune{r})
		return int(units[0])
	}
	return 0
}

func unitLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
