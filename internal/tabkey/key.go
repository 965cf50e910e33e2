// Package tabkey models the position of a browser tab in a virtual URL hierarchy.
//
// A Key is an immutable ordered list of segments: the host (without "www" and the
// top-level domain), an optional ":port", then path and fragment segments that keep
// their leading slash. Keys order, overlap and prefix-match segment by segment.
package tabkey

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrPrefixViolation = errors.New("prefix violation")
)

// Key is an immutable sequence of non-empty segments. The zero value is the empty key.
type Key struct {
	segments []string
}

// Empty is the key with no segments; it is a prefix of every key.
var Empty = Key{}

// New builds a key from segments, dropping empty ones.
func New(segments ...string) Key {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return Empty
	}
	return Key{segments: out}
}

// Extend returns a new key with one more trailing segment.
func (k Key) Extend(segment string) (Key, error) {
	if segment == "" {
		return Empty, fmt.Errorf("tabkey: extend %s with empty segment: %w", k, ErrInvalidArgument)
	}
	out := make([]string, len(k.segments)+1)
	copy(out, k.segments)
	out[len(k.segments)] = segment
	return Key{segments: out}, nil
}

func (k Key) Len() int { return len(k.segments) }

// First returns the first segment, or "" for the empty key.
func (k Key) First() string {
	if len(k.segments) == 0 {
		return ""
	}
	return k.segments[0]
}

// Last returns the last segment, or "" for the empty key.
func (k Key) Last() string {
	if len(k.segments) == 0 {
		return ""
	}
	return k.segments[len(k.segments)-1]
}

// Segments returns a copy of the segments.
func (k Key) Segments() []string {
	out := make([]string, len(k.segments))
	copy(out, k.segments)
	return out
}

func (k Key) At(index int) (string, error) {
	if index < 0 || index >= len(k.segments) {
		return "", fmt.Errorf("tabkey: segment %d of %s (len %d): %w", index, k, len(k.segments), ErrIndexOutOfRange)
	}
	return k.segments[index], nil
}

// SegmentAfter returns the segment that directly follows prefix in k.
func (k Key) SegmentAfter(prefix Key) (string, error) {
	if !k.StartsWith(prefix) {
		return "", fmt.Errorf("tabkey: %s does not start with %s: %w", k, prefix, ErrPrefixViolation)
	}
	if prefix.Len() >= k.Len() {
		return "", fmt.Errorf("tabkey: prefix %s is not shorter than %s: %w", prefix, k, ErrPrefixViolation)
	}
	return k.segments[prefix.Len()], nil
}

// Overlap returns the leading segments shared by k and other.
func (k Key) Overlap(other Key) Key {
	if k.Len() == 0 {
		return k
	}
	if other.Len() == 0 {
		return other
	}
	n := min(k.Len(), other.Len())
	i := 0
	for i < n && k.segments[i] == other.segments[i] {
		i++
	}
	if i == 0 {
		return Empty
	}
	return Key{segments: k.segments[:i:i]}
}

// OverlapAll folds Overlap over keys from left to right.
func OverlapAll(keys []Key) Key {
	if len(keys) == 0 {
		return Empty
	}
	result := keys[0]
	for _, k := range keys[1:] {
		if result.Len() == 0 {
			break
		}
		result = result.Overlap(k)
	}
	return result
}

func (k Key) StartsWith(other Key) bool {
	if other.Len() > k.Len() {
		return false
	}
	for i := other.Len() - 1; i >= 0; i-- {
		if k.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

func (k Key) Equal(other Key) bool {
	return k.Len() == other.Len() && k.StartsWith(other)
}

// Compare orders keys segment by segment using locale-aware string collation.
// When all shared segments match, the shorter key sorts first.
func (k Key) Compare(other Key) int {
	n := min(k.Len(), other.Len())
	for i := 0; i < n; i++ {
		if c := compareSegments(k.segments[i], other.segments[i]); c != 0 {
			return c
		}
	}
	switch {
	case k.Len() < other.Len():
		return -1
	case k.Len() > other.Len():
		return 1
	default:
		return 0
	}
}

// DisplayLabel is the short human title of a key, used as the tab group title.
func (k Key) DisplayLabel() string {
	switch n := len(k.segments); {
	case n == 0:
		return "/"
	case n == 1:
		return k.segments[0]
	case n <= 3:
		return strings.Join(k.segments, "")
	default:
		return k.segments[0] + ".." + k.segments[n-2] + k.segments[n-1]
	}
}

func (k Key) String() string {
	quoted := make([]string, len(k.segments))
	for i, s := range k.segments {
		quoted[i] = `"` + s + `"`
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
