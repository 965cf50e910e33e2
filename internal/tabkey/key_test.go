package tabkey

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDropsEmptySegments(t *testing.T) {
	k := New("", "abc", "", "def", "")
	assert.Equal(t, []string{"abc", "def"}, k.Segments())
	assert.Equal(t, 0, New("", "").Len())
	assert.True(t, New().Equal(Empty))
}

func TestEqual(t *testing.T) {
	cases := []struct {
		name  string
		left  Key
		right Key
		want  bool
	}{
		{"empty", New(), New(), true},
		{"single", New("abc"), New("abc"), true},
		{"two", New("abc", "def"), New("abc", "def"), true},
		{"three", New("abc", "def", "ghi"), New("abc", "def", "ghi"), true},
		{"empty vs single", New(), New("abc"), false},
		{"different single", New("abc"), New("def"), false},
		{"different tail", New("abc", "def"), New("abc", "ghi"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.left.Equal(tc.right))
		})
	}
}

func TestStartsWith(t *testing.T) {
	assert.True(t, New().StartsWith(New()))
	assert.True(t, New("abc").StartsWith(New()))
	assert.True(t, New("abc").StartsWith(New("abc")))
	assert.True(t, New("abc", "def").StartsWith(New("abc")))
	assert.True(t, New("abc", "def").StartsWith(New("abc", "def")))
	assert.False(t, New().StartsWith(New("abc")))
	assert.False(t, New("abc", "def").StartsWith(New("abc", "ghi")))
}

func TestMutualPrefixImpliesEqual(t *testing.T) {
	keys := []Key{New(), New("a"), New("a", "b"), New("a", "c"), New("b")}
	for _, a := range keys {
		for _, b := range keys {
			if a.StartsWith(b) && b.StartsWith(a) {
				assert.True(t, a.Equal(b), "%s and %s", a, b)
			}
		}
	}
}

func TestExtend(t *testing.T) {
	parent := New("a")
	child, err := parent.Extend("b")
	require.NoError(t, err)
	assert.True(t, child.Equal(New("a", "b")))
	assert.True(t, parent.Equal(New("a")), "parent must not change")

	_, err = parent.Extend("")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestFirstLast(t *testing.T) {
	assert.Equal(t, "", Empty.First())
	assert.Equal(t, "", Empty.Last())
	k := New("a", "b", "c")
	assert.Equal(t, "a", k.First())
	assert.Equal(t, "c", k.Last())
}

func TestAt(t *testing.T) {
	k := New("a", "b")
	s, err := k.At(1)
	require.NoError(t, err)
	assert.Equal(t, "b", s)

	for _, i := range []int{-1, 2, 10} {
		_, err := k.At(i)
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "index %d", i)
	}
}

func TestSegmentAfter(t *testing.T) {
	k := New("a", "b", "c")
	s, err := k.SegmentAfter(New("a"))
	require.NoError(t, err)
	assert.Equal(t, "b", s)

	s, err = k.SegmentAfter(Empty)
	require.NoError(t, err)
	assert.Equal(t, "a", s)

	_, err = k.SegmentAfter(New("x"))
	assert.ErrorIs(t, err, ErrPrefixViolation)

	_, err = k.SegmentAfter(k)
	assert.ErrorIs(t, err, ErrPrefixViolation)
}

func TestOverlap(t *testing.T) {
	assert.True(t, New("abc", "def").Overlap(Empty).Equal(Empty))
	assert.True(t, Empty.Overlap(New("abc")).Equal(Empty))
	assert.True(t, New("abc", "def").Overlap(New("abc")).Equal(New("abc")))
	assert.True(t, New("a", "b", "c").Overlap(New("a", "x", "c")).Equal(New("a")))
	assert.True(t, New("a").Overlap(New("b")).Equal(Empty))
}

func TestOverlapAll(t *testing.T) {
	assert.True(t, OverlapAll(nil).Equal(Empty))
	assert.True(t, OverlapAll([]Key{New("a", "b")}).Equal(New("a", "b")))
	assert.True(t, OverlapAll([]Key{New("abc", "def"), Empty}).Equal(Empty))
	assert.True(t, OverlapAll([]Key{New("abc", "def"), New("abc")}).Equal(New("abc")))
	assert.True(t, OverlapAll([]Key{New("a", "b", "c"), New("a", "b", "d"), New("a", "b")}).Equal(New("a", "b")))
	assert.True(t, OverlapAll([]Key{New("a"), New("b"), New("a")}).Equal(Empty))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, New("a", "b").Compare(New("a", "b")))
	assert.Negative(t, New("a").Compare(New("a", "b")))
	assert.Positive(t, New("a", "b").Compare(New("a")))
	assert.Negative(t, New("a", "z").Compare(New("b")))
	assert.Negative(t, New("/issues").Compare(New("/search")))
	assert.Negative(t, Empty.Compare(New("a")))
}

func TestCompareIsLocaleAware(t *testing.T) {
	// Collation places case variants next to each other instead of byte order.
	keys := []Key{New("b"), New("B"), New("a"), New("A")}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	got := make([]string, len(keys))
	for i, k := range keys {
		got[i] = k.First()
	}
	assert.Equal(t, []string{"a", "A", "b", "B"}, got)
}

func TestCompareConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if New("github", "/a").Compare(New("github", "/b")) >= 0 {
					t.Error("Compare() ordered /a after /b")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestDisplayLabel(t *testing.T) {
	cases := []struct {
		key  Key
		want string
	}{
		{Empty, "/"},
		{New("github"), "github"},
		{New("github", "/org"), "github/org"},
		{New("github", "/org", "/repo"), "github/org/repo"},
		{New("github", "/org", "/repo", "/issues", "/2105"), "github../issues/2105"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.key.DisplayLabel(), "key %s", tc.key)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, `["a","b"]`, New("a", "b").String())
	assert.Equal(t, `[]`, Empty.String())
}
