package style

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultFontSize is the baseline size (pt) every capacity budget is expressed in.
const DefaultFontSize = 14

// wordSizeThreshold splits the two branches of the browser→Word correction.
const wordSizeThreshold = 19

// ErrSizeNotInScale 表示字号不在允许的刻度内。
var ErrSizeNotInScale = errors.New("style: font size not in scale")

// Sizes is the ascending scale of point sizes the export backend accepts.
var Sizes = []int{8, 9, 10, 11, 12, 14, 16, 18, 20, 22, 24, 26, 28, 36, 48, 72}

// InScale reports whether size is one of Sizes.
func InScale(size int) bool {
	i := sort.SearchInts(Sizes, size)
	return i < len(Sizes) && Sizes[i] == size
}

// ValidateSize rejects sizes outside the scale.
func ValidateSize(size int) error {
	if !InScale(size) {
		return fmt.Errorf("%w: %d", ErrSizeNotInScale, size)
	}
	return nil
}

// Step moves n positions along the scale starting at size, clamped to its ends.
// A size outside the scale is first snapped to the nearest larger entry.
func Step(size, n int) int {
	i := sort.SearchInts(Sizes, size)
	if i >= len(Sizes) {
		i = len(Sizes) - 1
	}
	i += n
	if i < 0 {
		i = 0
	}
	if i >= len(Sizes) {
		i = len(Sizes) - 1
	}
	return Sizes[i]
}

// WordSizeDiff approximates how many units the word processor's effective
// size differs from the browser-rendered size.
func WordSizeDiff(size int) int {
	if size >= wordSizeThreshold {
		return int(math.Ceil(float64(size) / 4))
	}
	return int(math.Ceil(float64(size) / 3))
}

// BrowserSize maps a word-processor size to the on-screen size that renders
// with the same glyph height.
func BrowserSize(word int) int {
	return word + WordSizeDiff(word)
}

// WordSize is the inverse of BrowserSize over every integer size between the
// smallest and largest scale entry. It returns -1 when no size maps to browser.
func WordSize(browser int) int {
	for w := Sizes[0]; w <= Sizes[len(Sizes)-1]; w++ {
		if BrowserSize(w) == browser {
			return w
		}
	}
	return -1
}
