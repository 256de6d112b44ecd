package catalog

import (
	"strconv"
	"strings"
	"unicode"
)

// Normalize folds a free-text product name into catalog form: lowercase with
// every run of non-alphanumeric characters collapsed to a single space.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingSpace := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// IntegerTokens extracts the integer tokens embedded in a name, in order.
// "paracetamol 500 mg" yields [500].
func IntegerTokens(name string) []int64 {
	tokens := []int64{}
	current := strings.Builder{}
	flush := func() {
		if current.Len() == 0 {
			return
		}
		if v, err := strconv.ParseInt(current.String(), 10, 64); err == nil {
			tokens = append(tokens, v)
		}
		current.Reset()
	}
	for _, r := range name {
		if unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// NamesCompatible reports whether two names may refer to the same product.
// A name with no integer tokens is compatible with anything; when both carry
// integer tokens the sequences must match exactly, so differing strengths
// never collapse into one product.
func NamesCompatible(a, b string) bool {
	ta := IntegerTokens(a)
	tb := IntegerTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return true
	}
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}
