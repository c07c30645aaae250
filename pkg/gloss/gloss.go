package gloss

import (
	"strings"
	"unicode"
)

// Dictionary maps a surface string (a single word or an exact multi-word
// phrase, as it appears in story text) to its translation.
type Dictionary map[string]string

// Merge combines common vocabulary with story vocabulary into a new
// Dictionary. Story entries win on key collision. Empty and whitespace-only
// keys are dropped. Neither input is modified.
func Merge(common, story Dictionary) Dictionary {
	out := make(Dictionary, len(common)+len(story))
	for k, v := range common {
		if IsDegenerateKey(k) {
			continue
		}
		out[k] = v
	}
	for k, v := range story {
		if IsDegenerateKey(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// IsDegenerateKey reports whether key can never be a usable dictionary key.
func IsDegenerateKey(key string) bool {
	return strings.TrimSpace(key) == ""
}

// Punctuation is the set of characters stripped from a word before it is
// looked up: Arabic and Latin sentence punctuation plus straight, curly and
// angled quotes.
const Punctuation = "،.:؟!؛,?;\"'“”‘’«»"

// CleanWord removes every punctuation character from word. The result is
// used as a lookup key only; rendered text keeps the original word.
func CleanWord(word string) string {
	return strings.Map(func(r rune) rune {
		if isPunct(r) {
			return -1
		}
		return r
	}, word)
}

func isPunct(r rune) bool {
	return strings.ContainsRune(Punctuation, r)
}

// Word is one whitespace-delimited word together with its byte range in the
// string it was split from.
type Word struct {
	Text  string
	Start int
	End   int
}

// SplitWords splits s on runs of Unicode whitespace. Offsets are shifted by
// base so callers can split a slice of a larger string and keep absolute
// positions.
func SplitWords(s string, base int) []Word {
	var words []Word
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, Word{Text: s[start:i], Start: base + start, End: base + i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, Word{Text: s[start:], Start: base + start, End: base + len(s)})
	}
	return words
}

// wordCount returns the number of whitespace-separated words in s.
func wordCount(s string) int {
	return len(strings.Fields(s))
}
