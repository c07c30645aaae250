package gloss

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is one renderable word of a paragraph.
type Token struct {
	// Text is the literal substring of the paragraph, punctuation included.
	Text string `json:"text"`
	// Translation is the gloss for this word, or "" when no entry covers it.
	Translation string `json:"translation,omitempty"`
	// IsPhrasePart is set when the word belongs to a multi-word phrase match.
	IsPhrasePart bool `json:"isPhrasePart"`
	// PhraseKey is the matched dictionary key when IsPhrasePart is set.
	PhraseKey string `json:"phraseKey,omitempty"`
	// Index is the emission ordinal, starting at 0.
	Index int `json:"index"`
	// Start and End are byte offsets into the paragraph; paragraph[Start:End] == Text.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Glossed reports whether the token carries a translation.
func (t Token) Glossed() bool { return t.Translation != "" }

// LearnedKey is the key under which a learned-words set tracks this token:
// the phrase key for phrase parts, the cleaned word otherwise.
func (t Token) LearnedKey() string {
	if t.PhraseKey != "" {
		return t.PhraseKey
	}
	return CleanWord(t.Text)
}

// span is one accepted occurrence of a phrase key within a paragraph.
type span struct {
	start int
	end   int // exclusive
	key   string
}

func (s span) intersects(start, end int) bool {
	return start < s.end && s.start < end
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithWordBoundaries only accepts a phrase occurrence when it is flanked by
// whitespace, stripped punctuation or the edges of the paragraph. Without it,
// phrase keys are matched as plain substrings.
func WithWordBoundaries() Option {
	return func(tk *Tokenizer) { tk.boundaries = true }
}

// Tokenizer turns paragraphs into annotated tokens against one fixed
// Dictionary. It holds no mutable state and is safe for concurrent use.
type Tokenizer struct {
	dict Dictionary
	// phrases holds the multi-word keys, longest first, ties in lexical order.
	phrases    []string
	boundaries bool
}

// NewTokenizer prepares a Tokenizer for dict. The dictionary must not be
// mutated afterwards; build a new Tokenizer for a new dictionary.
func NewTokenizer(dict Dictionary, opts ...Option) (*Tokenizer, error) {
	if dict == nil {
		return nil, ErrNilDictionary
	}
	tk := &Tokenizer{dict: dict}
	for _, opt := range opts {
		opt(tk)
	}
	for k := range dict {
		if IsDegenerateKey(k) {
			continue
		}
		if wordCount(k) > 1 {
			tk.phrases = append(tk.phrases, k)
		}
	}
	sort.Slice(tk.phrases, func(i, j int) bool {
		li := utf8.RuneCountInString(tk.phrases[i])
		lj := utf8.RuneCountInString(tk.phrases[j])
		if li != lj {
			return li > lj
		}
		return tk.phrases[i] < tk.phrases[j]
	})
	return tk, nil
}

// Tokenize is a convenience wrapper building a one-off Tokenizer for dict.
func Tokenize(paragraph string, dict Dictionary, opts ...Option) ([]Token, error) {
	tk, err := NewTokenizer(dict, opts...)
	if err != nil {
		return nil, err
	}
	return tk.Tokenize(paragraph)
}

// Tokenize splits paragraph into word tokens. Multi-word dictionary keys are
// located first, longest key first, and an occurrence is dropped when it
// intersects one already accepted. Text outside accepted phrases is split
// on whitespace and each word is looked up by its cleaned form.
func (tk *Tokenizer) Tokenize(paragraph string) ([]Token, error) {
	if !utf8.ValidString(paragraph) {
		return nil, ErrInvalidText
	}
	if paragraph == "" {
		return []Token{}, nil
	}

	spans := tk.findSpans(paragraph)

	tokens := make([]Token, 0, wordCount(paragraph))
	cursor := 0
	for _, sp := range spans {
		tokens = tk.appendPlain(tokens, paragraph[cursor:sp.start], cursor)
		translation := tk.dict[sp.key]
		for _, w := range SplitWords(paragraph[sp.start:sp.end], sp.start) {
			tokens = append(tokens, Token{
				Text:         w.Text,
				Translation:  translation,
				IsPhrasePart: true,
				PhraseKey:    sp.key,
				Index:        len(tokens),
				Start:        w.Start,
				End:          w.End,
			})
		}
		cursor = sp.end
	}
	tokens = tk.appendPlain(tokens, paragraph[cursor:], cursor)
	return tokens, nil
}

func (tk *Tokenizer) appendPlain(tokens []Token, text string, base int) []Token {
	for _, w := range SplitWords(text, base) {
		var translation string
		if clean := CleanWord(w.Text); clean != "" {
			translation = tk.dict[clean]
		}
		tokens = append(tokens, Token{
			Text:        w.Text,
			Translation: translation,
			Index:       len(tokens),
			Start:       w.Start,
			End:         w.End,
		})
	}
	return tokens
}

// findSpans returns the accepted phrase occurrences sorted by start offset.
func (tk *Tokenizer) findSpans(paragraph string) []span {
	var accepted []span
	for _, key := range tk.phrases {
		pos := 0
		for pos < len(paragraph) {
			idx := strings.Index(paragraph[pos:], key)
			if idx < 0 {
				break
			}
			start := pos + idx
			end := start + len(key)
			if tk.acceptable(paragraph, start, end, accepted) {
				accepted = append(accepted, span{start: start, end: end, key: key})
				pos = end
				continue
			}
			_, size := utf8.DecodeRuneInString(paragraph[start:])
			pos = start + size
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].start < accepted[j].start
	})
	return accepted
}

func (tk *Tokenizer) acceptable(paragraph string, start, end int, accepted []span) bool {
	for _, s := range accepted {
		if s.intersects(start, end) {
			return false
		}
	}
	if !tk.boundaries {
		return true
	}
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(paragraph[:start])
		if !isBoundary(r) {
			return false
		}
	}
	if end < len(paragraph) {
		r, _ := utf8.DecodeRuneInString(paragraph[end:])
		if !isBoundary(r) {
			return false
		}
	}
	return true
}

func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || isPunct(r)
}
