package dictionary

import (
	"sort"

	"github.com/antzucaro/matchr"
	"github.com/japaniel/qisas/pkg/gloss"
)

// minSuggestionScore is the Jaro-Winkler similarity below which a key is
// not offered as a suggestion.
const minSuggestionScore = 0.8

// Suggestion is a dictionary key close to a looked-up word.
type Suggestion struct {
	Key         string
	Translation string
	Score       float64
}

// Suggest ranks the dictionary keys most similar to word. The word is
// cleaned of punctuation first. At most limit suggestions are returned,
// best first; ties are ordered by key.
func Suggest(word string, dict gloss.Dictionary, limit int) []Suggestion {
	clean := gloss.CleanWord(word)
	if clean == "" || limit <= 0 {
		return nil
	}
	var out []Suggestion
	for k, v := range dict {
		score := matchr.JaroWinkler(clean, k, false)
		if score < minSuggestionScore {
			continue
		}
		out = append(out, Suggestion{Key: k, Translation: v, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
