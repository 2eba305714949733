package challenge

import (
	"context"
	"math/rand"
	"strings"

	"github.com/partyloop/guessparty/internal/model"
)

// WordAdapter serves an anagram: the prompt is a shuffled word, the answer
// the word itself. Dataset-only, no upstream.
type WordAdapter struct {
	words []string
}

func NewWordAdapter() *WordAdapter {
	return &WordAdapter{words: wordList}
}

func (a *WordAdapter) GameType() model.GameType {
	return model.GameWord
}

func (a *WordAdapter) FetchLive(ctx context.Context, count int) ([]model.Challenge, error) {
	return a.FallbackSet(), nil
}

func (a *WordAdapter) FallbackSet() []model.Challenge {
	challenges := make([]model.Challenge, 0, len(a.words))
	for _, w := range a.words {
		challenges = append(challenges, model.Challenge{
			GameType: model.GameWord,
			Prompt:   scramble(w),
			Accepted: []string{w},
		})
	}
	return challenges
}

// scramble shuffles until the result differs from the input, so a one-try
// giveaway never ships.
func scramble(word string) string {
	if len(word) < 2 {
		return word
	}
	runes := []rune(word)
	for {
		rand.Shuffle(len(runes), func(i, j int) {
			runes[i], runes[j] = runes[j], runes[i]
		})
		if string(runes) != word {
			return strings.ToUpper(string(runes))
		}
	}
}

var wordList = []string{
	"galaxy", "harvest", "lantern", "meadow", "paradox",
	"quiver", "rhythm", "saffron", "tempest", "voyage",
	"whisper", "zephyr", "anchor", "blossom", "cascade",
	"drizzle", "ember", "fjord", "glacier", "horizon",
}
