package challenge

import (
	"context"

	"github.com/partyloop/guessparty/internal/model"
)

// LyricsAdapter shows the first half of a well-known line and expects the
// rest. The dataset is curated traditional/public-domain material.
type LyricsAdapter struct{}

func NewLyricsAdapter() *LyricsAdapter {
	return &LyricsAdapter{}
}

func (a *LyricsAdapter) GameType() model.GameType {
	return model.GameLyrics
}

func (a *LyricsAdapter) FetchLive(ctx context.Context, count int) ([]model.Challenge, error) {
	return a.FallbackSet(), nil
}

func (a *LyricsAdapter) FallbackSet() []model.Challenge {
	lines := []struct {
		prompt   string
		accepted []string
	}{
		{"Twinkle, twinkle, little star, ...", []string{"how I wonder what you are"}},
		{"Row, row, row your boat, ...", []string{"gently down the stream"}},
		{"She'll be coming round the mountain ...", []string{"when she comes"}},
		{"Oh my darling, oh my darling, ...", []string{"oh my darling Clementine", "oh my darling, Clementine"}},
		{"My bonnie lies over the ocean, ...", []string{"my bonnie lies over the sea"}},
		{"Swing low, sweet chariot, ...", []string{"coming for to carry me home", "comin' for to carry me home"}},
		{"For he's a jolly good fellow, ...", []string{"which nobody can deny"}},
		{"Frère Jacques, Frère Jacques, ...", []string{"dormez-vous", "dormez vous"}},
		{"London Bridge is falling down, ...", []string{"falling down, falling down", "my fair lady"}},
		{"Old MacDonald had a farm, ...", []string{"ee i ee i o", "e-i-e-i-o", "ei ei o"}},
	}
	challenges := make([]model.Challenge, 0, len(lines))
	for _, l := range lines {
		challenges = append(challenges, model.Challenge{
			GameType: model.GameLyrics,
			Prompt:   l.prompt,
			Accepted: l.accepted,
		})
	}
	return challenges
}
