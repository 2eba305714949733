package challenge

import (
	"context"

	"github.com/partyloop/guessparty/internal/model"
)

// SpeciesAdapter shows an animal photo and expects its common name.
type SpeciesAdapter struct{}

func NewSpeciesAdapter() *SpeciesAdapter {
	return &SpeciesAdapter{}
}

func (a *SpeciesAdapter) GameType() model.GameType {
	return model.GameSpecies
}

func (a *SpeciesAdapter) FetchLive(ctx context.Context, count int) ([]model.Challenge, error) {
	return a.FallbackSet(), nil
}

func (a *SpeciesAdapter) FallbackSet() []model.Challenge {
	species := []struct {
		image    string
		accepted []string
	}{
		{"https://upload.wikimedia.org/wikipedia/commons/4/4d/Ardea_cinerea_-_Grey_Heron.jpg", []string{"grey heron", "gray heron", "heron"}},
		{"https://upload.wikimedia.org/wikipedia/commons/3/37/Red_fox_%28Vulpes_vulpes%29.jpg", []string{"red fox", "fox"}},
		{"https://upload.wikimedia.org/wikipedia/commons/6/66/Giant_Panda_Eating.jpg", []string{"giant panda", "panda"}},
		{"https://upload.wikimedia.org/wikipedia/commons/2/27/Lion_%28Panthera_leo%29.jpg", []string{"lion"}},
		{"https://upload.wikimedia.org/wikipedia/commons/d/d2/Humpback_whale.jpg", []string{"humpback whale", "whale"}},
		{"https://upload.wikimedia.org/wikipedia/commons/9/95/Atlantic_puffin.jpg", []string{"atlantic puffin", "puffin"}},
		{"https://upload.wikimedia.org/wikipedia/commons/0/0a/European_hedgehog.jpg", []string{"european hedgehog", "hedgehog"}},
		{"https://upload.wikimedia.org/wikipedia/commons/5/55/Snow_leopard.jpg", []string{"snow leopard"}},
		{"https://upload.wikimedia.org/wikipedia/commons/8/8e/Emperor_penguin.jpg", []string{"emperor penguin", "penguin"}},
		{"https://upload.wikimedia.org/wikipedia/commons/f/f1/Monarch_butterfly.jpg", []string{"monarch butterfly", "monarch"}},
	}
	challenges := make([]model.Challenge, 0, len(species))
	for _, s := range species {
		challenges = append(challenges, model.Challenge{
			GameType: model.GameSpecies,
			Prompt:   s.image,
			Accepted: s.accepted,
		})
	}
	return challenges
}
