package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/partyloop/guessparty/internal/model"
)

const restCountriesURL = "https://restcountries.com/v3.1/all?fields=name,flags"

// FlagsAdapter asks players to name the country a flag belongs to.
type FlagsAdapter struct {
	client *http.Client
}

func NewFlagsAdapter(client *http.Client) *FlagsAdapter {
	return &FlagsAdapter{client: client}
}

func (a *FlagsAdapter) GameType() model.GameType {
	return model.GameFlags
}

type countryDTO struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Flags struct {
		PNG string `json:"png"`
		SVG string `json:"svg"`
	} `json:"flags"`
}

func (a *FlagsAdapter) FetchLive(ctx context.Context, count int) ([]model.Challenge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, restCountriesURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("restcountries status %d", resp.StatusCode)
	}

	var countries []countryDTO
	if err := json.NewDecoder(resp.Body).Decode(&countries); err != nil {
		return nil, err
	}

	challenges := make([]model.Challenge, 0, len(countries))
	for _, c := range countries {
		if c.Name.Common == "" || c.Flags.PNG == "" {
			continue
		}
		accepted := []string{c.Name.Common}
		if c.Name.Official != "" && c.Name.Official != c.Name.Common {
			accepted = append(accepted, c.Name.Official)
		}
		challenges = append(challenges, model.Challenge{
			GameType: model.GameFlags,
			Prompt:   c.Flags.PNG,
			Accepted: accepted,
		})
	}
	return challenges, nil
}

func (a *FlagsAdapter) FallbackSet() []model.Challenge {
	flags := []struct {
		png  string
		name string
	}{
		{"https://flagcdn.com/w320/jp.png", "Japan"},
		{"https://flagcdn.com/w320/br.png", "Brazil"},
		{"https://flagcdn.com/w320/ca.png", "Canada"},
		{"https://flagcdn.com/w320/de.png", "Germany"},
		{"https://flagcdn.com/w320/fr.png", "France"},
		{"https://flagcdn.com/w320/it.png", "Italy"},
		{"https://flagcdn.com/w320/ke.png", "Kenya"},
		{"https://flagcdn.com/w320/mx.png", "Mexico"},
		{"https://flagcdn.com/w320/no.png", "Norway"},
		{"https://flagcdn.com/w320/kr.png", "South Korea"},
	}
	challenges := make([]model.Challenge, 0, len(flags))
	for _, f := range flags {
		challenges = append(challenges, model.Challenge{
			GameType: model.GameFlags,
			Prompt:   f.png,
			Accepted: []string{f.name},
		})
	}
	return challenges
}
