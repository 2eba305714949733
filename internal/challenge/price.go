package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/partyloop/guessparty/internal/model"
)

const fakeStoreURL = "https://fakestoreapi.com/products"

// PriceAdapter asks players to guess a product's price. Scored with the
// numeric-tolerance bands.
type PriceAdapter struct {
	client *http.Client
}

func NewPriceAdapter(client *http.Client) *PriceAdapter {
	return &PriceAdapter{client: client}
}

func (a *PriceAdapter) GameType() model.GameType {
	return model.GamePrice
}

type productDTO struct {
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

func (a *PriceAdapter) FetchLive(ctx context.Context, count int) ([]model.Challenge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fakeStoreURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fakestore status %d", resp.StatusCode)
	}

	var products []productDTO
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, err
	}

	challenges := make([]model.Challenge, 0, len(products))
	for _, p := range products {
		if p.Title == "" || p.Price <= 0 {
			continue
		}
		challenges = append(challenges, model.Challenge{
			GameType: model.GamePrice,
			Prompt:   p.Title,
			Exact:    p.Price,
			Meta:     map[string]any{"image": p.Image},
		})
	}
	return challenges, nil
}

func (a *PriceAdapter) FallbackSet() []model.Challenge {
	products := []struct {
		title string
		price float64
	}{
		{"Stainless steel water bottle, 750ml", 24.95},
		{"Wireless over-ear headphones", 89.99},
		{"Cast iron skillet, 12 inch", 39.90},
		{"Mechanical keyboard, tenkeyless", 119.00},
		{"Cotton hoodie", 45.50},
		{"Desk lamp with USB port", 32.99},
		{"Trail running shoes", 129.95},
		{"French press, 1 liter", 28.00},
		{"Backpack, 25 liter", 74.99},
		{"Bluetooth speaker", 59.99},
	}
	challenges := make([]model.Challenge, 0, len(products))
	for _, p := range products {
		challenges = append(challenges, model.Challenge{
			GameType: model.GamePrice,
			Prompt:   p.title,
			Exact:    p.price,
		})
	}
	return challenges
}
