package main

import (
	"github.com/partyloop/guessparty/internal/app"
	"github.com/partyloop/guessparty/internal/config"
)

func main() {
	app.Go(config.Load())
}
