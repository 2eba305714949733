package model

import "errors"

var (
	ErrBadSettings  = errors.New("invalid room settings")
	ErrBadRoundData = errors.New("invalid round data")
)
