package game

import "errors"

var (
	ErrInvalidName   = errors.New("name must be 1-19 characters")
	ErrInvalidAim    = errors.New("aim point out of range")
	ErrPlayerExists  = errors.New("player already joined on this connection")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrServerFull    = errors.New("server full")
)
