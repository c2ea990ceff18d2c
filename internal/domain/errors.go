package domain

import "errors"

var (
	ErrNoSnapshot    = errors.New("no snapshot available")
	ErrEmptyCatalog  = errors.New("market catalog is empty")
	ErrMissingBook   = errors.New("book missing for token")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidOrder  = errors.New("invalid order parameters")
	ErrSigningFailed = errors.New("signing failed")
	ErrWSDisconnect  = errors.New("websocket disconnected")
)
