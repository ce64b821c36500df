package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrConflict     = errors.New("already exists")
	ErrInvalidEntry = errors.New("invalid leaderboard entry")
)
