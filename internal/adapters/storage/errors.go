package storage

import "errors"

var (
	ErrEmptyName = errors.New("empty file name")
	ErrNotFound  = errors.New("object not found")
)
