package analysis

import "errors"

var (
	// ErrNoVideo is returned when a video reference carries no name.
	ErrNoVideo = errors.New("no video")
	// ErrProbe is returned when container metadata cannot be read.
	ErrProbe = errors.New("video probe failed")
)
